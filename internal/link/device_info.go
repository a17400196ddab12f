package link

import (
	"time"

	"gtrc-svr/internal/store"
)

// DeviceInfo es la línea NDJSON que se envía al proxy por cada lectura.
type DeviceInfo struct {
	DeviceConnect bool `json:"device_connect,omitempty"`
	DeviceUpdate  bool `json:"device_update,omitempty"`
	store.Document
}

func newDeviceInfo(state DeviceState, deviceID string, f store.Fields, at time.Time) DeviceInfo {
	return DeviceInfo{
		DeviceConnect: state == DeviceStateConnect,
		DeviceUpdate:  state == DeviceStateUpdate,
		Document:      store.NewDocument(deviceID, f, at),
	}
}
