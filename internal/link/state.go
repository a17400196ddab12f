package link

// DeviceState representa el tipo de evento que se manda al proxy
type DeviceState int

const (
	DeviceStateUnknown DeviceState = iota
	DeviceStateConnect             // device_connect: true, primera lectura del dispositivo
	DeviceStateUpdate              // device_update: true
)

func (s DeviceState) String() string {
	switch s {
	case DeviceStateConnect:
		return "device_connect"
	case DeviceStateUpdate:
		return "device_update"
	}
	return "unknown"
}
