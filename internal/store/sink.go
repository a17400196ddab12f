package store

import (
	"context"
	"time"
)

// Fields son los campos que se mezclan en el registro del dispositivo.
type Fields struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Temperature float64 `json:"temperature"`
}

// Sink hace upsert parcial: no borra campos que no conoce.
type Sink interface {
	Name() string
	Upsert(ctx context.Context, deviceID string, fields Fields, at time.Time) error
}

// Nombres de campo en el documento del dispositivo.
const (
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
	FieldTemperature = "temperature"
	FieldLastUpdate  = "last_update"
)

// Document arma el documento que se publica (MQTT, link, grpc).
type Document struct {
	DeviceID   string    `json:"device_id"`
	LastUpdate time.Time `json:"last_update"`
	Fields
}

func NewDocument(deviceID string, f Fields, at time.Time) Document {
	return Document{DeviceID: deviceID, LastUpdate: at.UTC(), Fields: f}
}
