package pipeline

// DeviceReading es la lectura validada de un dispositivo.
// Se construye sólo después de Decode + Validate.
type DeviceReading struct {
	DeviceID    string  `json:"device_id"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Temperature float64 `json:"temperature"`
	Checksum    int     `json:"checksum"`
}
