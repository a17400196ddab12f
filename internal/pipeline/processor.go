package pipeline

import (
	"strconv"
	"time"

	"gtrc-svr/internal/codec"
	"gtrc-svr/internal/observability"
)

// Build convierte un frame validado en DeviceReading.
// Un device_id vacío cuenta como campo faltante (WrongFieldCount).
func Build(f codec.Frame, checksum int) (DeviceReading, error) {
	if f.DeviceID() == "" {
		return DeviceReading{}, &codec.Rejection{Reason: codec.WrongFieldCount, Field: "device_id"}
	}
	lat, err := parseNumeric(f, codec.FieldLatitude, "latitude")
	if err != nil {
		return DeviceReading{}, err
	}
	lon, err := parseNumeric(f, codec.FieldLongitude, "longitude")
	if err != nil {
		return DeviceReading{}, err
	}
	temp, err := parseNumeric(f, codec.FieldTemperature, "temperature")
	if err != nil {
		return DeviceReading{}, err
	}
	return DeviceReading{
		DeviceID:    f.DeviceID(),
		Latitude:    lat,
		Longitude:   lon,
		Temperature: temp,
		Checksum:    checksum,
	}, nil
}

func parseNumeric(f codec.Frame, idx int, name string) (float64, error) {
	raw := f.Fields[idx]
	text, ok := codec.NumericText(raw)
	v, err := strconv.ParseFloat(text, 64)
	if !ok || err != nil {
		if err == nil {
			err = strconv.ErrSyntax
		}
		return 0, &codec.Rejection{Reason: codec.BadNumericField, Field: name, Value: raw, Err: err}
	}
	return v, nil
}

// Process pasa la línea por Decode -> Validate -> Build.
// Cualquier rechazo sale como *codec.Rejection.
func Process(line string) (DeviceReading, error) {
	defer observability.ObserveParseLatency(time.Now())

	f, err := codec.Decode(line)
	if err != nil {
		return DeviceReading{}, err
	}
	chk, err := codec.Validate(f)
	if err != nil {
		return DeviceReading{}, err
	}
	return Build(f, chk)
}
