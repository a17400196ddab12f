package codec

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Frame GTRC (texto, una línea):
// GTRC|<device_id>|<latitude>|<longitude>|<temperature>|<checksum>
const (
	Tag        = "GTRC"
	Separator  = "|"
	Prefix     = Tag + Separator
	FieldCount = 6
	AckStatus  = "OK"
)

// Posiciones dentro del frame.
const (
	FieldTag = iota
	FieldDeviceID
	FieldLatitude
	FieldLongitude
	FieldTemperature
	FieldChecksum
)

// Frame es un frame crudo ya separado en sus 6 campos.
type Frame struct {
	Fields [FieldCount]string
}

func (f Frame) DeviceID() string { return f.Fields[FieldDeviceID] }

// Body es el mensaje sin el checksum, sobre el que se calcula la suma.
func (f Frame) Body() string {
	return strings.Join(f.Fields[:FieldChecksum], Separator)
}

// DecodeText convierte bytes del puerto a texto. Secuencias UTF-8 inválidas
// se reemplazan por U+FFFD, nunca falla. Quita espacios y terminadores.
func DecodeText(raw []byte) string {
	b, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		// el decoder reemplaza, no debería fallar
		b = []byte(strings.ToValidUTF8(string(raw), "\uFFFD"))
	}
	return strings.TrimSpace(string(b))
}

// Decode valida el prefijo y la cantidad de campos. No revisa el contenido.
func Decode(line string) (Frame, error) {
	if !strings.HasPrefix(line, Prefix) {
		return Frame{}, &Rejection{Reason: BadPrefix}
	}
	parts := strings.Split(line, Separator)
	if len(parts) != FieldCount {
		return Frame{}, &Rejection{Reason: WrongFieldCount, Count: len(parts)}
	}
	var f Frame
	copy(f.Fields[:], parts)
	return f, nil
}

// EncodeFrame arma un frame completo con su checksum (lado dispositivo).
func EncodeFrame(deviceID string, lat, lon, temp float64) string {
	body := strings.Join([]string{
		Tag,
		deviceID,
		formatFloat(lat),
		formatFloat(lon),
		formatFloat(temp),
	}, Separator)
	return body + Separator + strconv.Itoa(Checksum(body))
}

// EncodeAck arma la confirmación que se devuelve al dispositivo.
func EncodeAck(deviceID string) []byte {
	return []byte(Tag + Separator + deviceID + Separator + AckStatus + "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
