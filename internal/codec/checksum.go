package codec

import "strconv"

// Checksum suma los code points del mensaje, módulo 256.
func Checksum(body string) int {
	sum := 0
	for _, r := range body {
		sum += int(r)
	}
	return sum % 256
}

// Validate recalcula el checksum del cuerpo y lo compara con el recibido.
// Devuelve el checksum validado.
func Validate(f Frame) (int, error) {
	raw := f.Fields[FieldChecksum]
	text, ok := NumericText(raw)
	received, err := strconv.Atoi(text)
	if !ok || err != nil {
		if err == nil {
			err = strconv.ErrSyntax
		}
		return 0, &Rejection{Reason: BadChecksumFormat, Field: "checksum", Value: raw, Err: err}
	}
	expected := Checksum(f.Body())
	if expected != received {
		return 0, &Rejection{Reason: ChecksumMismatch, Expected: expected, Received: received}
	}
	return received, nil
}
