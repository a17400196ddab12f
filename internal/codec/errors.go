package codec

import (
	"fmt"
	"log/slog"
)

// Reason identifica por qué se descartó un frame.
// Reason implementa error para poder usar errors.Is(err, codec.ChecksumMismatch).
type Reason int

const (
	BadPrefix Reason = iota + 1
	WrongFieldCount
	BadChecksumFormat
	ChecksumMismatch
	BadNumericField
)

var reasonNames = map[Reason]string{
	BadPrefix:         "bad_prefix",
	WrongFieldCount:   "wrong_field_count",
	BadChecksumFormat: "bad_checksum_format",
	ChecksumMismatch:  "checksum_mismatch",
	BadNumericField:   "bad_numeric_field",
}

// Reasons devuelve todos los motivos de rechazo, en orden de validación.
func Reasons() []Reason {
	return []Reason{BadPrefix, WrongFieldCount, BadChecksumFormat, ChecksumMismatch, BadNumericField}
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

func (r Reason) Error() string { return "codec: " + r.String() }

// Level devuelve la severidad de log: checksum incorrecto es error, el resto warning.
func (r Reason) Level() slog.Level {
	if r == ChecksumMismatch {
		return slog.LevelError
	}
	return slog.LevelWarn
}

// Rejection es el resultado de un frame descartado.
type Rejection struct {
	Reason Reason

	// ChecksumMismatch
	Expected int
	Received int

	// WrongFieldCount: Count con la cantidad recibida, o Field con el campo
	// obligatorio que llegó vacío (Count queda en 0).
	Count int

	// BadNumericField / BadChecksumFormat
	Field string
	Value string

	Err error
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ChecksumMismatch:
		return fmt.Sprintf("%s: expected=%d received=%d", r.Reason.Error(), r.Expected, r.Received)
	case WrongFieldCount:
		if r.Field != "" {
			return fmt.Sprintf("%s: empty %s", r.Reason.Error(), r.Field)
		}
		return fmt.Sprintf("%s: got %d fields, want %d", r.Reason.Error(), r.Count, FieldCount)
	case BadChecksumFormat, BadNumericField:
		return fmt.Sprintf("%s: %s=%q", r.Reason.Error(), r.Field, r.Value)
	}
	return r.Reason.Error()
}

func (r *Rejection) Unwrap() []error {
	if r.Err != nil {
		return []error{r.Reason, r.Err}
	}
	return []error{r.Reason}
}

// LogAttrs arma los atributos slog del rechazo.
func (r *Rejection) LogAttrs() []any {
	attrs := []any{"reason", r.Reason.String()}
	switch r.Reason {
	case ChecksumMismatch:
		attrs = append(attrs, "expected", r.Expected, "received", r.Received)
	case WrongFieldCount:
		if r.Field != "" {
			attrs = append(attrs, "empty", r.Field)
		} else {
			attrs = append(attrs, "fields", r.Count)
		}
	case BadChecksumFormat, BadNumericField:
		attrs = append(attrs, "field", r.Field, "value", r.Value)
	}
	return attrs
}
