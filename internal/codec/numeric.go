package codec

import "strings"

// NumericText limpia un campo numérico antes de strconv: quita espacios
// alrededor y los '_' entre dos dígitos ("1_000"). Hex ("0x10") no se
// acepta. ok es false si el texto no puede ser número.
func NumericText(raw string) (s string, ok bool) {
	s = strings.TrimSpace(raw)
	if strings.ContainsAny(s, "xX") {
		return s, false
	}
	if !strings.Contains(s, "_") {
		return s, true
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
				return s, false
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
