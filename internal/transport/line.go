package transport

import (
	"bufio"
	"errors"
	"io"
)

// lineReader arma líneas terminadas en '\n' sobre un reader que devuelve
// ErrTimeout cuando no hay datos. Las líneas parciales sobreviven al timeout.
type lineReader struct {
	r       *bufio.Reader
	pending []byte
	max     int
	discard bool
}

func newLineReader(r io.Reader, max int) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 512), max: max}
}

// ReadLine devuelve la línea incluyendo el terminador.
func (l *lineReader) ReadLine() ([]byte, error) {
	for {
		chunk, err := l.r.ReadSlice('\n')
		if !l.discard {
			l.pending = append(l.pending, chunk...)
		}
		if len(l.pending) > l.max {
			l.pending = nil
			l.discard = true
		}
		switch {
		case err == nil:
			if l.discard {
				l.discard = false
				return nil, ErrLineTooLong
			}
			line := l.pending
			l.pending = nil
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return nil, err
		}
	}
}
