package transport

import (
	"errors"
	"io"
	"time"

	jujuerrors "github.com/juju/errors"
	"github.com/tarm/serial"
)

// Lecturas vacías seguidas, más rápidas que el read timeout, que se toman
// como puerto colgado (dispositivo desenchufado).
const hangupReads = 3

// timeoutReader traduce la lectura vacía del puerto (0 bytes, con o sin
// io.EOF según el SO) a ErrTimeout. Si la lectura vacía vuelve antes de la
// mitad del timeout es un hangup: la tty devuelve 0 al instante.
type timeoutReader struct {
	r       io.Reader
	timeout time.Duration
	now     func() time.Time
	early   int
}

func newTimeoutReader(r io.Reader, timeout time.Duration) *timeoutReader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &timeoutReader{r: r, timeout: timeout, now: time.Now}
}

func (t *timeoutReader) Read(p []byte) (int, error) {
	start := t.now()
	n, err := t.r.Read(p)
	if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
		if t.now().Sub(start) < t.timeout/2 {
			t.early++
			if t.early >= hangupReads {
				return 0, ErrClosed
			}
		} else {
			t.early = 0
		}
		return 0, ErrTimeout
	}
	t.early = 0
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

// Serial es un puerto serie abierto con tarm/serial.
type Serial struct {
	port  io.ReadWriteCloser
	lines *lineReader
}

func OpenSerial(name string, baud int, readTimeout time.Duration) (*Serial, error) {
	if readTimeout <= 0 {
		readTimeout = DefaultTimeout
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, jujuerrors.Annotatef(err, "open serial %s baud=%d", name, baud)
	}
	return NewSerial(port, readTimeout), nil
}

// NewSerial envuelve un puerto ya abierto. readTimeout debe ser el mismo con
// el que se configuró el puerto.
func NewSerial(port io.ReadWriteCloser, readTimeout time.Duration) *Serial {
	return &Serial{
		port:  port,
		lines: newLineReader(newTimeoutReader(port, readTimeout), MaxLineBytes),
	}
}

func (s *Serial) ReadLine() ([]byte, error) {
	return s.lines.ReadLine()
}

func (s *Serial) WriteLine(b []byte) error {
	return jujuerrors.Trace(writeAll(s.port, b))
}

func (s *Serial) Close() error {
	return s.port.Close()
}
