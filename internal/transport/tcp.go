package transport

import (
	"errors"
	"io"
	"net"
	"time"

	jujuerrors "github.com/juju/errors"
)

// deadlineReader aplica el read timeout por lectura sobre una net.Conn.
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (d deadlineReader) Read(p []byte) (int, error) {
	if d.timeout > 0 {
		_ = d.conn.SetReadDeadline(time.Now().Add(d.timeout))
	}
	n, err := d.conn.Read(p)
	if err == nil {
		return n, nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return n, ErrTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return n, ErrClosed
	}
	return n, err
}

// TCP es un puente serie sobre TCP (ser2net, ESP32 con WiFi, etc).
type TCP struct {
	conn         net.Conn
	writeTimeout time.Duration
	lines        *lineReader
}

func DialTCP(addr string, readTimeout, writeTimeout time.Duration) (*TCP, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, jujuerrors.Annotatef(err, "dial %s", addr)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(60 * time.Second)
	}
	return NewTCP(conn, readTimeout, writeTimeout), nil
}

// NewTCP envuelve una conexión ya establecida.
func NewTCP(conn net.Conn, readTimeout, writeTimeout time.Duration) *TCP {
	if readTimeout <= 0 {
		readTimeout = DefaultTimeout
	}
	return &TCP{
		conn:         conn,
		writeTimeout: writeTimeout,
		lines:        newLineReader(deadlineReader{conn: conn, timeout: readTimeout}, MaxLineBytes),
	}
}

func (t *TCP) ReadLine() ([]byte, error) {
	return t.lines.ReadLine()
}

func (t *TCP) WriteLine(b []byte) error {
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
		defer t.conn.SetWriteDeadline(time.Time{})
	}
	return jujuerrors.Trace(writeAll(t.conn, b))
}

func (t *TCP) Close() error {
	return t.conn.Close()
}
