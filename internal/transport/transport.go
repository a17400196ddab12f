// Package transport entrega los streams de líneas de donde el loop lee
// frames y a donde escribe los ACK.
package transport

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrTimeout: no llegó una línea completa dentro del read timeout.
	ErrTimeout = errors.New("transport: read timeout")
	// ErrClosed: el otro extremo cerró el stream.
	ErrClosed = errors.New("transport: closed")
	// ErrLineTooLong: la línea superó MaxLineBytes y fue descartada.
	ErrLineTooLong = errors.New("transport: line too long")
)

const (
	MaxLineBytes   = 4096
	tcpScheme      = "tcp://"
	DefaultTimeout = time.Second
)

type Config struct {
	// Address es un dispositivo serie (/dev/ttyUSB0, COM5) o tcp://host:port.
	Address      string
	BaudRate     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Conn es el transporte abierto.
type Conn interface {
	ReadLine() ([]byte, error)
	WriteLine(b []byte) error
	Close() error
}

// Open elige serie o TCP según la dirección.
func Open(cfg Config) (Conn, error) {
	if strings.HasPrefix(cfg.Address, tcpScheme) {
		c, err := DialTCP(strings.TrimPrefix(cfg.Address, tcpScheme), cfg.ReadTimeout, cfg.WriteTimeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := OpenSerial(cfg.Address, cfg.BaudRate, cfg.ReadTimeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// IsTimeout reporta si err es un timeout de lectura (iteración vacía, no error).
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// writeAll escribe b completo aunque el writer acepte escrituras parciales.
func writeAll(w interface{ Write([]byte) (int, error) }, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
