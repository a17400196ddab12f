package link

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	jujuerrors "github.com/juju/errors"

	"gtrc-svr/internal/store"
)

var ErrNotConnected = errors.New("link: not connected")

const (
	dialRetry    = 5 * time.Second
	redialDelay  = 2 * time.Second
	writeTimeout = 2 * time.Second
)

// Forwarder mantiene un cliente TCP hacia socket-tcp-proxy y le manda cada
// lectura aceptada como NDJSON. Reconecta solo mientras el contexto viva.
type Forwarder struct {
	addr   string
	logger *slog.Logger

	dialRetry   time.Duration
	redialDelay time.Duration

	mu   sync.Mutex
	conn net.Conn
	seen map[string]bool
}

func New(addr string, lg *slog.Logger) *Forwarder {
	return &Forwarder{
		addr:        addr,
		logger:      lg.With("component", "link"),
		dialRetry:   dialRetry,
		redialDelay: redialDelay,
		seen:        make(map[string]bool),
	}
}

// Start lanza el loop de conexión en background.
func (f *Forwarder) Start(ctx context.Context) {
	go f.connectLoop(ctx)
	go func() {
		<-ctx.Done()
		f.clearConn(nil)
	}()
}

func (f *Forwarder) Name() string { return "link" }

func (f *Forwarder) Connected() bool { return f.getConn() != nil }

// -------------------------------------------------------------------
//                        LOOP DE CONEXIÓN
// -------------------------------------------------------------------

func (f *Forwarder) connectLoop(ctx context.Context) {
	var d net.Dialer
	for ctx.Err() == nil {
		c, err := d.DialContext(ctx, "tcp", f.addr)
		if err != nil {
			f.logger.Error("link: dial failed", "addr", f.addr, "err", err)
			if !sleep(ctx, f.dialRetry) {
				return
			}
			continue
		}

		f.setConn(c)
		f.logger.Info("link: connected", "remote", c.RemoteAddr().String())

		// leer en este hilo hasta que se caiga
		f.readLoop(c)

		f.clearConn(c)
		if ctx.Err() != nil {
			return
		}
		f.logger.Warn("link: connection closed, reconnecting...")
		if !sleep(ctx, f.redialDelay) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (f *Forwarder) setConn(c net.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conn = c
}

// clearConn cierra c si sigue siendo la conexión activa; nil cierra la que haya.
func (f *Forwarder) clearConn(c net.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil && (c == nil || f.conn == c) {
		_ = f.conn.Close()
		f.conn = nil
	}
}

func (f *Forwarder) getConn() net.Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn
}

func (f *Forwarder) readLoop(c net.Conn) {
	r := bufio.NewScanner(c)
	for r.Scan() {
		// el proxy no manda comandos a dispositivos seriales, sólo se loguea
		f.logger.Info("link: incoming line", "line", r.Text())
	}
	if err := r.Err(); err != nil && err != io.EOF && !errors.Is(err, net.ErrClosed) {
		f.logger.Warn("link: read error", "err", err)
	}
}

// -------------------------------------------------------------------
//                          ENVÍO NDJSON
// -------------------------------------------------------------------

func (f *Forwarder) sendNDJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return jujuerrors.Trace(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return ErrNotConnected
	}
	_ = f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = f.conn.Write(append(b, '\n'))
	return jujuerrors.Annotate(err, "link: write")
}

// Upsert manda device_connect la primera vez que ve un dispositivo y
// device_update en las siguientes.
func (f *Forwarder) Upsert(_ context.Context, deviceID string, fields store.Fields, at time.Time) error {
	f.mu.Lock()
	state := DeviceStateUpdate
	if !f.seen[deviceID] {
		state = DeviceStateConnect
	}
	f.mu.Unlock()

	if err := f.sendNDJSON(newDeviceInfo(state, deviceID, fields, at)); err != nil {
		f.logger.Warn("link: send failed", "event", state.String(), "device_id", deviceID, "err", err)
		return err
	}

	f.mu.Lock()
	f.seen[deviceID] = true
	f.mu.Unlock()
	return nil
}
