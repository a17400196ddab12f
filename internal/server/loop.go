package server

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	jujuerrors "github.com/juju/errors"

	"gtrc-svr/internal/codec"
	"gtrc-svr/internal/observability"
	"gtrc-svr/internal/pipeline"
	"gtrc-svr/internal/store"
	"gtrc-svr/internal/transport"
)

// Transport es el stream de líneas hacia el dispositivo.
type Transport interface {
	ReadLine() ([]byte, error)
	WriteLine(b []byte) error
	Close() error
}

// Sink recibe cada lectura aceptada.
type Sink interface {
	Upsert(ctx context.Context, deviceID string, fields store.Fields, at time.Time) error
}

// LineRecorder guarda cada línea cruda recibida (opcional).
type LineRecorder interface {
	Record(line string) error
}

type State int32

const (
	StateIdle State = iota
	StateAwaitingLine
	StateProcessing
	StateAcknowledging
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLine:
		return "awaiting_line"
	case StateProcessing:
		return "processing"
	case StateAcknowledging:
		return "acknowledging"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type Options struct {
	Recorder LineRecorder
	Now      func() time.Time
}

// Loop atiende un transporte: lee, valida, hace upsert y responde el ACK.
// Corre en una sola goroutine; State() se puede leer desde cualquiera.
type Loop struct {
	t      Transport
	sink   Sink
	logger *slog.Logger
	rec    LineRecorder
	now    func() time.Time
	state  atomic.Int32
}

func NewLoop(t Transport, sink Sink, logger *slog.Logger, opts Options) *Loop {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	// series en cero para cada motivo, así aparecen en /metrics desde el arranque
	for _, r := range codec.Reasons() {
		observability.FramesRejected.WithLabelValues(r.String())
	}
	return &Loop{
		t:      t,
		sink:   sink,
		logger: logger.With("component", "loop"),
		rec:    opts.Recorder,
		now:    opts.Now,
	}
}

func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) setState(s State) { l.state.Store(int32(s)) }

// Run bloquea hasta que ctx se cancela (devuelve nil) o el transporte falla.
// El transporte queda cerrado en cualquier caso.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if err := l.t.Close(); err != nil {
			l.logger.Warn("transport close failed", "err", err)
		}
		l.setState(StateClosed)
		l.logger.Info("protocol loop closed")
	}()

	for {
		l.setState(StateIdle)
		if ctx.Err() != nil {
			return nil
		}

		l.setState(StateAwaitingLine)
		raw, err := l.t.ReadLine()
		switch {
		case err == nil:
		case transport.IsTimeout(err):
			continue
		case errors.Is(err, transport.ErrLineTooLong):
			l.logger.Warn("line too long, discarded", "max_bytes", transport.MaxLineBytes)
			continue
		case ctx.Err() != nil:
			return nil
		default:
			return jujuerrors.Annotate(err, "transport read")
		}

		if err := l.handle(ctx, raw); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// handle procesa una línea. Sólo devuelve error si falla la escritura del ACK.
func (l *Loop) handle(ctx context.Context, raw []byte) error {
	l.setState(StateProcessing)
	line := codec.DecodeText(raw)
	observability.LinesRecv.Inc()
	l.logger.Info("line received", "data", line)
	if l.rec != nil {
		if err := l.rec.Record(line); err != nil {
			l.logger.Warn("raw log failed", "err", err)
		}
	}

	reading, err := pipeline.Process(line)
	if err != nil {
		l.reject(ctx, err)
		return nil
	}
	observability.ReadingsAccepted.Inc()
	l.logger.Info("reading processed",
		"device_id", reading.DeviceID,
		"latitude", reading.Latitude,
		"longitude", reading.Longitude,
		"temperature", reading.Temperature,
		"checksum", reading.Checksum,
	)

	fields := store.Fields{
		Latitude:    reading.Latitude,
		Longitude:   reading.Longitude,
		Temperature: reading.Temperature,
	}
	if err := l.sink.Upsert(ctx, reading.DeviceID, fields, l.now().UTC()); err != nil {
		// el ACK confirma el parseo, no la persistencia
		l.logger.Error("sink upsert failed", "device_id", reading.DeviceID, "err", err)
	} else {
		l.logger.Info("reading stored", "device_id", reading.DeviceID)
	}

	l.setState(StateAcknowledging)
	ack := codec.EncodeAck(reading.DeviceID)
	if err := l.t.WriteLine(ack); err != nil {
		return jujuerrors.Annotatef(err, "transport write ack %s", reading.DeviceID)
	}
	observability.AcksSent.Inc()
	l.logger.Info("ack sent", "device_id", reading.DeviceID, "ack", string(ack[:len(ack)-1]))
	return nil
}

func (l *Loop) reject(ctx context.Context, err error) {
	var rej *codec.Rejection
	if !errors.As(err, &rej) {
		l.logger.Error("frame dropped", "err", err)
		return
	}
	observability.FramesRejected.WithLabelValues(rej.Reason.String()).Inc()
	l.logger.Log(ctx, rej.Reason.Level(), "frame rejected", rej.LogAttrs()...)
}
