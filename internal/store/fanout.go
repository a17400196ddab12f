package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gtrc-svr/internal/observability"
)

// Fanout llama a cada sink en orden. Un sink que falla no frena a los demás.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Upsert(ctx context.Context, deviceID string, fields Fields, at time.Time) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Upsert(ctx, deviceID, fields, at); err != nil {
			observability.SinkErrors.WithLabelValues(s.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
