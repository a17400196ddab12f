package store

import (
	"context"
	"sync"
	"time"
)

// Memory es un sink en proceso (STORE=memory y tests).
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]any)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Upsert(_ context.Context, deviceID string, f Fields, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[deviceID]
	if !ok {
		doc = make(map[string]any)
		m.docs[deviceID] = doc
	}
	doc[FieldLatitude] = f.Latitude
	doc[FieldLongitude] = f.Longitude
	doc[FieldTemperature] = f.Temperature
	doc[FieldLastUpdate] = at.UTC()
	return nil
}

// Set escribe un campo arbitrario (simula campos ajenos al ingest).
func (m *Memory) Set(deviceID, field string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[deviceID]
	if !ok {
		doc = make(map[string]any)
		m.docs[deviceID] = doc
	}
	doc[field] = v
}

// Get devuelve una copia del documento.
func (m *Memory) Get(deviceID string) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[deviceID]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, true
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
