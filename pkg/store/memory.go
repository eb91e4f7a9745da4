package store

import (
	"context"
	"sync"

	"github.com/supergoodsystems/wiretap/pkg/record"
)

// Memory keeps records in process, oldest first.
type Memory struct {
	mu         sync.RWMutex
	settings   Settings
	records    []record.Record
	maxRecords int
}

// NewMemory creates an in-memory store. When maxRecords is positive the
// oldest records are evicted to stay within it.
func NewMemory(maxRecords int) *Memory {
	return &Memory{maxRecords: maxRecords}
}

func (m *Memory) GetSettings(ctx context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *Memory) PutSettings(ctx context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

func (m *Memory) AddRecord(ctx context.Context, r *record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r)
	if m.maxRecords > 0 && len(m.records) > m.maxRecords {
		m.records = m.records[len(m.records)-m.maxRecords:]
	}
	return nil
}

// ListRecords returns a copy of the matching records.
func (m *Memory) ListRecords(ctx context.Context, f Filter) ([]record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]record.Record, 0, len(m.records))
	for i := range m.records {
		if f.Match(&m.records[i]) {
			out = append(out, m.records[i])
		}
	}
	return f.Tail(out), nil
}

func (m *Memory) SetChecked(ctx context.Context, id string, checked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Checked = checked
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
