// Package store defines where captured records and diagnostic settings live.
package store

import (
	"context"
	"errors"

	"github.com/supergoodsystems/wiretap/pkg/record"
)

// ErrNotFound is returned when a record id is unknown.
var ErrNotFound = errors.New("store: record not found")

// Settings decide whether diagnostics run at all.
type Settings struct {
	// DebugMode reports diagnostics enabled for the current build mode.
	DebugMode bool `json:"debugMode" yaml:"debugMode"`
	// ShowOnRelease force-enables diagnostics for release builds.
	ShowOnRelease bool `json:"showOnRelease" yaml:"showOnRelease"`
}

// Active reports whether exchanges should be recorded.
func (s Settings) Active() bool {
	return s.DebugMode || s.ShowOnRelease
}

// RecordStore is the persistence consumed by the interception session.
// AddRecord appends; implementations keep insertion order and are safe for
// concurrent use.
type RecordStore interface {
	GetSettings(ctx context.Context) (Settings, error)
	AddRecord(ctx context.Context, r *record.Record) error
}

// History is a RecordStore that can also be reviewed.
type History interface {
	RecordStore
	PutSettings(ctx context.Context, s Settings) error
	ListRecords(ctx context.Context, f Filter) ([]record.Record, error)
	SetChecked(ctx context.Context, id string, checked bool) error
	Clear(ctx context.Context) error
}

// Filter narrows ListRecords. Zero values match everything.
type Filter struct {
	Method        string
	ClientLibrary string
	UncheckedOnly bool
	// Limit keeps the newest Limit records when positive.
	Limit int
}

// Match reports whether r passes the filter.
func (f Filter) Match(r *record.Record) bool {
	if f.Method != "" && r.Method != f.Method {
		return false
	}
	if f.ClientLibrary != "" && r.ClientLibrary != f.ClientLibrary {
		return false
	}
	if f.UncheckedOnly && r.Checked {
		return false
	}
	return true
}

// Tail applies f.Limit to records in insertion order.
func (f Filter) Tail(records []record.Record) []record.Record {
	if f.Limit > 0 && len(records) > f.Limit {
		return records[len(records)-f.Limit:]
	}
	return records
}
