// Package notify signals a UI that an exchange was just recorded.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Notification is the summary shown for one exchange.
type Notification struct {
	Method      string    `json:"method"`
	StatusCode  int       `json:"statusCode"`
	Path        string    `json:"path"`
	RequestTime time.Time `json:"requestTime"`
}

// Sink receives notifications. Show is fire-and-forget: callers log a
// returned error and move on.
type Sink interface {
	Show(ctx context.Context, n Notification) error
}

// Func adapts a function to a Sink.
type Func func(ctx context.Context, n Notification) error

func (f Func) Show(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Show(context.Context, Notification) error { return nil }

// Log writes one line per notification.
func Log(l *zerolog.Logger) Sink {
	return &logSink{log: l}
}

type logSink struct {
	log *zerolog.Logger
}

func (s *logSink) Show(ctx context.Context, n Notification) error {
	s.log.Info().
		Str("method", n.Method).
		Int("status", n.StatusCode).
		Str("path", n.Path).
		Time("requestTime", n.RequestTime).
		Msg("wiretap: exchange recorded")
	return nil
}

// Multi fans a notification out to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Show(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Show(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
