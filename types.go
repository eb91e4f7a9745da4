package wiretap

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/supergoodsystems/wiretap/internal/ignore"
	"github.com/supergoodsystems/wiretap/internal/observability"
	"github.com/supergoodsystems/wiretap/pkg/redact"
	"github.com/supergoodsystems/wiretap/pkg/settings"
)

// Service records the HTTP exchanges of every client it wraps.
//
// If SettingsRefreshInterval is set, call [Service.Close] when done to stop
// the background refresh.
type Service struct {
	// DefaultClient is a wrapped version of Options.HTTPClient.
	// If you'd like to record all requests, set
	// http.DefaultClient = svc.DefaultClient.
	DefaultClient *http.Client

	options  *Options
	log      *zerolog.Logger
	metrics  *observability.Metrics
	settings settings.Source
	cache    *settings.Cache
	matcher  *ignore.Matcher
	redactor *redact.Redactor

	transport *Session
	hooks     *Hooks
}
