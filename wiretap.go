// Package wiretap records the HTTP exchanges of Go clients for debugging.
//
// Each request is timed from the moment it is handed to the transport, its
// request and response bodies are normalized into JSON-safe values, and the
// result is appended to a [store.RecordStore] while a [notify.Sink] is told
// about it. wiretap never changes what the client sends or receives, and its
// own failures are logged, never returned to the caller.
//
// Wrap a client:
//
//	svc, _ := wiretap.New(&wiretap.Options{Settings: &store.Settings{DebugMode: true}})
//	client := svc.Wrap(http.DefaultClient)
//
// or drive the hook points directly from an interceptor chain with
// [Service.Hooks].
package wiretap

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/supergoodsystems/wiretap/internal/ignore"
	"github.com/supergoodsystems/wiretap/internal/observability"
	"github.com/supergoodsystems/wiretap/internal/shared"
	"github.com/supergoodsystems/wiretap/pkg/redact"
	"github.com/supergoodsystems/wiretap/pkg/settings"
)

// New creates a new wiretap service.
// An error is returned only if the configuration is invalid.
func New(o *Options) (*Service, error) {
	o, err := o.parse()
	if err != nil {
		return nil, err
	}

	svc := &Service{
		options:  o,
		log:      o.Logger,
		redactor: redact.New(o.RedactHeaders, o.RedactRequestBodyKeys, o.RedactResponseBodyKeys),
	}

	svc.metrics, err = observability.NewMetrics(o.Registerer)
	if err != nil {
		return nil, fmt.Errorf("wiretap: register metrics: %w", err)
	}

	svc.matcher, err = ignore.New(o.AllowedDomains, o.IgnorePaths, o.SelectRequests)
	if err != nil {
		return nil, fmt.Errorf("wiretap: %w", err)
	}

	switch {
	case o.Settings != nil:
		svc.settings = settings.Static(*o.Settings)
	case o.SettingsRefreshInterval > 0:
		svc.cache = settings.NewCache(o.Store, o.SettingsRefreshInterval, svc.handleError)
		// a failed first load must not stop the host application from starting
		if err := svc.cache.Init(context.Background()); err != nil {
			svc.handleError(fmt.Errorf("wiretap: load settings: %w", err))
		}
		go svc.cache.Refresh()
		svc.settings = svc.cache
	default:
		svc.settings = settings.PerCall(o.Store)
	}

	svc.transport = svc.Session(shared.NetHTTPClient)
	svc.hooks = &Hooks{session: svc.Session(shared.InterceptorClient)}

	if !o.DisableDefaultWrappedClient {
		svc.DefaultClient = svc.Wrap(o.HTTPClient)
	}

	svc.log.Debug().Str("version", getVersion()).Msg("wiretap started")
	return svc, nil
}

// Wrap returns a new http client that calls the original and
// also records every exchange.
func (svc *Service) Wrap(client *http.Client) *http.Client {
	return &http.Client{
		Transport:     svc.Transport(client.Transport),
		CheckRedirect: client.CheckRedirect,
		Jar:           client.Jar,
		Timeout:       client.Timeout,
	}
}

// Transport wraps next (http.DefaultTransport when nil).
func (svc *Service) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &roundTripper{session: svc.transport, next: next}
}

// Hooks returns the interceptor-style entry points.
func (svc *Service) Hooks() *Hooks {
	return svc.hooks
}

// Session returns an interception session stamping records with the given
// client library tag, for adapting other HTTP client libraries.
func (svc *Service) Session(clientLibrary string) *Session {
	return &Session{svc: svc, clientLibrary: clientLibrary}
}

// Close stops the background settings refresh.
func (svc *Service) Close() error {
	if svc.cache != nil {
		svc.cache.Close()
	}
	return nil
}

func (svc *Service) handleError(err error) {
	svc.options.OnError(err)
}

func getVersion() string {
	info, ok := debug.ReadBuildInfo()
	if ok {
		for _, dep := range info.Deps {
			if dep.Path == "github.com/supergoodsystems/wiretap" {
				return dep.Version
			}
		}
	}
	return "unknown"
}
