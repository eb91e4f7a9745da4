package wiretap

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/supergoodsystems/wiretap/internal/observability"
	"github.com/supergoodsystems/wiretap/pkg/notify"
	"github.com/supergoodsystems/wiretap/pkg/store"
)

// Options configure the wiretap service
type Options struct {
	// Store receives every record and supplies the diagnostic settings.
	// (defaults to an unbounded in-memory store)
	Store store.RecordStore

	// Sink is told about every recorded exchange.
	// (defaults to a log line through Logger)
	Sink notify.Sink

	// Settings fixes the diagnostic settings instead of reading them from
	// Store. (defaults to the WIRETAP_DEBUG and WIRETAP_SHOW_ON_RELEASE
	// environment variables when either is set, otherwise nil)
	Settings *store.Settings

	// SettingsRefreshInterval caches the settings read from Store and
	// refreshes them on this interval. Zero reads them on every exchange.
	SettingsRefreshInterval time.Duration

	// DisableRequestBody and DisableResponseBody skip body capture.
	// Sizes are then taken from Content-Length when known.
	DisableRequestBody  bool
	DisableResponseBody bool

	// RedactHeaders lists headers whose values are replaced by their sha1.
	// Matching is case insensitive.
	RedactHeaders map[string]bool

	// RedactRequestBodyKeys and RedactResponseBodyKeys are gjson paths of
	// JSON body fields to replace by their sha1, e.g. "user.password" or
	// "items.#.token".
	RedactRequestBodyKeys  []string
	RedactResponseBodyKeys []string

	// List of strings to match against the host of the request URL in order
	// to determine whether or not to record the request. Case sensitive.
	// (by default all domains are recorded)
	AllowedDomains []string

	// IgnorePaths are regular expressions matched against the URL path of
	// requests that should never be recorded.
	IgnorePaths []string

	// SelectRequests selects which requests are recorded.
	// Return true to record the request. Overrides AllowedDomains.
	SelectRequests func(r *http.Request) bool

	// OnError receives diagnostic failures that were swallowed.
	// (by default they are logged through Logger)
	OnError func(error)

	// HTTPClient is the client wrapped into Service.DefaultClient.
	// (defaults to http.DefaultClient)
	HTTPClient *http.Client

	// DisableDefaultWrappedClient leaves Service.DefaultClient nil.
	DisableDefaultWrappedClient bool

	// LogLevel is one of debug, info, warn, error or off.
	// (defaults to the WIRETAP_LOG_LEVEL environment variable, or info)
	LogLevel string

	// LogFile sends logs to a rotated file instead of stderr.
	// (defaults to the WIRETAP_LOG_FILE environment variable)
	LogFile string

	// Logger overrides LogLevel and LogFile.
	Logger *zerolog.Logger

	// Registerer receives the wiretap prometheus collectors.
	// (defaults to a private registry)
	Registerer prometheus.Registerer
}

func (o *Options) parse() (*Options, error) {
	if o == nil {
		o = &Options{}
	} else {
		copy := *o
		o = &copy
	}

	if o.Settings == nil {
		s, err := settingsFromEnv()
		if err != nil {
			return nil, err
		}
		o.Settings = s
	}

	if o.SettingsRefreshInterval < 0 {
		return nil, fmt.Errorf("wiretap: negative SettingsRefreshInterval")
	}
	if o.SettingsRefreshInterval > 0 && o.SettingsRefreshInterval < time.Millisecond {
		return nil, fmt.Errorf("wiretap: SettingsRefreshInterval too small, did you forget to multiply by time.Second?")
	}

	if o.LogLevel == "" {
		o.LogLevel = os.Getenv("WIRETAP_LOG_LEVEL")
	}
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	if o.LogFile == "" {
		o.LogFile = os.Getenv("WIRETAP_LOG_FILE")
	}
	if o.Logger == nil {
		o.Logger = observability.NewLogger(o.LogLevel, o.LogFile)
	}

	if o.Store == nil {
		o.Store = store.NewMemory(0)
	}
	if o.Sink == nil {
		o.Sink = notify.Log(o.Logger)
	}

	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}

	if o.OnError == nil {
		logger := o.Logger
		o.OnError = func(e error) {
			logger.Error().Err(e).Msg("wiretap: diagnostic failure")
		}
	}

	redact := make(map[string]bool, len(o.RedactHeaders))
	for k, v := range o.RedactHeaders {
		redact[strings.ToLower(k)] = v
	}
	o.RedactHeaders = redact

	return o, nil
}

func settingsFromEnv() (*store.Settings, error) {
	debug := os.Getenv("WIRETAP_DEBUG")
	release := os.Getenv("WIRETAP_SHOW_ON_RELEASE")
	debugSet, releaseSet := debug != "", release != ""
	if !debugSet && !releaseSet {
		return nil, nil
	}

	s := &store.Settings{}
	var err error
	if debugSet {
		if s.DebugMode, err = strconv.ParseBool(debug); err != nil {
			return nil, fmt.Errorf("wiretap: invalid WIRETAP_DEBUG: %w", err)
		}
	}
	if releaseSet {
		if s.ShowOnRelease, err = strconv.ParseBool(release); err != nil {
			return nil, fmt.Errorf("wiretap: invalid WIRETAP_SHOW_ON_RELEASE: %w", err)
		}
	}
	return s, nil
}
