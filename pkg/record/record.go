// Package record defines the persisted form of one captured HTTP exchange.
package record

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Record is a snapshot of one HTTP request and its outcome.
// It is written once and only Checked changes afterwards.
type Record struct {
	ID      string `json:"id"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	BaseURL string `json:"baseUrl"`

	RequestTime  time.Time `json:"requestTime"`
	ResponseTime time.Time `json:"responseTime"`
	DurationMs   int64     `json:"durationMs"`

	RequestHeaders  Headers           `json:"requestHeaders"`
	QueryParameters map[string]string `json:"queryParameters"`
	RequestBody     any               `json:"requestBody"`
	RequestSize     int64             `json:"requestSizeBytes"`

	StatusCode      int     `json:"statusCode"`
	ResponseHeaders Headers `json:"responseHeaders"`
	ResponseBody    any     `json:"responseBody"`
	ResponseSize    int64   `json:"responseSizeBytes"`
	ResponseType    string  `json:"responseType"`

	ContentType   string `json:"contentType,omitempty"`
	ClientLibrary string `json:"clientLibrary"`
	Error         string `json:"error,omitempty"`
	Checked       bool   `json:"checked"`
}

// Latency is the time between handing the request to the transport and
// observing its outcome.
func (r *Record) Latency() time.Duration {
	return r.ResponseTime.Sub(r.RequestTime)
}

// HeadersFromHTTP flattens h in canonical key order, joining repeated values.
func HeadersFromHTTP(h http.Header) Headers {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ret := make(Headers, 0, len(keys))
	for _, k := range keys {
		ret = append(ret, Header{Name: k, Value: strings.Join(h[k], ", ")})
	}
	return ret
}

// QueryFromURL flattens the query string of u, joining repeated values.
func QueryFromURL(u *url.URL) map[string]string {
	ret := map[string]string{}
	if u == nil {
		return ret
	}
	for k, vs := range u.Query() {
		ret[k] = strings.Join(vs, ", ")
	}
	return ret
}

// BaseURL returns scheme://host for u.
func BaseURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	if u.Scheme == "" {
		return u.Host
	}
	return u.Scheme + "://" + u.Host
}
