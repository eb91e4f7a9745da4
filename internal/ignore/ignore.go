package ignore

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Matcher decides which intercepted requests are left out of the history.
type Matcher struct {
	allowedDomains []string
	ignorePaths    []*regexp.Regexp
	selectRequests func(*http.Request) bool
}

// New compiles the ignore rules. selectRequests, when set, overrides
// allowedDomains: it returns true for requests that should be recorded.
func New(allowedDomains, ignorePaths []string, selectRequests func(*http.Request) bool) (*Matcher, error) {
	m := &Matcher{allowedDomains: allowedDomains, selectRequests: selectRequests}
	for _, p := range ignorePaths {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore path %q: %w", p, err)
		}
		m.ignorePaths = append(m.ignorePaths, re)
	}
	return m, nil
}

// ShouldIgnoreRequest reports whether req must not be recorded.
// Requests without a URL are never ignored here; the caller decides what
// to do with them.
func (m *Matcher) ShouldIgnoreRequest(req *http.Request) bool {
	if m == nil || req == nil || req.URL == nil {
		return false
	}

	if m.selectRequests != nil {
		if !m.selectRequests(req) {
			return true
		}
	} else if len(m.allowedDomains) > 0 && !contains(req.URL.Host, m.allowedDomains) {
		return true
	}

	for _, re := range m.ignorePaths {
		if re.MatchString(req.URL.Path) {
			return true
		}
	}
	return false
}

// contains reports whether target contains any of values.
func contains(target string, values []string) bool {
	for _, value := range values {
		if strings.Contains(target, value) {
			return true
		}
	}
	return false
}
