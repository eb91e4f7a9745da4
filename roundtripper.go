package wiretap

import (
	"net/http"
)

type roundTripper struct {
	session *Session
	next    http.RoundTripper
}

// RoundTrip hands req to next unchanged and records the exchange after the
// response headers arrive. The response and error of next are returned as is.
func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.session.svc.matcher.ShouldIgnoreRequest(req) {
		return rt.next.RoundTrip(req)
	}

	sent := rt.session.OnRequestStart(req)
	resp, err := rt.next.RoundTrip(sent)
	if resp != nil && resp.Request == sent {
		// callers expect the request they passed in
		resp.Request = req
	}

	rt.session.finish(rt.session.exchangeOf(sent), sent, resp, err)
	return resp, err
}
