package wiretap

import (
	"net/http"
)

// Hooks exposes the interception points to interceptor-style clients that
// cannot take an http.RoundTripper. Records are tagged "interceptor".
//
// OnRequest must be called before the request is sent and its return value
// sent in place of the original; OnResponse or OnError must be called once
// with that request or a response carrying it.
type Hooks struct {
	session *Session
}

// OnRequest starts timing req.
func (h *Hooks) OnRequest(req *http.Request) *http.Request {
	return h.session.OnRequestStart(req)
}

// OnResponse records a completed exchange. resp.Request identifies it.
func (h *Hooks) OnResponse(resp *http.Response) *http.Response {
	if resp == nil {
		return nil
	}
	return h.session.OnRequestSuccess(resp.Request, resp)
}

// OnError records a failed exchange. When req is nil the request of resp
// is used; with neither, nothing is recorded.
func (h *Hooks) OnError(req *http.Request, resp *http.Response, err error) {
	if req == nil && resp != nil {
		req = resp.Request
	}
	h.session.OnRequestError(req, resp, err)
}
