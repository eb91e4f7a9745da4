package wiretap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/supergoodsystems/wiretap/internal/observability"
	"github.com/supergoodsystems/wiretap/internal/shared"
	"github.com/supergoodsystems/wiretap/pkg/body"
	"github.com/supergoodsystems/wiretap/pkg/notify"
	"github.com/supergoodsystems/wiretap/pkg/record"
)

// overridden in tests
var Clock = time.Now

var (
	// ErrDiagnosticsDisabled is the reason logged when settings turn recording off.
	ErrDiagnosticsDisabled = errors.New("wiretap: diagnostics disabled")
	// ErrMissingRequestContext is the reason logged when an error arrives
	// without the request it belongs to.
	ErrMissingRequestContext = errors.New("wiretap: missing request context")
)

// Exchange is the state of one in-flight request. It lives on the request
// (or the adapter's stack), never on the Session, so concurrent requests
// cannot overwrite each other's start time.
type Exchange struct {
	ID    string
	Start time.Time

	// copy of the request body as the transport reads it, when it cannot be
	// re-read through GetBody
	capture *body.Capture
	// set by the first completion; later ones are ignored
	finished atomic.Bool
}

type exchangeKey struct{}

// ExchangeFrom returns the exchange attached to ctx by OnRequestStart.
func ExchangeFrom(ctx context.Context) (*Exchange, bool) {
	ex, ok := ctx.Value(exchangeKey{}).(*Exchange)
	return ex, ok
}

// Session correlates requests with their outcome and records one Record per
// completed or failed request. A Session is safe for concurrent use.
type Session struct {
	svc           *Service
	clientLibrary string
}

// ClientLibrary is the tag stamped on this session's records.
func (s *Session) ClientLibrary() string {
	return s.clientLibrary
}

// OnRequestStart captures the start time of req. The returned request
// carries the exchange in its context and must be the one sent; its
// method, URL, headers and body content are those of req.
func (s *Session) OnRequestStart(req *http.Request) (out *http.Request) {
	if req == nil {
		return nil
	}
	out = req
	defer s.recoverTo("start")

	ex, sent := s.start(req)
	return sent.WithContext(context.WithValue(sent.Context(), exchangeKey{}, ex))
}

// OnRequestSuccess records the exchange of req and resp and returns resp.
// If req is nil, resp.Request is used.
func (s *Session) OnRequestSuccess(req *http.Request, resp *http.Response) *http.Response {
	if req == nil && resp != nil {
		req = resp.Request
	}
	s.finish(s.exchangeOf(req), req, resp, nil)
	return resp
}

// OnRequestError records a failed exchange. req may be nil, in which case
// nothing is recorded. resp is the response associated with the error, if
// any.
func (s *Session) OnRequestError(req *http.Request, resp *http.Response, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	s.finish(s.exchangeOf(req), req, resp, err)
}

func (s *Session) exchangeOf(req *http.Request) *Exchange {
	if req == nil {
		return nil
	}
	ex, _ := ExchangeFrom(req.Context())
	return ex
}

// start stamps a new exchange. When the request body cannot be re-read
// through GetBody and diagnostics are active, a shallow copy is returned
// whose body keeps what the transport reads. Nothing is read here.
func (s *Session) start(req *http.Request) (*Exchange, *http.Request) {
	ex := &Exchange{ID: uuid.NewString(), Start: Clock()}
	s.svc.metrics.Inflight.Inc()

	if s.svc.options.DisableRequestBody || req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return ex, req
	}
	if st, err := s.svc.settings.Settings(req.Context()); err != nil || !st.Active() {
		return ex, req
	}
	ex.capture = body.NewCapture(req.Body)
	sent := *req
	sent.Body = ex.capture
	return ex, &sent
}

func (s *Session) finish(ex *Exchange, req *http.Request, resp *http.Response, failure error) {
	observed := Clock()
	if ex != nil {
		if !ex.finished.CompareAndSwap(false, true) {
			s.svc.log.Debug().Str("id", ex.ID).Msg("wiretap: exchange already completed")
			return
		}
		defer s.svc.metrics.Inflight.Dec()
	}
	outcome := observability.OutcomeSkipped
	defer func() {
		s.svc.metrics.Records.WithLabelValues(s.clientLibrary, outcome).Inc()
	}()
	defer s.recoverTo("finish")

	ctx := context.Background()
	if req != nil {
		// the caller may cancel its context as soon as it has the response
		ctx = context.WithoutCancel(req.Context())
	}

	st, err := s.svc.settings.Settings(ctx)
	if err != nil {
		s.fail(observability.StageSettings, fmt.Errorf("wiretap: load settings: %w", err))
		return
	}
	if !st.Active() {
		s.svc.log.Trace().Err(ErrDiagnosticsDisabled).Msg("wiretap: exchange skipped")
		return
	}

	if req == nil {
		s.svc.log.Debug().Err(ErrMissingRequestContext).AnErr("cause", failure).Msg("wiretap: exchange skipped")
		return
	}
	if failure != nil && isCancellation(req, failure) {
		s.svc.log.Debug().Err(failure).Msg("wiretap: cancelled exchange skipped")
		return
	}
	if s.svc.matcher.ShouldIgnoreRequest(req) {
		return
	}

	if ex == nil {
		s.svc.log.Warn().Str("client", s.clientLibrary).Msg("wiretap: response without a recorded start, latency will be zero")
		ex = &Exchange{ID: uuid.NewString(), Start: observed}
	}

	method, path, baseURL := identify(req)
	status := shared.NoStatus
	if resp != nil {
		status = resp.StatusCode
	}

	n := notify.Notification{Method: method, StatusCode: status, Path: path, RequestTime: ex.Start}
	if err := s.safely(func() error { return s.svc.options.Sink.Show(ctx, n) }); err != nil {
		s.fail(observability.StageNotify, fmt.Errorf("wiretap: notify: %w", err))
	}

	rec := &record.Record{
		ID:              ex.ID,
		Method:          method,
		Path:            path,
		BaseURL:         baseURL,
		RequestTime:     ex.Start,
		ResponseTime:    observed,
		RequestHeaders:  s.svc.redactor.Headers(req.Header),
		QueryParameters: record.QueryFromURL(req.URL),
		StatusCode:      status,
		ClientLibrary:   s.clientLibrary,
	}
	rec.DurationMs = rec.Latency().Milliseconds()

	reqBody := s.requestBody(ex, req)
	rec.RequestBody, rec.RequestSize = reqBody.Value, reqBody.Size

	if resp != nil {
		rec.ResponseHeaders = s.svc.redactor.Headers(resp.Header)
		respBody := s.responseBody(resp)
		rec.ResponseBody, rec.ResponseSize, rec.ResponseType = respBody.Value, respBody.Size, string(respBody.Kind)
		rec.ContentType = resp.Header.Get("Content-Type")
	}
	if rec.ContentType == "" {
		rec.ContentType = req.Header.Get("Content-Type")
	}

	outcome = observability.OutcomeCompleted
	if failure != nil {
		outcome = observability.OutcomeFailed
		rec.Error = failure.Error()
		if resp == nil {
			rec.ResponseBody, rec.ResponseType = failure.Error(), "error"
		}
	}

	if err := s.safely(func() error { return s.svc.options.Store.AddRecord(ctx, rec) }); err != nil {
		s.fail(observability.StageStore, fmt.Errorf("wiretap: store record %s: %w", rec.ID, err))
		return
	}

	s.svc.log.Debug().
		Str("id", rec.ID).
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Str("outcome", outcome).
		Str("client", s.clientLibrary).
		Int64("durationMs", rec.DurationMs).
		Msg("wiretap: exchange recorded")
}

func (s *Session) requestBody(ex *Exchange, req *http.Request) body.Result {
	switch {
	case s.svc.options.DisableRequestBody:
		return body.Result{Value: "", Size: max(req.ContentLength, 0), Kind: body.KindEmpty}
	case ex.capture != nil:
		return ex.capture.Result(s.svc.redactor.RequestBody())
	case req.Body == nil || req.Body == http.NoBody:
		return body.Result{Value: "", Kind: body.KindEmpty}
	case req.GetBody != nil:
		rc, err := req.GetBody()
		if err != nil {
			return body.Result{Value: body.Placeholder(err), Size: max(req.ContentLength, 0), Kind: body.KindInvalid}
		}
		defer rc.Close()
		return body.NormalizeWith(rc, s.svc.redactor.RequestBody())
	default:
		err := errors.New("request body was consumed before it could be captured")
		return body.Result{Value: body.Placeholder(err), Size: max(req.ContentLength, 0), Kind: body.KindInvalid}
	}
}

// responseBody drains resp.Body once and puts back a reader replaying it.
func (s *Session) responseBody(resp *http.Response) body.Result {
	if s.svc.options.DisableResponseBody {
		return body.Result{Value: "", Size: max(resp.ContentLength, 0), Kind: body.KindEmpty}
	}
	res, rc := body.Duplicate(resp.Body, s.svc.redactor.ResponseBody())
	if resp.Body != nil {
		resp.Body = rc
	}
	return res
}

// identify extracts method, path and base URL, substituting UNKNOWN for
// what cannot be read.
func identify(req *http.Request) (method, path, baseURL string) {
	method = req.Method
	if req.URL == nil {
		if method == "" {
			method = shared.Unknown
		}
		return method, shared.Unknown, shared.Unknown
	}
	if method == "" {
		method = http.MethodGet
	}
	path = req.URL.Path
	if path == "" {
		path = "/"
	}
	return method, path, record.BaseURL(req.URL)
}

func isCancellation(req *http.Request, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(req.Context().Err(), context.Canceled)
}

// safely runs fn, turning a panic into an error.
func (s *Session) safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (s *Session) recoverTo(stage string) {
	if r := recover(); r != nil {
		s.fail(observability.StagePanic, fmt.Errorf("wiretap: recovered panic in %s: %v", stage, r))
	}
}

func (s *Session) fail(stage string, err error) {
	s.svc.metrics.Errors.WithLabelValues(stage).Inc()
	s.svc.log.Warn().Err(err).Str("stage", stage).Str("client", s.clientLibrary).Msg("wiretap: diagnostic failure")
	s.svc.handleError(err)
}
