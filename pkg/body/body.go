// Package body converts request and response payloads into JSON-safe values.
//
// Payloads may arrive as raw bytes, strings, streams or values that were
// already decoded by the caller. Normalization never fails: content that is
// not valid UTF-8, or a stream that breaks while being drained, becomes a
// placeholder string describing the problem.
package body

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Kind describes what a normalized body turned out to be.
type Kind string

const (
	KindEmpty      Kind = "empty"
	KindJSON       Kind = "json"
	KindText       Kind = "text"
	KindInvalid    Kind = "invalid"
	KindStructured Kind = "structured"
)

// Result is a normalized body.
// Size is the number of bytes actually read and is never negative.
type Result struct {
	Value any
	Size  int64
	Kind  Kind
}

// Transform rewrites a valid JSON payload before it is decoded.
type Transform func([]byte) []byte

// Normalize converts v into a JSON-safe value.
func Normalize(v any) Result {
	return NormalizeWith(v, nil)
}

// NormalizeWith is Normalize with a transform applied to JSON payloads.
func NormalizeWith(v any, t Transform) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Value: Placeholder(fmt.Errorf("%v", r)), Kind: KindInvalid}
		}
	}()

	switch b := v.(type) {
	case nil:
		return Result{Value: "", Kind: KindEmpty}
	case []byte:
		return fromBytes(b, nil, t)
	case json.RawMessage:
		return fromBytes(b, nil, t)
	case string:
		return fromBytes([]byte(b), nil, t)
	case io.Reader:
		data, err := io.ReadAll(b)
		return fromBytes(data, err, t)
	default:
		var size int64
		if enc, err := json.Marshal(b); err == nil {
			size = int64(len(enc))
		}
		return Result{Value: b, Size: size, Kind: KindStructured}
	}
}

// Duplicate drains rc once and returns its normalized form together with a
// reader replaying the same bytes. If draining failed, the replay reader
// returns the original error once the bytes read so far are consumed.
func Duplicate(rc io.ReadCloser, t Transform) (Result, io.ReadCloser) {
	if rc == nil || rc == http.NoBody {
		return Result{Value: "", Kind: KindEmpty}, rc
	}

	b, err := io.ReadAll(rc)
	replay := &readCloser{c: rc, r: bytes.NewReader(b), e: err}
	return fromBytes(b, err, t), replay
}

// Placeholder is the string recorded in place of a body that could not be decoded.
func Placeholder(err error) string {
	return fmt.Sprintf("<body unavailable: %v>", err)
}

func fromBytes(b []byte, readErr error, t Transform) Result {
	size := int64(len(b))
	if readErr != nil {
		return Result{Value: Placeholder(readErr), Size: size, Kind: KindInvalid}
	}
	if len(b) == 0 {
		return Result{Value: "", Kind: KindEmpty}
	}
	if !utf8.Valid(b) {
		err := fmt.Errorf("invalid UTF-8 in %d bytes", len(b))
		return Result{Value: Placeholder(err), Size: size, Kind: KindInvalid}
	}

	if gjson.ValidBytes(b) {
		if t != nil {
			b = t(b)
		}
		if v, err := decodeJSON(b); err == nil {
			return Result{Value: v, Size: size, Kind: KindJSON}
		}
	}
	return Result{Value: string(b), Size: size, Kind: KindText}
}

// decodeJSON decodes a single JSON value, keeping numbers as json.Number so
// integers beyond float64 precision survive.
func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// Capture passes reads through to rc and keeps a copy of every byte read, so
// a body consumed by someone else can be normalized afterwards. Nothing is
// read ahead of the consumer.
type Capture struct {
	rc io.ReadCloser

	mu  sync.Mutex
	buf bytes.Buffer
	err error
}

// NewCapture wraps rc.
func NewCapture(rc io.ReadCloser) *Capture {
	return &Capture{rc: rc}
}

func (c *Capture) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	c.mu.Lock()
	c.buf.Write(p[:n])
	if err != nil && err != io.EOF && c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
	return n, err
}

func (c *Capture) Close() error {
	return c.rc.Close()
}

// Result normalizes the bytes read so far. The consumer may still be reading.
func (c *Capture) Result(t Transform) Result {
	c.mu.Lock()
	b := bytes.Clone(c.buf.Bytes())
	err := c.err
	c.mu.Unlock()
	return fromBytes(b, err, t)
}

type readCloser struct {
	c io.ReadCloser
	r *bytes.Reader
	e error
}

func (rc *readCloser) Read(b []byte) (int, error) {
	n, err := rc.r.Read(b)
	if err == io.EOF && rc.e != nil {
		return n, rc.e
	}
	return n, err
}

func (rc *readCloser) Close() error {
	return rc.c.Close()
}
