// Package redact hides sensitive header values and JSON body fields before a
// record is stored. Redacted values are replaced by the sha1 of their
// contents so equal secrets remain comparable.
package redact

import (
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/supergoodsystems/wiretap/internal/shared"
	"github.com/supergoodsystems/wiretap/pkg/body"
	"github.com/supergoodsystems/wiretap/pkg/record"
)

// Redactor applies a fixed set of redaction rules.
// Body keys are gjson paths; a "#" segment matches every array element,
// e.g. "items.#.token".
type Redactor struct {
	headers      map[string]bool
	requestKeys  []string
	responseKeys []string
}

// New creates a Redactor. Header names are matched case-insensitively.
func New(headers map[string]bool, requestBodyKeys, responseBodyKeys []string) *Redactor {
	h := make(map[string]bool, len(headers))
	for k, v := range headers {
		h[strings.ToLower(k)] = v
	}
	return &Redactor{headers: h, requestKeys: requestBodyKeys, responseKeys: responseBodyKeys}
}

// Hash returns the redacted form of v.
func Hash(v string) string {
	sha := sha1.Sum([]byte(v))
	return shared.RedactedPrefix + hex.EncodeToString(sha[:])
}

// Headers flattens h, hashing the values of sensitive headers.
func (r *Redactor) Headers(h http.Header) record.Headers {
	ret := record.HeadersFromHTTP(h)
	if r == nil {
		return ret
	}
	for i, kv := range ret {
		if r.headers[strings.ToLower(kv.Name)] {
			ret[i].Value = Hash(kv.Value)
		}
	}
	return ret
}

// RequestBody returns the transform for request payloads, or nil.
func (r *Redactor) RequestBody() body.Transform {
	if r == nil || len(r.requestKeys) == 0 {
		return nil
	}
	return func(b []byte) []byte { return Paths(b, r.requestKeys) }
}

// ResponseBody returns the transform for response payloads, or nil.
func (r *Redactor) ResponseBody() body.Transform {
	if r == nil || len(r.responseKeys) == 0 {
		return nil
	}
	return func(b []byte) []byte { return Paths(b, r.responseKeys) }
}

// Paths hashes the value at every path present in the JSON document b.
// Paths that do not exist are ignored.
func Paths(b []byte, paths []string) []byte {
	for _, p := range paths {
		for _, concrete := range expand(b, p) {
			res := gjson.GetBytes(b, concrete)
			if !res.Exists() {
				continue
			}
			out, err := sjson.SetBytes(b, concrete, Hash(res.String()))
			if err != nil {
				continue
			}
			b = out
		}
	}
	return b
}

// expand resolves "#" segments against the arrays present in b.
func expand(b []byte, path string) []string {
	segs := strings.Split(path, ".")
	for i, s := range segs {
		if s != "#" {
			continue
		}
		prefix := strings.Join(segs[:i], ".")
		countPath := "#"
		if prefix != "" {
			countPath = prefix + ".#"
		}
		n := int(gjson.GetBytes(b, countPath).Int())
		var out []string
		for j := 0; j < n; j++ {
			next := append(append([]string{}, segs[:i]...), strconv.Itoa(j))
			next = append(next, segs[i+1:]...)
			out = append(out, expand(b, strings.Join(next, "."))...)
		}
		return out
	}
	return []string{path}
}
