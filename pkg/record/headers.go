package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

type Header struct {
	Name  string
	Value string
}

// Headers is an ordered string to string mapping. It encodes as a JSON
// object and keeps the order of the document when decoded.
type Headers []Header

// Get returns the first value for name, matched case-insensitively.
func (h Headers) Get(name string) string {
	for _, kv := range h {
		if strings.EqualFold(kv.Name, name) {
			return kv.Value
		}
	}
	return ""
}

func (h Headers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (h *Headers) UnmarshalJSON(b []byte) error {
	res := gjson.ParseBytes(b)
	if res.Type == gjson.Null {
		*h = nil
		return nil
	}
	if !res.IsObject() {
		return fmt.Errorf("record: headers must be a JSON object, got %s", res.Type)
	}
	out := Headers{}
	res.ForEach(func(key, value gjson.Result) bool {
		out = append(out, Header{Name: key.String(), Value: value.String()})
		return true
	})
	*h = out
	return nil
}
