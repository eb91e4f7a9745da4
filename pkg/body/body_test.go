package body

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

type failingCloser struct {
	io.Reader
	closed bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return nil
}

func Test_Normalize(t *testing.T) {
	t.Run("json bytes", func(t *testing.T) {
		res := Normalize([]byte(`{"name":"Ann"}`))
		require.Equal(t, KindJSON, res.Kind)
		require.Equal(t, map[string]any{"name": "Ann"}, res.Value)
		require.Equal(t, int64(14), res.Size)
	})

	t.Run("plain text string", func(t *testing.T) {
		res := Normalize("hello world")
		require.Equal(t, KindText, res.Kind)
		require.Equal(t, "hello world", res.Value)
		require.Equal(t, int64(11), res.Size)
	})

	t.Run("broken json falls back to raw text", func(t *testing.T) {
		res := Normalize(`{"name":`)
		require.Equal(t, KindText, res.Kind)
		require.Equal(t, `{"name":`, res.Value)
	})

	t.Run("json array from stream", func(t *testing.T) {
		res := Normalize(iotest.OneByteReader(strings.NewReader(`[1,2,3]`)))
		require.Equal(t, KindJSON, res.Kind)
		require.Equal(t, []any{json.Number("1"), json.Number("2"), json.Number("3")}, res.Value)
		require.Equal(t, int64(7), res.Size)
	})

	t.Run("large integers keep their precision", func(t *testing.T) {
		res := Normalize([]byte(`{"id":12345678901234567890}`))
		require.Equal(t, KindJSON, res.Kind)
		require.Equal(t, map[string]any{"id": json.Number("12345678901234567890")}, res.Value)

		b, err := json.Marshal(res.Value)
		require.NoError(t, err)
		require.Equal(t, `{"id":12345678901234567890}`, string(b))
	})

	t.Run("trailing data is text", func(t *testing.T) {
		res := Normalize(`{"a":1} {"b":2}`)
		require.Equal(t, KindText, res.Kind)
		require.Equal(t, `{"a":1} {"b":2}`, res.Value)
	})

	t.Run("nil and empty", func(t *testing.T) {
		for _, v := range []any{nil, []byte{}, "", http.NoBody} {
			res := Normalize(v)
			require.Equal(t, KindEmpty, res.Kind)
			require.Equal(t, "", res.Value)
			require.Zero(t, res.Size)
		}
	})

	t.Run("invalid utf-8 becomes placeholder", func(t *testing.T) {
		res := Normalize([]byte{0xff, 0x00, 0xfe})
		require.Equal(t, KindInvalid, res.Kind)
		require.Contains(t, res.Value, "invalid UTF-8")
		require.Equal(t, int64(3), res.Size)
	})

	t.Run("stream error becomes placeholder", func(t *testing.T) {
		r := io.MultiReader(strings.NewReader("part"), iotest.ErrReader(errors.New("connection reset")))
		res := Normalize(r)
		require.Equal(t, KindInvalid, res.Kind)
		require.Contains(t, res.Value, "connection reset")
		require.Equal(t, int64(4), res.Size)
	})

	t.Run("structured value passes through", func(t *testing.T) {
		v := map[string]any{"id": 5}
		res := Normalize(v)
		require.Equal(t, KindStructured, res.Kind)
		require.Equal(t, v, res.Value)
		require.Equal(t, int64(8), res.Size)
	})

	t.Run("unencodable structured value reports zero size", func(t *testing.T) {
		res := Normalize(map[string]any{"ch": make(chan int)})
		require.Equal(t, KindStructured, res.Kind)
		require.Zero(t, res.Size)
	})

	t.Run("nil reader does not panic", func(t *testing.T) {
		var r *bytes.Buffer
		var res Result
		require.NotPanics(t, func() { res = Normalize(io.Reader(r)) })
		require.GreaterOrEqual(t, res.Size, int64(0))
	})

	t.Run("transform applies to json only", func(t *testing.T) {
		upper := func(b []byte) []byte { return bytes.ToUpper(b) }
		require.Equal(t, map[string]any{"A": "B"}, NormalizeWith(`{"a":"b"}`, upper).Value)
		require.Equal(t, "a b", NormalizeWith("a b", upper).Value)
	})
}

func Test_Duplicate(t *testing.T) {
	t.Run("replays drained bytes", func(t *testing.T) {
		src := &failingCloser{Reader: strings.NewReader(`{"ok":true}`)}
		res, rc := Duplicate(src, nil)
		require.Equal(t, map[string]any{"ok": true}, res.Value)
		require.Equal(t, int64(11), res.Size)

		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, `{"ok":true}`, string(b))
		require.NoError(t, rc.Close())
		require.True(t, src.closed)
	})

	t.Run("replays bytes then the original error", func(t *testing.T) {
		boom := errors.New("unexpected EOF")
		src := &failingCloser{Reader: io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(boom))}
		res, rc := Duplicate(src, nil)
		require.Equal(t, KindInvalid, res.Kind)
		require.Equal(t, int64(3), res.Size)

		b, err := io.ReadAll(rc)
		require.ErrorIs(t, err, boom)
		require.Equal(t, "abc", string(b))
	})

	t.Run("no body", func(t *testing.T) {
		res, rc := Duplicate(http.NoBody, nil)
		require.Equal(t, KindEmpty, res.Kind)
		require.Equal(t, http.NoBody, rc)

		res, rc = Duplicate(nil, nil)
		require.Equal(t, KindEmpty, res.Kind)
		require.Nil(t, rc)
	})
}

type countingReader struct {
	r     io.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}

func Test_Capture(t *testing.T) {
	t.Run("records only what the consumer read", func(t *testing.T) {
		src := &countingReader{r: strings.NewReader(`{"a":1}`)}
		c := NewCapture(io.NopCloser(src))
		require.Zero(t, src.reads)
		require.Equal(t, KindEmpty, c.Result(nil).Kind)

		b, err := io.ReadAll(c)
		require.NoError(t, err)
		require.Equal(t, `{"a":1}`, string(b))

		res := c.Result(nil)
		require.Equal(t, map[string]any{"a": json.Number("1")}, res.Value)
		require.Equal(t, int64(7), res.Size)
	})

	t.Run("keeps the read error", func(t *testing.T) {
		boom := errors.New("producer failed")
		c := NewCapture(io.NopCloser(io.MultiReader(strings.NewReader("ab"), iotest.ErrReader(boom))))
		_, err := io.ReadAll(c)
		require.ErrorIs(t, err, boom)

		res := c.Result(nil)
		require.Equal(t, KindInvalid, res.Kind)
		require.Contains(t, res.Value, "producer failed")
		require.Equal(t, int64(2), res.Size)
	})
}
