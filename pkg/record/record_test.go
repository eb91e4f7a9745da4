package record

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Headers(t *testing.T) {
	t.Run("keeps insertion order through JSON", func(t *testing.T) {
		h := Headers{{"X-Zeta", "1"}, {"Accept", "a, b"}, {"X-Alpha", "2"}}
		b, err := json.Marshal(h)
		require.NoError(t, err)
		require.Equal(t, `{"X-Zeta":"1","Accept":"a, b","X-Alpha":"2"}`, string(b))

		var back Headers
		require.NoError(t, json.Unmarshal(b, &back))
		require.Equal(t, h, back)
	})

	t.Run("rejects non-objects", func(t *testing.T) {
		var h Headers
		require.Error(t, json.Unmarshal([]byte(`["a"]`), &h))
		require.NoError(t, json.Unmarshal([]byte(`null`), &h))
		require.Nil(t, h)
	})

	t.Run("get is case insensitive", func(t *testing.T) {
		h := HeadersFromHTTP(http.Header{"Content-Type": {"application/json"}, "X-Multi": {"a", "b"}})
		require.Equal(t, "application/json", h.Get("content-type"))
		require.Equal(t, "a, b", h.Get("X-MULTI"))
		require.Equal(t, "", h.Get("missing"))
		require.Equal(t, "Content-Type", h[0].Name)
	})
}

func Test_URLHelpers(t *testing.T) {
	u, err := url.Parse("https://api.example.com:8443/users?id=5&tag=a&tag=b")
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com:8443", BaseURL(u))
	require.Equal(t, map[string]string{"id": "5", "tag": "a, b"}, QueryFromURL(u))
	require.Equal(t, map[string]string{}, QueryFromURL(nil))
	require.Equal(t, "", BaseURL(nil))
}

func Test_Latency(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Record{RequestTime: start, ResponseTime: start.Add(1500 * time.Millisecond)}
	require.Equal(t, 1500*time.Millisecond, r.Latency())
}
