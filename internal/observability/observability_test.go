package observability

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func Test_ParseLevel(t *testing.T) {
	require.Equal(t, zerolog.TraceLevel, ParseLevel("trace"))
	require.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	require.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	require.Equal(t, zerolog.Disabled, ParseLevel("off"))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func Test_NewLogger(t *testing.T) {
	l := NewLogger("warn", filepath.Join(t.TempDir(), "wiretap.log"))
	require.Equal(t, zerolog.WarnLevel, l.GetLevel())
	l.Warn().Msg("rotating file output")
}

func Test_NewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.Records.WithLabelValues("net/http", OutcomeCompleted).Inc()
	m.Errors.WithLabelValues(StageStore).Add(2)
	require.Equal(t, float64(1), testutil.ToFloat64(m.Records.WithLabelValues("net/http", OutcomeCompleted)))
	require.Equal(t, float64(2), testutil.ToFloat64(m.Errors.WithLabelValues(StageStore)))

	_, err = NewMetrics(reg)
	require.Error(t, err, "collectors are registered once per registry")

	_, err = NewMetrics(nil)
	require.NoError(t, err)
}
