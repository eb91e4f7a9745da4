package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// outcome labels
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// error stages
const (
	StageSettings = "settings"
	StageNotify   = "notify"
	StageStore    = "store"
	StagePanic    = "panic"
)

type Metrics struct {
	Records  *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Inflight prometheus.Gauge
}

// NewMetrics registers the wiretap collectors on r, or on a private
// registry when r is nil.
func NewMetrics(r prometheus.Registerer) (*Metrics, error) {
	if r == nil {
		r = prometheus.NewRegistry()
	}
	m := &Metrics{
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wiretap",
			Name:      "records_total",
			Help:      "Intercepted exchanges by client library and outcome",
		}, []string{"client", "outcome"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wiretap",
			Name:      "errors_total",
			Help:      "Swallowed diagnostic failures by stage",
		}, []string{"stage"}),
		Inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wiretap",
			Name:      "inflight_requests",
			Help:      "Requests started but not yet completed",
		}),
	}
	for _, c := range []prometheus.Collector{m.Records, m.Errors, m.Inflight} {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
