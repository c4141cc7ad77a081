package metrics

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/prometheus"
)

/*
Registry wraps the go-ethereum metrics registry. When created disabled all
meters are no-op implementations.

NB! enabling is global for the go-ethereum metrics package and must happen
before the first meter is created.
*/
type Registry struct {
	reg metrics.Registry
}

func NewRegistry(enabled bool) *Registry {
	if enabled {
		metrics.Enabled = true
	}
	return &Registry{reg: metrics.NewRegistry()}
}

func Enabled() bool {
	return metrics.Enabled
}

func (r *Registry) Counter(name string) metrics.Counter {
	return metrics.GetOrRegisterCounter(name, r.reg)
}

func (r *Registry) Gauge(name string) metrics.Gauge {
	return metrics.GetOrRegisterGauge(name, r.reg)
}

func (r *Registry) Timer(name string) metrics.Timer {
	return metrics.GetOrRegisterTimer(name, r.reg)
}

// PrometheusHandler exposes the registry in Prometheus text format.
func (r *Registry) PrometheusHandler() http.Handler {
	return prometheus.Handler(r.reg)
}

// TxMetrics are the meters of the transaction pipeline.
type TxMetrics struct {
	Received  metrics.Counter
	Executed  metrics.Counter
	Failed    metrics.Counter
	Persisted metrics.Counter
	Duration  metrics.Timer
	Units     metrics.Gauge
}

func NewTxMetrics(r *Registry) *TxMetrics {
	return &TxMetrics{
		Received:  r.Counter("riskgate/tx/received"),
		Executed:  r.Counter("riskgate/tx/executed"),
		Failed:    r.Counter("riskgate/tx/failed"),
		Persisted: r.Counter("riskgate/tx/persisted"),
		Duration:  r.Timer("riskgate/tx/duration"),
		Units:     r.Gauge("riskgate/state/units"),
	}
}

// Observe records the outcome of a transaction which started at "start".
func (m *TxMetrics) Observe(start time.Time, err error) {
	m.Duration.UpdateSince(start)
	if err != nil {
		m.Failed.Inc(1)
		return
	}
	m.Executed.Inc(1)
}
