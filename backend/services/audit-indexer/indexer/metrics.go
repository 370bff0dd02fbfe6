package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the indexer. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Indexed events by event name
	Indexed *prometheus.CounterVec

	// Replayed events skipped by the store
	Duplicates prometheus.Counter

	// Failures by stage: "decode", "store", "publish"
	Errors *prometheus.CounterVec

	LastBlock prometheus.Gauge
}

// NewMetrics registers the indexer metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Indexed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "usdw_indexer_events_total",
			Help: "Total chaincode events indexed by event name",
		}, []string{"event"}),

		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "usdw_indexer_duplicates_total",
			Help: "Total replayed events that were already indexed",
		}),

		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "usdw_indexer_errors_total",
			Help: "Total indexing failures by stage",
		}, []string{"stage"}),

		LastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Name: "usdw_indexer_last_block",
			Help: "Block number of the most recently indexed event",
		}),
	}
}

func (m *Metrics) IncrementIndexed(event string) {
	if m != nil {
		m.Indexed.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) IncrementDuplicate() {
	if m != nil {
		m.Duplicates.Inc()
	}
}

func (m *Metrics) IncrementError(stage string) {
	if m != nil {
		m.Errors.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) SetLastBlock(block uint64) {
	if m != nil {
		m.LastBlock.Set(float64(block))
	}
}
