package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Record outcomes used as metric label values.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeAborted  = "aborted"
)

// Metrics holds the collectors updated by a Processor.
type Metrics struct {
	// Records counts processed records by outcome.
	Records *prometheus.CounterVec
	// Nodes counts nodes handed to the persister.
	Nodes prometheus.Counter
	// Merged counts duplicate nodes merged away.
	Merged prometheus.Counter
	// Duration observes the time spent on each record.
	Duration prometheus.Histogram
}

// NewMetrics creates the pipeline collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharegraph_records_total",
				Help: "Total number of records processed, by outcome",
			},
			[]string{"outcome"},
		),
		Nodes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sharegraph_nodes_persisted_total",
				Help: "Total number of graph nodes handed to the persister",
			},
		),
		Merged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sharegraph_nodes_merged_total",
				Help: "Total number of duplicate nodes merged during regulation",
			},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sharegraph_record_duration_seconds",
				Help:    "Time spent processing one record",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Records, m.Nodes, m.Merged, m.Duration)
	}
	return m
}

func (m *Metrics) observe(res *Result, outcome string) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(outcome).Inc()
	m.Duration.Observe(res.Duration.Seconds())
	if outcome == OutcomeOK {
		m.Nodes.Add(float64(len(res.Nodes)))
		m.Merged.Add(float64(res.Merged))
	}
}
