package events

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink exports acquisition lifecycle metrics. It owns the
// event-derived collectors: stage counters, completed-fetch durations, and
// row-count distribution.
type PrometheusSink struct {
	stages        *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchRows     prometheus.Histogram
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_events_total",
			Help: "Acquisition lifecycle events partitioned by stage.",
		}, []string{"stage"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "screener_event_fetch_seconds",
			Help:    "End-to-end fetch duration partitioned by result.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"result"}),
		fetchRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_event_fetch_rows",
			Help:    "Rows returned per completed fetch.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.stages,
		s.fetchDuration,
		s.fetchRows,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register event collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from each event in the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []Event) error {
	for _, evt := range batch {
		s.stages.WithLabelValues(string(evt.Stage)).Inc()
		switch evt.Stage {
		case StageFetchDone:
			s.fetchDuration.WithLabelValues("success").Observe(evt.Dur.Seconds())
			s.fetchRows.Observe(float64(evt.Rows))
		case StageFetchFailed:
			s.fetchDuration.WithLabelValues("error").Observe(evt.Dur.Seconds())
		}
	}
	return nil
}

// Close is a no-op; collectors stay registered for the process lifetime.
func (s *PrometheusSink) Close(context.Context) error { return nil }
