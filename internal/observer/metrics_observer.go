package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsObserver exports pipeline events as Prometheus metrics.
type MetricsObserver struct {
	captures  prometheus.Counter
	analyses  *prometheus.CounterVec
	durations prometheus.Histogram
	resets    prometheus.Counter
}

// NewMetricsObserver creates a metrics observer and registers its collectors
// with the given registerer.
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	o := &MetricsObserver{
		captures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_captures_total",
			Help: "Still frames captured and handed to analysis.",
		}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_analyses_total",
			Help: "Analysis runs by outcome.",
		}, []string{"outcome"}),
		durations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_analysis_duration_seconds",
			Help:    "Wall time of analysis runs.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_session_resets_total",
			Help: "Explicit session resets.",
		}),
	}
	reg.MustRegister(o.captures, o.analyses, o.durations, o.resets)
	return o
}

// OnEvent handles pipeline events by updating the collectors
func (o *MetricsObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	switch event.EventType {
	case CaptureCompleted:
		o.captures.Inc()
	case AnalysisCompleted:
		o.analyses.WithLabelValues("success").Inc()
		o.durations.Observe(event.Duration.Seconds())
	case AnalysisFailed:
		o.analyses.WithLabelValues(string(event.ErrorKind)).Inc()
		o.durations.Observe(event.Duration.Seconds())
	case SessionReset:
		o.resets.Inc()
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}
