// Package metrics exposes Prometheus collectors for the session engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	toolCalls       *prometheus.CounterVec
	reconciliations prometheus.Counter
	submissions     *prometheus.CounterVec
	silenceStages   *prometheus.CounterVec
	dispatchSeconds prometheus.Histogram
	activeSessions  prometheus.Gauge
}

func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewcall",
			Name:      "tool_calls_total",
			Help:      "Tool calls dispatched, by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		reconciliations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reviewcall",
			Name:      "reconciliations_total",
			Help:      "Review record reconciliations applied.",
		}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewcall",
			Name:      "submissions_total",
			Help:      "Record submissions to the HR backend, by result.",
		}, []string{"result"}),
		silenceStages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewcall",
			Name:      "silence_escalations_total",
			Help:      "Silence monitor escalations, by stage.",
		}, []string{"stage"}),
		dispatchSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reviewcall",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of one tool-call batch dispatch.",
			Buckets:   prometheus.DefBuckets,
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reviewcall",
			Name:      "active_sessions",
			Help:      "Sessions with a live call.",
		}),
	}
}

func (c *Collector) ToolCall(tool, outcome string) {
	if c == nil {
		return
	}
	c.toolCalls.WithLabelValues(tool, outcome).Inc()
}

func (c *Collector) Reconciliation() {
	if c == nil {
		return
	}
	c.reconciliations.Inc()
}

func (c *Collector) Submission(result string) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(result).Inc()
}

func (c *Collector) SilenceEscalation(stage string) {
	if c == nil {
		return
	}
	c.silenceStages.WithLabelValues(stage).Inc()
}

func (c *Collector) DispatchDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.dispatchSeconds.Observe(d.Seconds())
}

// Nil collectors are valid and record nothing, so tests can skip wiring one.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.activeSessions.Inc()
}

func (c *Collector) SessionEnded() {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
}
