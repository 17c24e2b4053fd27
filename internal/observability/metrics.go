package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voicecursor"

// Metrics holds the pipeline collectors. A nil *Metrics is a no-op.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageTotal    *prometheus.CounterVec
	pipelineRuns  *prometheus.CounterVec
	toolTokens    *prometheus.CounterVec
	costUSD       prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Histogram of pipeline stage duration in seconds",
				Buckets:   []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		stageTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_total",
				Help:      "Total number of stage executions",
			},
			[]string{"stage", "status"}, // status: success, error
		),
		pipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of pipeline runs",
			},
			[]string{"status"},
		),
		toolTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_tokens_total",
				Help:      "Total tokens consumed by tool calls",
			},
			[]string{"tool"},
		),
		costUSD: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cost_usd_total",
				Help:      "Estimated provider cost in USD",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.stageDuration, m.stageTotal, m.pipelineRuns, m.toolTokens, m.costUSD)
	}
	return m
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *Metrics) observeStage(stage string, seconds float64, success bool) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
	m.stageTotal.WithLabelValues(stage, status(success)).Inc()
}

func (m *Metrics) observeTool(name string, tokens int, cost float64) {
	if m == nil {
		return
	}
	if tokens > 0 {
		m.toolTokens.WithLabelValues(name).Add(float64(tokens))
	}
	if cost > 0 {
		m.costUSD.Add(cost)
	}
}

func (m *Metrics) observeRun(success bool) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(status(success)).Inc()
}

// Replay feeds saved records into the collectors, so a fresh process can
// expose totals for runs it did not execute.
func (m *Metrics) Replay(records []Record) {
	if m == nil {
		return
	}
	for _, r := range records {
		for _, a := range r.Agents {
			m.observeStage(a.Stage, a.LatencyMS/1000, a.Success)
		}
		for _, t := range r.Tools {
			m.observeTool(t.Name, t.Tokens, t.CostUSD)
		}
		m.observeRun(r.Success)
	}
}
