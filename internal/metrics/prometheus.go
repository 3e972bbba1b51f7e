package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"weekly-meal-planner/internal/shared"
)

// Generation outcomes used as metric labels.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeFailed      = "generation_failed"
	OutcomeParseFailed = "parse_failed"
)

// Collector exposes generation counters to Prometheus.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

// NewCollector registers the planner metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_planner_generation_requests_total",
				Help: "Total number of generation requests by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meal_planner_generation_duration_seconds",
				Help:    "Generation request duration in seconds",
				Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 20.0, 30.0, 60.0},
			},
			[]string{"op"},
		),
		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_planner_generation_tokens_total",
				Help: "Tokens consumed by generation requests",
			},
			[]string{"op", "kind"},
		),
	}
}

// Observe records one finished generation call.
func (c *Collector) Observe(meta shared.AgentMeta, outcome string) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(meta.AgentName, outcome).Inc()
	if meta.Latency > 0 {
		c.duration.WithLabelValues(meta.AgentName).Observe(meta.Latency.Seconds())
	}
	c.tokens.WithLabelValues(meta.AgentName, "prompt").Add(float64(meta.Usage.PromptTokens))
	c.tokens.WithLabelValues(meta.AgentName, "completion").Add(float64(meta.Usage.CompletionTokens))
}
