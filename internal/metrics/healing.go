// Package metrics exposes prometheus instruments for the healing chain.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"locator-healing/internal/entity"
)

const namespace = "locator_healing"

const (
	ResultResolved = "resolved"
	ResultMissed   = "missed"
	ResultError    = "error"
	ResultSkipped  = "skipped"

	outcomeExhausted = "exhausted"
)

// Healing is safe to use as a nil pointer; every method is then a no-op.
type Healing struct {
	outcomes *prometheus.CounterVec
	attempts *prometheus.CounterVec
	learned  prometheus.Counter
	duration prometheus.Histogram
}

func NewHealing(reg prometheus.Registerer) *Healing {
	h := &Healing{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heals_total",
			Help:      "Heal calls by the strategy that resolved them, or exhausted.",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Resolution attempts per strategy and result.",
		}, []string{"strategy", "result"}),
		learned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "learned_total",
			Help:      "Substitute locators written to the healing history.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "heal_duration_seconds",
			Help:      "Wall time of a heal call.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	reg.MustRegister(h.outcomes, h.attempts, h.learned, h.duration)

	return h
}

func (h *Healing) ObserveAttempt(strategy entity.Strategy, result string) {
	if h == nil {
		return
	}

	h.attempts.WithLabelValues(string(strategy), result).Inc()
}

func (h *Healing) ObserveOutcome(resolution entity.Resolution, elapsed time.Duration) {
	if h == nil {
		return
	}

	outcome := outcomeExhausted
	if resolution.IsResolved() {
		outcome = string(resolution.Strategy)
	}

	h.outcomes.WithLabelValues(outcome).Inc()
	h.duration.Observe(elapsed.Seconds())
}

func (h *Healing) ObserveLearned() {
	if h == nil {
		return
	}

	h.learned.Inc()
}
