// Package telemetry records audit entries and analytics events. Writes are
// best effort: a failing sink is logged and skipped, never surfaced.
package telemetry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/shopforge/commerce-api/internal/metrics"
)

// BestEffort runs sink writes through a circuit breaker and swallows their
// failures after logging them.
type BestEffort struct {
	name string
	cb   *gobreaker.CircuitBreaker
	log  logrus.FieldLogger
}

// NewBestEffort creates a best-effort runner for the named sink.
func NewBestEffort(name string, log logrus.FieldLogger) *BestEffort {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(stateValue(to))
			log.WithFields(logrus.Fields{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("telemetry circuit breaker state changed")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &BestEffort{name: name, cb: cb, log: log}
}

// Do runs fn. It never fails; errors, including an open breaker, are logged.
func (b *BestEffort) Do(ctx context.Context, op string, fn func(ctx context.Context) error) {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if err == nil {
		return
	}

	metrics.TelemetryDropped.WithLabelValues(b.name).Inc()
	entry := b.log.WithFields(logrus.Fields{"sink": b.name, "op": op})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		entry.Debug("telemetry sink unavailable, write skipped")
		return
	}
	entry.WithError(err).Error("telemetry write failed")
}

// State reports the breaker state.
func (b *BestEffort) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
