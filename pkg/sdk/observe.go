package visiolingua

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/blinderchief/visiolingua/internal/domain"
)

// Operation outcomes reported in the "outcome" label.
const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid_input"
	outcomeRateLimited = "rate_limited"
	outcomeUnavailable = "store_unavailable"
	outcomeError       = "error"
)

// outcome maps an operation error onto a bounded label value.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrVectorDimMismatch):
		return outcomeInvalid
	case errors.Is(err, domain.ErrRateLimited):
		return outcomeRateLimited
	case errors.Is(err, domain.ErrStoreUnavailable):
		return outcomeUnavailable
	default:
		return outcomeError
	}
}

type observer struct {
	logger     *zap.Logger
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg == nil {
		return o, nil
	}

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visiolingua",
		Subsystem: "sdk",
		Name:      "operations_total",
		Help:      "Client operations by name and outcome.",
	}, []string{"op", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "visiolingua",
		Subsystem: "sdk",
		Name:      "operation_duration_seconds",
		Help:      "Client operation latency, generation included.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"op"})

	var err error
	if o.operations, err = registerOrReuse(reg, operations); err != nil {
		return nil, err
	}
	if o.latency, err = registerOrReuse(reg, latency); err != nil {
		return nil, err
	}
	return o, nil
}

// registerOrReuse registers c, or returns the collector already registered
// under the same descriptor so several clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("visiolingua: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("visiolingua: metric registered with type %T", are.ExistingCollector)
	}
	return existing, nil
}

// observe records one finished operation. A nil observer is a no-op.
func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	elapsed := time.Since(start)
	result := outcome(err)

	if o.operations != nil {
		o.operations.WithLabelValues(op, result).Inc()
		o.latency.WithLabelValues(op).Observe(elapsed.Seconds())
	}
	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("visiolingua operation failed",
			zap.String("op", op), zap.String("outcome", result),
			zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	o.logger.Debug("visiolingua operation", zap.String("op", op), zap.Duration("elapsed", elapsed))
}
