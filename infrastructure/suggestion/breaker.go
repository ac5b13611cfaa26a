package suggestion

import (
	"context"
	"errors"
	"time"

	"mindmap-backend/application/ports"
	apperrors "mindmap-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for the circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used in production
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             serviceName,
		MaxRequests:      2,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// BreakerService stops calling a failing suggestion backend for a while.
// Only RemoteUnavailable answers count as failures.
type BreakerService struct {
	next   ports.SuggestionService
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var _ ports.SuggestionService = (*BreakerService)(nil)

// NewBreakerService wraps next with a circuit breaker
func NewBreakerService(next ports.SuggestionService, cfg BreakerConfig, logger *zap.Logger) *BreakerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsRemoteUnavailable(err)
		},
	})

	return &BreakerService{next: next, cb: cb, logger: logger}
}

// Suggest calls through the breaker
func (b *BreakerService) Suggest(ctx context.Context, label string, existing []string) ([]string, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Suggest(ctx, label, existing)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewRemoteUnavailableError(serviceName, err)
		}
		return nil, err
	}
	return result.([]string), nil
}

// State reports the breaker state
func (b *BreakerService) State() gobreaker.State {
	return b.cb.State()
}
