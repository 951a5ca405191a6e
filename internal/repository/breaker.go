package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/observability"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the circuit breaker in front of the store.
type BreakerSettings struct {
	// Consecutive connection failures that open the circuit.
	Failures uint32
	// How long the circuit stays open before a trial query is let through.
	Timeout time.Duration
}

type breakerRepository struct {
	next    DownloadRepository
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBreakerRepository stops sending queries to next after repeated
// connection failures, failing fast with a ConnectionError until the timeout
// passes. Query errors and cancellations do not count as failures.
func NewBreakerRepository(
	next DownloadRepository,
	settings BreakerSettings,
	metrics *observability.Metrics,
) DownloadRepository {
	failures := settings.Failures
	if failures == 0 {
		failures = 1
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "clickhouse",
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			var connErr *ConnectionError
			return !errors.As(err, &connErr)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn(
				"circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if metrics != nil {
				metrics.SetBreakerState(name, breakerStateValue(to))
			}
		},
	})

	if metrics != nil {
		metrics.SetBreakerState("clickhouse", breakerStateValue(gobreaker.StateClosed))
	}

	return &breakerRepository{next: next, breaker: breaker}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// execute runs fn through the breaker. Rejections surface as ConnectionError.
func execute[T any](breaker *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	result, err := breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, &ConnectionError{Err: err}
		}
		if typed, ok := result.(T); ok {
			return typed, err
		}
		return zero, err
	}

	typed, _ := result.(T)
	return typed, nil
}

func (r *breakerRepository) Aggregate(
	ctx context.Context,
	params model.QueryParameters,
) ([]model.AggregatedRow, error) {
	return execute(r.breaker, func() ([]model.AggregatedRow, error) {
		return r.next.Aggregate(ctx, params)
	})
}

func (r *breakerRepository) Breakdown(
	ctx context.Context,
	params model.QueryParameters,
) ([]model.GroupTotal, error) {
	return execute(r.breaker, func() ([]model.GroupTotal, error) {
		return r.next.Breakdown(ctx, params)
	})
}

func (r *breakerRepository) Weekdays(
	ctx context.Context,
	params model.QueryParameters,
) (map[time.Weekday]uint64, error) {
	return execute(r.breaker, func() (map[time.Weekday]uint64, error) {
		return r.next.Weekdays(ctx, params)
	})
}

func (r *breakerRepository) Totals(
	ctx context.Context,
	params model.QueryParameters,
) (model.Totals, error) {
	return execute(r.breaker, func() (model.Totals, error) {
		return r.next.Totals(ctx, params)
	})
}

type firstDate struct {
	date time.Time
	ok   bool
}

func (r *breakerRepository) FirstDate(
	ctx context.Context,
	params model.QueryParameters,
) (time.Time, bool, error) {
	first, err := execute(r.breaker, func() (firstDate, error) {
		date, ok, err := r.next.FirstDate(ctx, params)
		return firstDate{date: date, ok: ok}, err
	})
	return first.date, first.ok, err
}
