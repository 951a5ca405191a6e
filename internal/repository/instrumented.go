package repository

import (
	"context"
	"errors"
	"time"

	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/observability"
)

type instrumentedRepository struct {
	next    DownloadRepository
	metrics *observability.Metrics
}

// NewInstrumentedRepository records the count, outcome and latency of every
// query made through next.
func NewInstrumentedRepository(next DownloadRepository, metrics *observability.Metrics) DownloadRepository {
	return &instrumentedRepository{next: next, metrics: metrics}
}

// queryStatus maps a repository error to its metrics label.
func queryStatus(err error) string {
	var connErr *ConnectionError
	var queryErr *QueryError

	switch {
	case err == nil:
		return observability.StatusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.StatusCanceled
	case errors.As(err, &connErr):
		return observability.StatusConnection
	case errors.As(err, &queryErr):
		return observability.StatusQuery
	default:
		return observability.StatusError
	}
}

func (r *instrumentedRepository) Aggregate(
	ctx context.Context,
	params model.QueryParameters,
) ([]model.AggregatedRow, error) {
	started := time.Now()
	rows, err := r.next.Aggregate(ctx, params)
	r.metrics.ObserveQuery("aggregate", started, queryStatus(err))
	return rows, err
}

func (r *instrumentedRepository) Breakdown(
	ctx context.Context,
	params model.QueryParameters,
) ([]model.GroupTotal, error) {
	started := time.Now()
	groups, err := r.next.Breakdown(ctx, params)
	r.metrics.ObserveQuery("breakdown", started, queryStatus(err))
	return groups, err
}

func (r *instrumentedRepository) Weekdays(
	ctx context.Context,
	params model.QueryParameters,
) (map[time.Weekday]uint64, error) {
	started := time.Now()
	weekdays, err := r.next.Weekdays(ctx, params)
	r.metrics.ObserveQuery("weekdays", started, queryStatus(err))
	return weekdays, err
}

func (r *instrumentedRepository) Totals(
	ctx context.Context,
	params model.QueryParameters,
) (model.Totals, error) {
	started := time.Now()
	totals, err := r.next.Totals(ctx, params)
	r.metrics.ObserveQuery("totals", started, queryStatus(err))
	return totals, err
}

func (r *instrumentedRepository) FirstDate(
	ctx context.Context,
	params model.QueryParameters,
) (time.Time, bool, error) {
	started := time.Now()
	first, ok, err := r.next.FirstDate(ctx, params)
	r.metrics.ObserveQuery("first_date", started, queryStatus(err))
	return first, ok, err
}
