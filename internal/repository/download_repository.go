package repository

import (
	"context"
	"log/slog"
	"time"

	"better-pypi-stats/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"hermannm.dev/wrap"
)

// DownloadRepository defines the aggregate queries run against the download
// fact tables.
type DownloadRepository interface {
	// Aggregate sums downloads per bucket (and group), ordered by bucket
	// ascending, downloads descending, group ascending.
	Aggregate(ctx context.Context, params model.QueryParameters) ([]model.AggregatedRow, error)

	// Breakdown sums downloads per group over the whole range, largest first.
	Breakdown(ctx context.Context, params model.QueryParameters) ([]model.GroupTotal, error)

	// Weekdays sums downloads per day of the week.
	Weekdays(ctx context.Context, params model.QueryParameters) (map[time.Weekday]uint64, error)

	// Totals returns total downloads and the number of distinct versions,
	// normalized per params.VersionMode.
	Totals(ctx context.Context, params model.QueryParameters) (model.Totals, error)

	// FirstDate returns the earliest date with downloads for the project.
	// ok is false when the project has no rows.
	FirstDate(ctx context.Context, params model.QueryParameters) (first time.Time, ok bool, err error)
}

// querier is the read-only subset of driver.Conn the repository needs.
type querier interface {
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) driver.Row
}

type downloadRepository struct {
	conn         querier
	queryTimeout time.Duration
}

// NewDownloadRepository creates a DownloadRepository backed by ClickHouse.
// A zero queryTimeout leaves queries bounded only by the caller's context.
func NewDownloadRepository(conn driver.Conn, queryTimeout time.Duration) DownloadRepository {
	return &downloadRepository{conn: conn, queryTimeout: queryTimeout}
}

func (r *downloadRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

func (r *downloadRepository) query(
	ctx context.Context,
	operation string,
	query string,
	args []any,
) (driver.Rows, error) {
	slog.DebugContext(ctx, "running query", slog.String("operation", operation), slog.String("sql", query), slog.Any("args", args))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err)
	}
	return rows, nil
}

func (r *downloadRepository) Aggregate(
	ctx context.Context,
	params model.QueryParameters,
) ([]model.AggregatedRow, error) {
	query, args, err := buildAggregateQuery(params)
	if err != nil {
		return nil, wrap.Error(err, "failed to build aggregate query")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.query(ctx, "aggregate", query, args)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to aggregate downloads for '%s'", params.Project)
	}
	defer rows.Close()

	result := []model.AggregatedRow{}
	for rows.Next() {
		var row model.AggregatedRow
		if err := rows.Scan(&row.Bucket, &row.Group, &row.Downloads); err != nil {
			return nil, wrap.Error(classifyError(err), "scan aggregate row")
		}
		row.Bucket = row.Bucket.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(classifyError(err), "iterate aggregate rows")
	}

	return result, nil
}

func (r *downloadRepository) Breakdown(
	ctx context.Context,
	params model.QueryParameters,
) ([]model.GroupTotal, error) {
	query, args, err := buildBreakdownQuery(params)
	if err != nil {
		return nil, wrap.Error(err, "failed to build breakdown query")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.query(ctx, "breakdown", query, args)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to break down downloads for '%s'", params.Project)
	}
	defer rows.Close()

	groups := []model.GroupTotal{}
	for rows.Next() {
		var group model.GroupTotal
		if err := rows.Scan(&group.Key, &group.Downloads); err != nil {
			return nil, wrap.Error(classifyError(err), "scan breakdown row")
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(classifyError(err), "iterate breakdown rows")
	}

	return groups, nil
}

func (r *downloadRepository) Weekdays(
	ctx context.Context,
	params model.QueryParameters,
) (map[time.Weekday]uint64, error) {
	query, args, err := buildWeekdayQuery(params)
	if err != nil {
		return nil, wrap.Error(err, "failed to build weekday query")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.query(ctx, "weekdays", query, args)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to count weekday downloads for '%s'", params.Project)
	}
	defer rows.Close()

	weekdays := make(map[time.Weekday]uint64, 7)
	for rows.Next() {
		var (
			day       uint8
			downloads uint64
		)
		if err := rows.Scan(&day, &downloads); err != nil {
			return nil, wrap.Error(classifyError(err), "scan weekday row")
		}
		// toDayOfWeek numbers Monday 1 through Sunday 7.
		weekdays[time.Weekday(day%7)] += downloads
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(classifyError(err), "iterate weekday rows")
	}

	return weekdays, nil
}

func (r *downloadRepository) Totals(
	ctx context.Context,
	params model.QueryParameters,
) (model.Totals, error) {
	query, args, err := buildTotalsQuery(params)
	if err != nil {
		return model.Totals{}, wrap.Error(err, "failed to build totals query")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	slog.DebugContext(ctx, "running query", slog.String("operation", "totals"), slog.String("sql", query), slog.Any("args", args))

	var totals model.Totals
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&totals.Downloads, &totals.Versions); err != nil {
		return model.Totals{}, wrap.Errorf(classifyError(err), "failed to total downloads for '%s'", params.Project)
	}

	return totals, nil
}

func (r *downloadRepository) FirstDate(
	ctx context.Context,
	params model.QueryParameters,
) (time.Time, bool, error) {
	query, args, err := buildFirstDateQuery(params)
	if err != nil {
		return time.Time{}, false, wrap.Error(err, "failed to build first date query")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	slog.DebugContext(ctx, "running query", slog.String("operation", "first_date"), slog.String("sql", query), slog.Any("args", args))

	var (
		first time.Time
		count uint64
	)
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&first, &count); err != nil {
		return time.Time{}, false, wrap.Errorf(classifyError(err), "failed to find first download date for '%s'", params.Project)
	}
	if count == 0 {
		return time.Time{}, false, nil
	}

	return first.UTC(), true, nil
}
