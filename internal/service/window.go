package service

import (
	"time"

	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/versions"
)

// WithRunningTotal annotates every row with the cumulative downloads of its
// group up to and including the row's bucket. Rows must be ordered by bucket
// ascending, as Aggregate returns them. The input is not modified.
func WithRunningTotal(result model.AggregatedResult) model.AggregatedResult {
	rows := make([]model.AggregatedRow, len(result.Rows))
	totals := make(map[string]uint64)

	for i, row := range result.Rows {
		total := totals[row.Group] + row.Downloads
		totals[row.Group] = total

		row.RunningTotal = &total
		rows[i] = row
	}

	result.Rows = rows
	return result
}

// WithRollingWindow annotates every row with the downloads of its group over
// the trailing window of buckets ending at the row's bucket. Buckets are
// calendar buckets of result.Params.Bucket; a bucket with no row counts as
// zero. A window below one is treated as one. The input is not modified.
func WithRollingWindow(result model.AggregatedResult, window int) model.AggregatedResult {
	window = max(window, 1)
	bucket := result.Params.Bucket
	rows := make([]model.AggregatedRow, len(result.Rows))
	copy(rows, result.Rows)

	byGroup := make(map[string][]int)
	for i, row := range rows {
		byGroup[row.Group] = append(byGroup[row.Group], i)
	}

	for _, indices := range byGroup {
		var (
			sum  uint64
			tail int
		)
		for _, index := range indices {
			current := rows[index].Bucket
			first := bucket.Add(current, -(window - 1))

			sum += rows[index].Downloads
			for rows[indices[tail]].Bucket.Before(first) {
				sum -= rows[indices[tail]].Downloads
				tail++
			}

			rolling := sum
			rows[index].RollingDownloads = &rolling
		}
	}

	result.Rows = rows
	return result
}

// clip keeps the rows whose bucket lies within the bucket range of [start,
// end]. Zero bounds are open.
func clip(rows []model.AggregatedRow, bucket model.Granularity, start, end time.Time) []model.AggregatedRow {
	clipped := make([]model.AggregatedRow, 0, len(rows))
	for _, row := range rows {
		if !start.IsZero() && row.Bucket.Before(bucket.Truncate(start)) {
			continue
		}
		if !end.IsZero() && row.Bucket.After(bucket.Truncate(end)) {
			continue
		}
		clipped = append(clipped, row)
	}
	return clipped
}

// versionCategories lists the distinct version groups, newest first.
func versionCategories(rows []model.AggregatedRow) []string {
	seen := make(map[string]struct{})
	categories := []string{}
	for _, row := range rows {
		if _, ok := seen[row.Group]; ok {
			continue
		}
		seen[row.Group] = struct{}{}
		categories = append(categories, row.Group)
	}
	versions.SortDescending(categories)
	return categories
}
