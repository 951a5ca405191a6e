package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/versions"

	"github.com/goccy/go-json"
	"hermannm.dev/wrap"
)

type fixtureRecord struct {
	Project     string `json:"project"`
	Version     string `json:"version"`
	Date        string `json:"date"`
	PythonMinor string `json:"python_minor"`
	CountryCode string `json:"country_code"`
	Installer   string `json:"installer"`
	Type        string `json:"type"`
	Count       uint64 `json:"count"`
}

// LoadFixture reads download events from a JSON array of fact rows.
func LoadFixture(path string) ([]model.DownloadEvent, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read fixture file '%s'", path)
	}

	var records []fixtureRecord
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, wrap.Errorf(err, "failed to parse fixture file '%s'", path)
	}

	events := make([]model.DownloadEvent, 0, len(records))
	for i, record := range records {
		date, err := time.Parse(model.DateLayout, record.Date)
		if err != nil {
			return nil, wrap.Errorf(err, "invalid date in fixture record %d", i)
		}

		events = append(events, model.DownloadEvent{
			Project:     record.Project,
			Version:     record.Version,
			Date:        date,
			PythonMinor: record.PythonMinor,
			CountryCode: record.CountryCode,
			Installer:   record.Installer,
			Type:        record.Type,
			Count:       record.Count,
		})
	}

	return events, nil
}

// memoryRepository answers the same queries as the ClickHouse repository over
// an in-process slice of events. Used for local development and tests. The
// events are never modified after construction.
type memoryRepository struct {
	events []model.DownloadEvent
}

func NewMemoryRepository(events []model.DownloadEvent) DownloadRepository {
	return &memoryRepository{events: events}
}

// matching calls fn for every event of the project inside the date bounds
// that the schema of params.Table can answer for.
func (r *memoryRepository) matching(params model.QueryParameters, fn func(model.DownloadEvent)) {
	for _, event := range r.events {
		if event.Project != params.Project {
			continue
		}
		date := event.Date.UTC()
		if !params.Start.IsZero() && date.Before(model.GranularityDay.Truncate(params.Start)) {
			continue
		}
		if !params.End.IsZero() && date.After(model.GranularityDay.Truncate(params.End)) {
			continue
		}
		fn(event)
	}
}

func groupKey(event model.DownloadEvent, params model.QueryParameters) string {
	if !params.Grouped() {
		return ""
	}
	if params.GroupBy == model.DimensionVersion {
		return versions.Normalize(event.Version, params.VersionMode)
	}
	return event.Dimension(params.GroupBy)
}

func checkSupported(params model.QueryParameters) error {
	if _, err := schemaFor(params); err != nil {
		return err
	}
	if !params.Bucket.IsValid() {
		return fmt.Errorf("invalid bucket granularity '%v'", params.Bucket)
	}
	schema, _ := model.SchemaFor(params.Table)
	if params.Grouped() && !schema.Supports(params.GroupBy) {
		return &QueryError{Err: fmt.Errorf("table '%s' has no column for %s", schema.Table, params.GroupBy)}
	}
	return nil
}

func (r *memoryRepository) Aggregate(
	_ context.Context,
	params model.QueryParameters,
) ([]model.AggregatedRow, error) {
	if err := checkSupported(params); err != nil {
		return nil, err
	}

	type key struct {
		bucket time.Time
		group  string
	}
	sums := make(map[key]uint64)
	r.matching(params, func(event model.DownloadEvent) {
		sums[key{params.Bucket.Truncate(event.Date), groupKey(event, params)}] += event.Count
	})

	rows := make([]model.AggregatedRow, 0, len(sums))
	for k, downloads := range sums {
		rows = append(rows, model.AggregatedRow{Bucket: k.bucket, Group: k.group, Downloads: downloads})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Bucket.Equal(rows[j].Bucket) {
			return rows[i].Bucket.Before(rows[j].Bucket)
		}
		if rows[i].Downloads != rows[j].Downloads {
			return rows[i].Downloads > rows[j].Downloads
		}
		return rows[i].Group < rows[j].Group
	})

	return rows, nil
}

func (r *memoryRepository) Breakdown(
	_ context.Context,
	params model.QueryParameters,
) ([]model.GroupTotal, error) {
	if !params.Grouped() {
		return nil, wrap.Error(errNotGrouped, "failed to build breakdown query")
	}
	if err := checkSupported(params); err != nil {
		return nil, err
	}

	sums := make(map[string]uint64)
	r.matching(params, func(event model.DownloadEvent) {
		sums[groupKey(event, params)] += event.Count
	})

	groups := make([]model.GroupTotal, 0, len(sums))
	for k, downloads := range sums {
		groups = append(groups, model.GroupTotal{Key: k, Downloads: downloads})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Downloads != groups[j].Downloads {
			return groups[i].Downloads > groups[j].Downloads
		}
		return groups[i].Key < groups[j].Key
	})

	return groups, nil
}

func (r *memoryRepository) Weekdays(
	_ context.Context,
	params model.QueryParameters,
) (map[time.Weekday]uint64, error) {
	weekdays := make(map[time.Weekday]uint64, 7)
	r.matching(params, func(event model.DownloadEvent) {
		weekdays[event.Date.UTC().Weekday()] += event.Count
	})
	return weekdays, nil
}

func (r *memoryRepository) Totals(
	_ context.Context,
	params model.QueryParameters,
) (model.Totals, error) {
	var totals model.Totals
	seen := make(map[string]struct{})
	r.matching(params, func(event model.DownloadEvent) {
		totals.Downloads += event.Count
		seen[versions.Normalize(event.Version, params.VersionMode)] = struct{}{}
	})
	totals.Versions = uint64(len(seen))
	return totals, nil
}

func (r *memoryRepository) FirstDate(
	_ context.Context,
	params model.QueryParameters,
) (time.Time, bool, error) {
	var first time.Time
	found := false
	r.matching(model.QueryParameters{Project: params.Project}, func(event model.DownloadEvent) {
		date := model.GranularityDay.Truncate(event.Date)
		if !found || date.Before(first) {
			first = date
			found = true
		}
	})
	return first, found, nil
}
