package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"better-pypi-stats/internal/cache"
	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/repository"
)

// DefaultRollingWindow is the rolling window, in buckets, used when a request
// names none.
const DefaultRollingWindow = 28

const maxRollingWindow = 3650

// ValidationError represents user input issues.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type DownloadService interface {
	Aggregate(ctx context.Context, params model.QueryParameters) (model.AggregatedResult, error)
	GetDownloads(ctx context.Context, filter model.DownloadsFilter) (model.DownloadsResponse, error)
	GetRollingDownloads(ctx context.Context, filter model.DownloadsFilter) (model.DownloadsResponse, error)
	GetSummary(ctx context.Context, filter model.DownloadsFilter) (model.SummaryResponse, error)
	GetBreakdown(ctx context.Context, filter model.DownloadsFilter) (model.BreakdownResponse, error)
	GetWeekdays(ctx context.Context, filter model.DownloadsFilter) (model.WeekdayResponse, error)
	ResolveRange(ctx context.Context, filter model.DownloadsFilter) (model.RangeResponse, error)
}

// downloadService answers dashboard queries on top of a DownloadRepository.
type downloadService struct {
	repo         repository.DownloadRepository
	results      *cache.Memo[model.AggregatedResult]
	defaultTable model.TableVariant
	now          func() time.Time
}

// NewDownloadService constructs a DownloadService. Aggregate results are
// memoized in results; pass nil to always query the repository.
func NewDownloadService(
	repo repository.DownloadRepository,
	results *cache.Memo[model.AggregatedResult],
	defaultTable model.TableVariant,
) DownloadService {
	if results == nil {
		results = cache.NewMemo[model.AggregatedResult]("aggregate", 0, 0, nil)
	}
	if !defaultTable.IsValid() {
		defaultTable = model.TableInstallerTypeCountry
	}

	return &downloadService{
		repo:         repo,
		results:      results,
		defaultTable: defaultTable,
		now:          time.Now,
	}
}

// Aggregate validates params and returns the memoized aggregate for them.
// A project without downloads yields an empty result, not an error.
func (s *downloadService) Aggregate(
	ctx context.Context,
	params model.QueryParameters,
) (model.AggregatedResult, error) {
	if err := validateParams(params); err != nil {
		return model.AggregatedResult{}, err
	}

	return s.results.Get(ctx, params.Key(), func(ctx context.Context) (model.AggregatedResult, error) {
		rows, err := s.repo.Aggregate(ctx, params)
		if err != nil {
			return model.AggregatedResult{}, err
		}

		result := model.AggregatedResult{Params: params, Rows: rows}
		if result.Rows == nil {
			result.Rows = []model.AggregatedRow{}
		}
		if params.GroupBy == model.DimensionVersion {
			result.Categories = versionCategories(rows)
		}
		return result, nil
	})
}

// GetDownloads returns the bucketed download series, with running totals when
// the filter asks for them.
func (s *downloadService) GetDownloads(
	ctx context.Context,
	filter model.DownloadsFilter,
) (model.DownloadsResponse, error) {
	params, err := s.buildParams(ctx, filter, model.DimensionNone)
	if err != nil {
		return model.DownloadsResponse{}, err
	}

	result, err := s.Aggregate(ctx, params)
	if err != nil {
		return model.DownloadsResponse{}, err
	}
	if filter.RunningTotal {
		result = WithRunningTotal(result)
	}

	meta := buildMeta(params)
	meta.RunningTotal = filter.RunningTotal

	return model.DownloadsResponse{
		Meta: meta,
		Data: model.DownloadsData{Rows: result.Rows, Categories: result.Categories},
	}, nil
}

// GetRollingDownloads returns the series summed over a trailing window of
// buckets. Buckets before the start are fetched so the first visible point
// covers a full window.
func (s *downloadService) GetRollingDownloads(
	ctx context.Context,
	filter model.DownloadsFilter,
) (model.DownloadsResponse, error) {
	window := filter.Window
	if window == 0 {
		window = DefaultRollingWindow
	}
	if window < 1 || window > maxRollingWindow {
		return model.DownloadsResponse{}, &ValidationError{
			Message: fmt.Sprintf("window must be between 1 and %d", maxRollingWindow),
		}
	}

	params, err := s.buildParams(ctx, filter, model.DimensionNone)
	if err != nil {
		return model.DownloadsResponse{}, err
	}

	extended := params
	if !params.Start.IsZero() {
		extended.Start = params.Bucket.Add(params.Start, -(window - 1))
	}

	result, err := s.Aggregate(ctx, extended)
	if err != nil {
		return model.DownloadsResponse{}, err
	}
	result = WithRollingWindow(result, window)

	rows := clip(result.Rows, params.Bucket, params.Start, params.End)
	var categories []string
	if params.GroupBy == model.DimensionVersion {
		categories = versionCategories(rows)
	}

	meta := buildMeta(params)
	meta.Window = window

	return model.DownloadsResponse{
		Meta: meta,
		Data: model.DownloadsData{Rows: rows, Categories: categories},
	}, nil
}

// GetSummary returns total downloads, distinct versions and days in range.
func (s *downloadService) GetSummary(
	ctx context.Context,
	filter model.DownloadsFilter,
) (model.SummaryResponse, error) {
	params, err := s.buildParams(ctx, filter, model.DimensionNone)
	if err != nil {
		return model.SummaryResponse{}, err
	}

	totals, err := s.repo.Totals(ctx, params)
	if err != nil {
		return model.SummaryResponse{}, err
	}

	meta := buildMeta(params)
	meta.Bucket = ""
	meta.GroupBy = ""

	return model.SummaryResponse{
		Meta: meta,
		Data: model.SummaryData{
			TotalDownloads: totals.Downloads,
			TotalVersions:  totals.Versions,
			TotalDays:      totalDays(params.Start, params.End),
		},
	}, nil
}

// GetBreakdown returns total downloads per group over the range, largest
// first. Grouping defaults to version.
func (s *downloadService) GetBreakdown(
	ctx context.Context,
	filter model.DownloadsFilter,
) (model.BreakdownResponse, error) {
	params, err := s.buildParams(ctx, filter, model.DimensionVersion)
	if err != nil {
		return model.BreakdownResponse{}, err
	}
	if !params.Grouped() {
		return model.BreakdownResponse{}, &ValidationError{Message: "breakdown requires a group_by dimension"}
	}

	groups, err := s.repo.Breakdown(ctx, params)
	if err != nil {
		return model.BreakdownResponse{}, err
	}
	if groups == nil {
		groups = []model.GroupTotal{}
	}

	meta := buildMeta(params)
	meta.Bucket = ""

	return model.BreakdownResponse{
		Meta: meta,
		Data: model.BreakdownData{Groups: groups},
	}, nil
}

// GetWeekdays returns downloads per day of the week, Sunday first, with zero
// for days without downloads.
func (s *downloadService) GetWeekdays(
	ctx context.Context,
	filter model.DownloadsFilter,
) (model.WeekdayResponse, error) {
	params, err := s.buildParams(ctx, filter, model.DimensionNone)
	if err != nil {
		return model.WeekdayResponse{}, err
	}

	weekdays, err := s.repo.Weekdays(ctx, params)
	if err != nil {
		return model.WeekdayResponse{}, err
	}

	days := make([]model.WeekdayTotal, 0, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		days = append(days, model.WeekdayTotal{Day: day.String(), Downloads: weekdays[day]})
	}

	meta := buildMeta(params)
	meta.Bucket = ""
	meta.GroupBy = ""

	return model.WeekdayResponse{
		Meta: meta,
		Data: model.WeekdayData{Days: days},
	}, nil
}

// ResolveRange returns the date range a preset stands for.
func (s *downloadService) ResolveRange(
	ctx context.Context,
	filter model.DownloadsFilter,
) (model.RangeResponse, error) {
	preset := strings.ToLower(strings.TrimSpace(filter.Preset))
	if preset == "" {
		return model.RangeResponse{}, &ValidationError{Message: "preset is required"}
	}
	filter.Start = time.Time{}
	filter.End = time.Time{}

	params, err := s.buildParams(ctx, filter, model.DimensionNone)
	if err != nil {
		return model.RangeResponse{}, err
	}

	return model.RangeResponse{
		Project: params.Project,
		Preset:  preset,
		Period:  formatPeriod(params.Start, params.End),
	}, nil
}

// buildParams validates the filter and fills in defaults: daily buckets,
// major versions, the configured table and the last DefaultRangeDays days.
func (s *downloadService) buildParams(
	ctx context.Context,
	filter model.DownloadsFilter,
	defaultGroup model.GroupDimension,
) (model.QueryParameters, error) {
	params := model.QueryParameters{
		Project:     strings.TrimSpace(filter.Project),
		Bucket:      model.GranularityDay,
		GroupBy:     defaultGroup,
		VersionMode: model.VersionMajor,
		Table:       s.defaultTable,
	}
	if params.Project == "" {
		return model.QueryParameters{}, &ValidationError{Message: "project is required"}
	}

	var err error
	if filter.Bucket != "" {
		if params.Bucket, err = model.ParseGranularity(filter.Bucket); err != nil {
			return model.QueryParameters{}, &ValidationError{Message: err.Error()}
		}
	}
	if filter.GroupBy != "" {
		if params.GroupBy, err = model.ParseGroupDimension(filter.GroupBy); err != nil {
			return model.QueryParameters{}, &ValidationError{Message: err.Error()}
		}
	}
	if filter.VersionStyle != "" {
		if params.VersionMode, err = model.ParseVersionMode(filter.VersionStyle); err != nil {
			return model.QueryParameters{}, &ValidationError{Message: err.Error()}
		}
	}
	if filter.Table != "" {
		if params.Table, err = model.ParseTableVariant(filter.Table); err != nil {
			return model.QueryParameters{}, &ValidationError{Message: err.Error()}
		}
	}

	now := s.now().UTC()
	switch {
	case filter.Preset != "":
		if !filter.Start.IsZero() || !filter.End.IsZero() {
			return model.QueryParameters{}, &ValidationError{Message: "preset cannot be combined with start or end"}
		}
		if params.Start, params.End, err = resolvePreset(ctx, s.repo, params, filter.Preset, now); err != nil {
			return model.QueryParameters{}, err
		}
	default:
		defaultStart, defaultEnd := QuickRange(DefaultRangeDays, now)
		params.Start, params.End = defaultStart, defaultEnd
		if !filter.End.IsZero() {
			params.End = model.GranularityDay.Truncate(filter.End)
			params.Start = params.End.AddDate(0, 0, -(DefaultRangeDays + 1))
		}
		if !filter.Start.IsZero() {
			params.Start = model.GranularityDay.Truncate(filter.Start)
		}
	}

	if err := validateParams(params); err != nil {
		return model.QueryParameters{}, err
	}
	return params, nil
}

func validateParams(params model.QueryParameters) error {
	if strings.TrimSpace(params.Project) == "" {
		return &ValidationError{Message: "project is required"}
	}
	if !params.Bucket.IsValid() {
		return &ValidationError{Message: "unsupported bucket"}
	}
	if !params.GroupBy.IsValid() {
		return &ValidationError{Message: "unsupported group_by"}
	}
	if !params.VersionMode.IsValid() {
		return &ValidationError{Message: "unsupported version_style"}
	}

	schema, ok := model.SchemaFor(params.Table)
	if !ok {
		return &ValidationError{Message: "unsupported table"}
	}
	if !schema.Supports(params.GroupBy) {
		return &ValidationError{
			Message: fmt.Sprintf("table '%s' cannot be grouped by %s", params.Table, params.GroupBy),
		}
	}

	if !params.Start.IsZero() && !params.End.IsZero() && params.Start.After(params.End) {
		return &ValidationError{Message: "start must not be after end"}
	}
	return nil
}

// totalDays counts the days shown for a range, one less than the difference
// between its bounds. An unbounded range has no day count.
func totalDays(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	days := int(end.Sub(start).Hours()/24) - 1
	return max(days, 0)
}

func buildMeta(params model.QueryParameters) model.QueryMeta {
	meta := model.QueryMeta{
		Project:      params.Project,
		Table:        params.Table.String(),
		Period:       formatPeriod(params.Start, params.End),
		Bucket:       params.Bucket.String(),
		GroupBy:      params.GroupBy.String(),
		VersionStyle: params.VersionMode.String(),
	}
	return meta
}

func formatPeriod(start, end time.Time) model.QueryPeriod {
	var period model.QueryPeriod
	if !start.IsZero() {
		period.Start = start.UTC().Format(model.DateLayout)
	}
	if !end.IsZero() {
		period.End = end.UTC().Format(model.DateLayout)
	}
	return period
}
