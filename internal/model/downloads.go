package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// DownloadEvent is one pre-aggregated fact row: the number of downloads of a
// project version on a given day for one combination of dimensions.
type DownloadEvent struct {
	Project     string
	Version     string
	Date        time.Time
	PythonMinor string
	CountryCode string
	Installer   string
	Type        string
	Count       uint64
}

// Dimension returns the value of the event for a grouping dimension.
func (event DownloadEvent) Dimension(dimension GroupDimension) string {
	switch dimension {
	case DimensionVersion:
		return event.Version
	case DimensionCountry:
		return event.CountryCode
	case DimensionInstaller:
		return event.Installer
	case DimensionType:
		return event.Type
	case DimensionPythonMinor:
		return event.PythonMinor
	default:
		return ""
	}
}

// QueryParameters is built per interaction. A zero Start or End leaves that
// side of the date range unbounded.
type QueryParameters struct {
	Project     string
	Start       time.Time
	End         time.Time
	Bucket      Granularity
	GroupBy     GroupDimension
	VersionMode VersionMode
	Table       TableVariant
}

// Grouped reports whether a secondary group-by key is requested.
func (params QueryParameters) Grouped() bool {
	return params.GroupBy != 0 && params.GroupBy != DimensionNone
}

// Key is a canonical string identifying the parameters, used for memoization.
func (params QueryParameters) Key() string {
	return fmt.Sprintf(
		"%s|%s|%s|%s|%s|%s|%s",
		params.Table,
		params.Project,
		formatBound(params.Start),
		formatBound(params.End),
		params.Bucket,
		params.GroupBy,
		params.VersionMode,
	)
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.UTC().Format(DateLayout)
}

// AggregatedRow is one bucket (and group) of an aggregated result.
type AggregatedRow struct {
	Bucket           time.Time `json:"bucket"`
	Group            string    `json:"group,omitempty"`
	Downloads        uint64    `json:"downloads"`
	RunningTotal     *uint64   `json:"running_total,omitempty"`
	RollingDownloads *uint64   `json:"rolling_downloads,omitempty"`
}

// AggregatedResult is the ordered output of an aggregate query.
type AggregatedResult struct {
	Params QueryParameters
	Rows   []AggregatedRow
	// Version categories, newest first. Only set when grouped by version.
	Categories []string
}

// GroupTotal is one line of a breakdown table.
type GroupTotal struct {
	Key       string `json:"key"`
	Downloads uint64 `json:"downloads"`
}

// WeekdayTotal holds the downloads that fell on one day of the week.
type WeekdayTotal struct {
	Day       string `json:"day"`
	Downloads uint64 `json:"downloads"`
}

// Totals are range-wide figures for a project.
type Totals struct {
	Downloads uint64
	Versions  uint64
}
