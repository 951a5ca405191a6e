package model

// QueryMeta describes the query that produced a response.
type QueryMeta struct {
	Project      string      `json:"project"`
	Table        string      `json:"table"`
	Period       QueryPeriod `json:"period"`
	Bucket       string      `json:"bucket,omitempty"`
	GroupBy      string      `json:"group_by,omitempty"`
	VersionStyle string      `json:"version_style,omitempty"`
	Window       int         `json:"window,omitempty"`
	RunningTotal bool        `json:"running_total,omitempty"`
}

// QueryPeriod captures the date range, inclusive on both ends.
type QueryPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DownloadsResponse is returned for time-series queries.
type DownloadsResponse struct {
	Meta QueryMeta     `json:"meta"`
	Data DownloadsData `json:"data"`
}

// DownloadsData holds the series rows.
type DownloadsData struct {
	Rows       []AggregatedRow `json:"rows"`
	Categories []string        `json:"categories,omitempty"`
}

// SummaryResponse holds the headline figures of a dashboard.
type SummaryResponse struct {
	Meta QueryMeta   `json:"meta"`
	Data SummaryData `json:"data"`
}

type SummaryData struct {
	TotalDownloads uint64 `json:"total_downloads"`
	TotalVersions  uint64 `json:"total_versions"`
	TotalDays      int    `json:"total_days"`
}

// BreakdownResponse is a per-dimension table sorted by downloads.
type BreakdownResponse struct {
	Meta QueryMeta     `json:"meta"`
	Data BreakdownData `json:"data"`
}

type BreakdownData struct {
	Groups []GroupTotal `json:"groups"`
}

// WeekdayResponse lists downloads per day of week, Sunday first.
type WeekdayResponse struct {
	Meta QueryMeta   `json:"meta"`
	Data WeekdayData `json:"data"`
}

type WeekdayData struct {
	Days []WeekdayTotal `json:"days"`
}

// RangeResponse is the date range a quick-range preset resolves to.
type RangeResponse struct {
	Project string      `json:"project"`
	Preset  string      `json:"preset"`
	Period  QueryPeriod `json:"period"`
}
