package model

import "time"

// DownloadsFilter is the query of one dashboard request. The controller
// parses dates; the service validates the rest and applies defaults.
type DownloadsFilter struct {
	Project      string
	Start        time.Time
	End          time.Time
	Preset       string
	Bucket       string
	GroupBy      string
	VersionStyle string
	Table        string
	RunningTotal bool
	Window       int
}
