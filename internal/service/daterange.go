package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/repository"
)

// DefaultRangeDays is the length of the range used when a request names none.
const DefaultRangeDays = 28

// PresetAll resolves to the first date with data for the project.
const PresetAll = "all"

var quickRanges = map[string]int{
	"7d":   7,
	"14d":  14,
	"28d":  28,
	"91d":  91,
	"182d": 182,
	"365d": 365,
	"730d": 730,
}

// Presets lists the accepted preset names, shortest range first.
func Presets() []string {
	names := make([]string, 0, len(quickRanges)+1)
	for name := range quickRanges {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return quickRanges[names[i]] < quickRanges[names[j]]
	})
	return append(names, PresetAll)
}

// QuickRange returns the range covering the last days days: from now minus
// days up to and including tomorrow, at day precision.
func QuickRange(days int, now time.Time) (start, end time.Time) {
	today := model.GranularityDay.Truncate(now)
	return today.AddDate(0, 0, -days), today.AddDate(0, 0, 1)
}

// resolvePreset turns a preset into a concrete range. "all" looks up the
// first date the project has data for, every time it is asked.
func resolvePreset(
	ctx context.Context,
	repo repository.DownloadRepository,
	params model.QueryParameters,
	preset string,
	now time.Time,
) (start, end time.Time, err error) {
	preset = strings.ToLower(strings.TrimSpace(preset))

	if preset != PresetAll {
		days, ok := quickRanges[preset]
		if !ok {
			return time.Time{}, time.Time{}, &ValidationError{
				Message: fmt.Sprintf("unsupported preset '%s', expected one of %s", preset, strings.Join(Presets(), ", ")),
			}
		}
		start, end = QuickRange(days, now)
		return start, end, nil
	}

	first, ok, err := repo.FirstDate(ctx, params)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		start, end = QuickRange(DefaultRangeDays, now)
		return start, end, nil
	}

	_, end = QuickRange(0, now)
	return first.AddDate(0, 0, -1), end, nil
}
