// Package versions coarsens and orders PyPI version strings for display.
//
// Nothing here fails on malformed input: segments that are not purely
// numeric are dropped from sort keys, and normalization keeps whatever
// leading segments exist.
package versions

import (
	"slices"
	"strconv"
	"strings"

	"better-pypi-stats/internal/model"
)

// Normalize reduces a dotted version to the granularity of mode.
// "1.2.3" becomes "1" for major and "1.2" for major.minor. A version with
// fewer segments than requested is returned with the segments it has.
func Normalize(version string, mode model.VersionMode) string {
	keep := mode.Segments()
	if keep == 0 {
		return version
	}

	segments := strings.SplitN(version, ".", keep+1)
	if len(segments) > keep {
		segments = segments[:keep]
	}
	return strings.Join(segments, ".")
}

// SortKey returns the numeric segments of a version, in order. Segments that
// are empty, non-numeric or out of int range are skipped, so "1.a.2" gives
// [1 2].
func SortKey(version string) []int {
	segments := strings.Split(version, ".")
	key := make([]int, 0, len(segments))

	for _, segment := range segments {
		if !isDigits(segment) {
			continue
		}
		n, err := strconv.Atoi(segment)
		if err != nil {
			continue
		}
		key = append(key, n)
	}

	return key
}

// Compare orders two versions by their sort keys, falling back to plain
// string order when the keys are equal.
func Compare(a, b string) int {
	if c := slices.Compare(SortKey(a), SortKey(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortDescending sorts versions newest first, the category order used for
// stacked charts.
func SortDescending(versions []string) {
	slices.SortStableFunc(versions, func(a, b string) int {
		return Compare(b, a)
	})
}

func isDigits(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
