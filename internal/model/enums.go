package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hermannm.dev/enumnames"
)

// Granularity is the time-truncation unit applied to a date before grouping.
type Granularity int8

const (
	GranularityDay Granularity = iota + 1
	GranularityWeek
	GranularityMonth
	GranularityQuarter
	GranularityYear
)

var granularityNames = enumnames.NewMap(map[Granularity]string{
	GranularityDay:     "day",
	GranularityWeek:    "week",
	GranularityMonth:   "month",
	GranularityQuarter: "quarter",
	GranularityYear:    "year",
})

// Single-letter timescales used by the older dashboard ("D", "W", ...).
var granularityAliases = map[string]Granularity{
	"D": GranularityDay,
	"W": GranularityWeek,
	"M": GranularityMonth,
	"Q": GranularityQuarter,
	"Y": GranularityYear,
}

func (granularity Granularity) IsValid() bool {
	return granularityNames.ContainsEnumValue(granularity)
}

func (granularity Granularity) String() string {
	return granularityNames.GetNameOrFallback(granularity, "INVALID_GRANULARITY")
}

func (granularity Granularity) MarshalJSON() ([]byte, error) {
	return granularityNames.MarshalToNameJSON(granularity)
}

func (granularity *Granularity) UnmarshalJSON(bytes []byte) error {
	return granularityNames.UnmarshalFromNameJSON(bytes, granularity)
}

// ParseGranularity accepts both the long names and the single-letter aliases.
func ParseGranularity(value string) (Granularity, error) {
	if alias, ok := granularityAliases[strings.ToUpper(strings.TrimSpace(value))]; ok {
		return alias, nil
	}

	var granularity Granularity
	if err := granularityNames.UnmarshalFromNameJSON(quoteName(value), &granularity); err != nil {
		return 0, fmt.Errorf("unsupported bucket '%s'", value)
	}
	return granularity, nil
}

// Truncate returns the first day of the bucket containing t, in UTC.
// Weeks start on Monday, matching ClickHouse's toMonday.
func (granularity Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	year, month, day := t.Date()

	switch granularity {
	case GranularityWeek:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(year, month, day-offset, 0, 0, 0, 0, time.UTC)
	case GranularityMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	case GranularityQuarter:
		firstMonth := month - (month-1)%3
		return time.Date(year, firstMonth, 1, 0, 0, 0, 0, time.UTC)
	case GranularityYear:
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
}

// Add moves a bucket start by n buckets. The result is truncated, so callers
// may pass any date inside a bucket.
func (granularity Granularity) Add(t time.Time, n int) time.Time {
	t = granularity.Truncate(t)

	switch granularity {
	case GranularityWeek:
		return t.AddDate(0, 0, 7*n)
	case GranularityMonth:
		return t.AddDate(0, n, 0)
	case GranularityQuarter:
		return t.AddDate(0, 3*n, 0)
	case GranularityYear:
		return t.AddDate(n, 0, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// GroupDimension is the optional secondary group-by key.
type GroupDimension int8

const (
	DimensionNone GroupDimension = iota + 1
	DimensionVersion
	DimensionCountry
	DimensionInstaller
	DimensionType
	DimensionPythonMinor
)

var dimensionNames = enumnames.NewMap(map[GroupDimension]string{
	DimensionNone:        "none",
	DimensionVersion:     "version",
	DimensionCountry:     "country",
	DimensionInstaller:   "installer",
	DimensionType:        "type",
	DimensionPythonMinor: "python_minor",
})

func (dimension GroupDimension) IsValid() bool {
	return dimensionNames.ContainsEnumValue(dimension)
}

func (dimension GroupDimension) String() string {
	return dimensionNames.GetNameOrFallback(dimension, "INVALID_DIMENSION")
}

func (dimension GroupDimension) MarshalJSON() ([]byte, error) {
	return dimensionNames.MarshalToNameJSON(dimension)
}

func (dimension *GroupDimension) UnmarshalJSON(bytes []byte) error {
	return dimensionNames.UnmarshalFromNameJSON(bytes, dimension)
}

// ParseGroupDimension maps an empty value to DimensionNone and accepts the
// raw column name "country_code" for the country dimension.
func ParseGroupDimension(value string) (GroupDimension, error) {
	switch value {
	case "":
		return DimensionNone, nil
	case "country_code":
		return DimensionCountry, nil
	}

	var dimension GroupDimension
	if err := dimensionNames.UnmarshalFromNameJSON(quoteName(value), &dimension); err != nil {
		return 0, fmt.Errorf("unsupported group_by '%s'", value)
	}
	return dimension, nil
}

// VersionMode controls how version strings are coarsened before grouping.
type VersionMode int8

const (
	VersionMajor VersionMode = iota + 1
	VersionMajorMinor
	VersionExact
)

var versionModeNames = enumnames.NewMap(map[VersionMode]string{
	VersionMajor:      "major",
	VersionMajorMinor: "major.minor",
	VersionExact:      "exact",
})

func (mode VersionMode) IsValid() bool {
	return versionModeNames.ContainsEnumValue(mode)
}

func (mode VersionMode) String() string {
	return versionModeNames.GetNameOrFallback(mode, "INVALID_VERSION_MODE")
}

func (mode VersionMode) MarshalJSON() ([]byte, error) {
	return versionModeNames.MarshalToNameJSON(mode)
}

func (mode *VersionMode) UnmarshalJSON(bytes []byte) error {
	return versionModeNames.UnmarshalFromNameJSON(bytes, mode)
}

// Segments is the number of leading version segments kept, or 0 for all.
func (mode VersionMode) Segments() int {
	switch mode {
	case VersionMajor:
		return 1
	case VersionMajorMinor:
		return 2
	default:
		return 0
	}
}

func ParseVersionMode(value string) (VersionMode, error) {
	if value == "major.minor.patch" {
		return VersionExact, nil
	}

	var mode VersionMode
	if err := versionModeNames.UnmarshalFromNameJSON(quoteName(value), &mode); err != nil {
		return 0, fmt.Errorf("unsupported version_style '%s'", value)
	}
	return mode, nil
}

// TableVariant selects which pre-aggregated fact table is queried.
type TableVariant int8

const (
	TableInstallerTypeCountry TableVariant = iota + 1
	TablePythonCountry
)

var tableVariantNames = enumnames.NewMap(map[TableVariant]string{
	TableInstallerTypeCountry: "installer_type_country",
	TablePythonCountry:        "python_country",
})

func (variant TableVariant) IsValid() bool {
	return tableVariantNames.ContainsEnumValue(variant)
}

func (variant TableVariant) String() string {
	return tableVariantNames.GetNameOrFallback(variant, "INVALID_TABLE")
}

func (variant TableVariant) MarshalJSON() ([]byte, error) {
	return tableVariantNames.MarshalToNameJSON(variant)
}

func (variant *TableVariant) UnmarshalJSON(bytes []byte) error {
	return tableVariantNames.UnmarshalFromNameJSON(bytes, variant)
}

// UnmarshalText lets the variant be read straight from env config.
func (variant *TableVariant) UnmarshalText(text []byte) error {
	parsed, err := ParseTableVariant(string(text))
	if err != nil {
		return err
	}
	*variant = parsed
	return nil
}

func ParseTableVariant(value string) (TableVariant, error) {
	var variant TableVariant
	if err := tableVariantNames.UnmarshalFromNameJSON(quoteName(value), &variant); err != nil {
		return 0, fmt.Errorf("unsupported table '%s'", value)
	}
	return variant, nil
}

func quoteName(value string) []byte {
	return []byte(strconv.Quote(strings.ToLower(strings.TrimSpace(value))))
}
