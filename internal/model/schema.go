package model

// TableSchema statically describes one fact-table variant: which column plays
// which role, and which grouping dimensions the table carries.
type TableSchema struct {
	Variant       TableVariant
	Table         string
	ProjectColumn string
	VersionColumn string
	DateColumn    string
	CountColumn   string
	Dimensions    map[GroupDimension]string
}

// DimensionColumn returns the column backing a grouping dimension.
func (schema TableSchema) DimensionColumn(dimension GroupDimension) (string, bool) {
	column, ok := schema.Dimensions[dimension]
	return column, ok
}

// Supports reports whether the table can be grouped by the given dimension.
// DimensionNone is always supported.
func (schema TableSchema) Supports(dimension GroupDimension) bool {
	if dimension == DimensionNone {
		return true
	}
	_, ok := schema.Dimensions[dimension]
	return ok
}

var schemas = map[TableVariant]TableSchema{
	TableInstallerTypeCountry: {
		Variant:       TableInstallerTypeCountry,
		Table:         "pypi_downloads_per_day_by_version_by_installer_by_type_by_country",
		ProjectColumn: "project",
		VersionColumn: "version",
		DateColumn:    "date",
		CountColumn:   "count",
		Dimensions: map[GroupDimension]string{
			DimensionVersion:   "version",
			DimensionCountry:   "country_code",
			DimensionInstaller: "installer",
			DimensionType:      "type",
		},
	},
	TablePythonCountry: {
		Variant:       TablePythonCountry,
		Table:         "pypi_downloads_per_day_by_version_by_python_by_country",
		ProjectColumn: "project",
		VersionColumn: "version",
		DateColumn:    "date",
		CountColumn:   "count",
		Dimensions: map[GroupDimension]string{
			DimensionVersion:     "version",
			DimensionCountry:     "country_code",
			DimensionPythonMinor: "python_minor",
		},
	},
}

// SchemaFor returns the descriptor of a table variant.
func SchemaFor(variant TableVariant) (TableSchema, bool) {
	schema, ok := schemas[variant]
	return schema, ok
}

// Schemas lists every declared variant, in variant order.
func Schemas() []TableSchema {
	return []TableSchema{schemas[TableInstallerTypeCountry], schemas[TablePythonCountry]}
}
