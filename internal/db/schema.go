package db

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"hermannm.dev/wrap"

	"better-pypi-stats/internal/model"
)

// EnsureSchema creates the download fact tables when missing, for local
// development against an empty server. The hosted dataset already has them.
func EnsureSchema(ctx context.Context, conn driver.Conn) error {
	for _, schema := range model.Schemas() {
		if err := conn.Exec(ctx, createTableStatement(schema)); err != nil {
			return wrap.Errorf(err, "failed to create table '%s'", schema.Table)
		}
		slog.Info("ensured download table", slog.String("table", schema.Table))
	}
	return nil
}

// Dimension columns in sort-key order, with their ClickHouse types.
var dimensionColumns = []struct {
	dimension  model.GroupDimension
	columnType string
}{
	{model.DimensionInstaller, "LowCardinality(String)"},
	{model.DimensionType, "LowCardinality(String)"},
	{model.DimensionPythonMinor, "String"},
	{model.DimensionCountry, "LowCardinality(String)"},
}

// createTableStatement renders the SummingMergeTree DDL of a fact table from
// its descriptor. The sort key is every column except the count.
func createTableStatement(schema model.TableSchema) string {
	type columnDef struct {
		name       string
		columnType string
	}

	columns := []columnDef{
		{schema.ProjectColumn, "String"},
		{schema.VersionColumn, "String"},
		{schema.DateColumn, "Date"},
	}
	for _, dimension := range dimensionColumns {
		name, ok := schema.DimensionColumn(dimension.dimension)
		if !ok {
			continue
		}
		columns = append(columns, columnDef{name, dimension.columnType})
	}

	var statement strings.Builder
	statement.WriteString("CREATE TABLE IF NOT EXISTS ")
	writeIdentifier(&statement, schema.Table)
	statement.WriteString("\n(\n")
	for _, column := range columns {
		statement.WriteString("\t")
		writeIdentifier(&statement, column.name)
		statement.WriteString(" ")
		statement.WriteString(column.columnType)
		statement.WriteString(",\n")
	}
	statement.WriteString("\t")
	writeIdentifier(&statement, schema.CountColumn)
	statement.WriteString(" Int64\n)\nENGINE = SummingMergeTree\nORDER BY (")
	for i, column := range columns {
		if i > 0 {
			statement.WriteString(", ")
		}
		writeIdentifier(&statement, column.name)
	}
	statement.WriteString(")")

	return statement.String()
}

func writeIdentifier(builder *strings.Builder, identifier string) {
	builder.WriteRune('`')
	builder.WriteString(identifier)
	builder.WriteRune('`')
}
