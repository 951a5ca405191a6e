package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"better-pypi-stats/internal/model"

	"hermannm.dev/enumnames"
)

// See https://clickhouse.com/docs/en/sql-reference/functions/date-time-functions
var clickhouseBucketFunctions = enumnames.NewMap(map[model.Granularity]string{
	model.GranularityDay:     "toDate",
	model.GranularityWeek:    "toMonday",
	model.GranularityMonth:   "toStartOfMonth",
	model.GranularityQuarter: "toStartOfQuarter",
	model.GranularityYear:    "toStartOfYear",
})

var errNotGrouped = errors.New("breakdown requires a grouping dimension")

// queryBuilder accumulates SQL text and its positional arguments.
type queryBuilder struct {
	strings.Builder
	args []any
}

func (builder *queryBuilder) WriteInt(i int) {
	builder.WriteString(strconv.Itoa(i))
}

// Must only be called after calling validateIdentifier on the given identifier.
func (builder *queryBuilder) WriteIdentifier(identifier string) {
	builder.WriteRune('`')
	builder.WriteString(identifier)
	builder.WriteRune('`')
}

// WriteArg writes a placeholder and binds value to it.
func (builder *queryBuilder) WriteArg(value any) {
	builder.WriteRune('?')
	builder.args = append(builder.args, value)
}

func (builder *queryBuilder) Args() []any {
	return builder.args
}

func (builder *queryBuilder) WriteBucket(schema model.TableSchema, bucket model.Granularity) error {
	function, ok := clickhouseBucketFunctions.GetName(bucket)
	if !ok {
		return fmt.Errorf("invalid bucket granularity '%v'", bucket)
	}

	builder.WriteString(function)
	builder.WriteRune('(')
	builder.WriteIdentifier(schema.DateColumn)
	builder.WriteRune(')')
	return nil
}

// WriteVersion writes the version column, cut down to the leading segments
// kept by mode. Versions with fewer segments keep what they have.
func (builder *queryBuilder) WriteVersion(schema model.TableSchema, mode model.VersionMode) {
	segments := mode.Segments()
	if segments == 0 {
		builder.WriteIdentifier(schema.VersionColumn)
		return
	}

	builder.WriteString("arrayStringConcat(arraySlice(splitByChar('.', toString(")
	builder.WriteIdentifier(schema.VersionColumn)
	builder.WriteString(")), 1, ")
	builder.WriteInt(segments)
	builder.WriteString("), '.')")
}

// WriteGroupKey writes the expression of the secondary group-by key, or an
// empty string literal when the query is not grouped.
func (builder *queryBuilder) WriteGroupKey(schema model.TableSchema, params model.QueryParameters) error {
	if !params.Grouped() {
		builder.WriteString("''")
		return nil
	}

	if params.GroupBy == model.DimensionVersion {
		builder.WriteVersion(schema, params.VersionMode)
		return nil
	}

	column, ok := schema.DimensionColumn(params.GroupBy)
	if !ok {
		return fmt.Errorf("table '%s' cannot be grouped by %s", schema.Table, params.GroupBy)
	}

	builder.WriteString("toString(")
	builder.WriteIdentifier(column)
	builder.WriteRune(')')
	return nil
}

// WriteFilter writes the WHERE clause: the project, plus whichever date bounds
// are set.
func (builder *queryBuilder) WriteFilter(schema model.TableSchema, params model.QueryParameters) {
	builder.WriteString(" WHERE ")
	builder.WriteIdentifier(schema.ProjectColumn)
	builder.WriteString(" = ")
	builder.WriteArg(params.Project)

	if !params.Start.IsZero() {
		builder.WriteString(" AND ")
		builder.WriteIdentifier(schema.DateColumn)
		builder.WriteString(" >= toDate(")
		builder.WriteArg(params.Start.UTC().Format(model.DateLayout))
		builder.WriteRune(')')
	}

	if !params.End.IsZero() {
		builder.WriteString(" AND ")
		builder.WriteIdentifier(schema.DateColumn)
		builder.WriteString(" <= toDate(")
		builder.WriteArg(params.End.UTC().Format(model.DateLayout))
		builder.WriteRune(')')
	}
}

func (builder *queryBuilder) WriteSum(schema model.TableSchema) {
	builder.WriteString("toUInt64(sum(")
	builder.WriteIdentifier(schema.CountColumn)
	builder.WriteString("))")
}

func validateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("empty identifier is incompatible with database")
	}
	if strings.ContainsRune(identifier, '`') {
		return fmt.Errorf("'%s' contains `, which is incompatible with database", identifier)
	}

	return nil
}

func validateSchema(schema model.TableSchema) error {
	identifiers := []string{
		schema.Table,
		schema.ProjectColumn,
		schema.VersionColumn,
		schema.DateColumn,
		schema.CountColumn,
	}
	for _, column := range schema.Dimensions {
		identifiers = append(identifiers, column)
	}

	for _, identifier := range identifiers {
		if err := validateIdentifier(identifier); err != nil {
			return err
		}
	}

	return nil
}

func schemaFor(params model.QueryParameters) (model.TableSchema, error) {
	schema, ok := model.SchemaFor(params.Table)
	if !ok {
		return model.TableSchema{}, fmt.Errorf("unknown table variant '%v'", params.Table)
	}
	if err := validateSchema(schema); err != nil {
		return model.TableSchema{}, err
	}
	return schema, nil
}

func buildAggregateQuery(params model.QueryParameters) (string, []any, error) {
	schema, err := schemaFor(params)
	if err != nil {
		return "", nil, err
	}

	var query queryBuilder
	query.WriteString("SELECT ")
	if err := query.WriteBucket(schema, params.Bucket); err != nil {
		return "", nil, err
	}
	query.WriteString(" AS bucket, ")
	if err := query.WriteGroupKey(schema, params); err != nil {
		return "", nil, err
	}
	query.WriteString(" AS group_key, ")
	query.WriteSum(schema)
	query.WriteString(" AS downloads FROM ")
	query.WriteIdentifier(schema.Table)
	query.WriteFilter(schema, params)
	query.WriteString(" GROUP BY bucket, group_key")
	query.WriteString(" ORDER BY bucket ASC, downloads DESC, group_key ASC")

	return query.String(), query.Args(), nil
}

func buildBreakdownQuery(params model.QueryParameters) (string, []any, error) {
	if !params.Grouped() {
		return "", nil, errNotGrouped
	}

	schema, err := schemaFor(params)
	if err != nil {
		return "", nil, err
	}

	var query queryBuilder
	query.WriteString("SELECT ")
	if err := query.WriteGroupKey(schema, params); err != nil {
		return "", nil, err
	}
	query.WriteString(" AS group_key, ")
	query.WriteSum(schema)
	query.WriteString(" AS downloads FROM ")
	query.WriteIdentifier(schema.Table)
	query.WriteFilter(schema, params)
	query.WriteString(" GROUP BY group_key")
	query.WriteString(" ORDER BY downloads DESC, group_key ASC")

	return query.String(), query.Args(), nil
}

func buildWeekdayQuery(params model.QueryParameters) (string, []any, error) {
	schema, err := schemaFor(params)
	if err != nil {
		return "", nil, err
	}

	var query queryBuilder
	query.WriteString("SELECT toDayOfWeek(")
	query.WriteIdentifier(schema.DateColumn)
	query.WriteString(") AS weekday, ")
	query.WriteSum(schema)
	query.WriteString(" AS downloads FROM ")
	query.WriteIdentifier(schema.Table)
	query.WriteFilter(schema, params)
	query.WriteString(" GROUP BY weekday ORDER BY weekday ASC")

	return query.String(), query.Args(), nil
}

func buildTotalsQuery(params model.QueryParameters) (string, []any, error) {
	schema, err := schemaFor(params)
	if err != nil {
		return "", nil, err
	}

	var query queryBuilder
	query.WriteString("SELECT ")
	query.WriteSum(schema)
	query.WriteString(" AS downloads, toUInt64(uniqExact(")
	query.WriteVersion(schema, params.VersionMode)
	query.WriteString(")) AS versions FROM ")
	query.WriteIdentifier(schema.Table)
	query.WriteFilter(schema, params)

	return query.String(), query.Args(), nil
}

func buildFirstDateQuery(params model.QueryParameters) (string, []any, error) {
	schema, err := schemaFor(params)
	if err != nil {
		return "", nil, err
	}

	var query queryBuilder
	query.WriteString("SELECT min(")
	query.WriteIdentifier(schema.DateColumn)
	query.WriteString(") AS first_date, count() AS row_count FROM ")
	query.WriteIdentifier(schema.Table)
	query.WriteFilter(schema, model.QueryParameters{Project: params.Project})

	return query.String(), query.Args(), nil
}
