package mockclickhouserows

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Rows replays a fixed result set. Each value is assigned to the matching Scan
// destination, which must be a pointer to the value's type.
type Rows struct {
	Values  [][]any
	ScanErr error
	IterErr error

	cursor int
	Closed bool
}

var _ driver.Rows = &Rows{}

func New(values ...[]any) *Rows {
	return &Rows{Values: values}
}

func (r *Rows) Next() bool {
	if r.cursor >= len(r.Values) {
		return false
	}
	r.cursor++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.ScanErr != nil {
		return r.ScanErr
	}
	if r.cursor == 0 {
		return errors.New("Scan called before Next")
	}
	return assign(r.Values[r.cursor-1], dest)
}

func (r *Rows) ScanStruct(any) error {
	return errors.New("ScanStruct not supported by mock rows")
}

func (r *Rows) ColumnTypes() []driver.ColumnType {
	return nil
}

func (r *Rows) Totals(...any) error {
	return nil
}

func (r *Rows) Columns() []string {
	return nil
}

func (r *Rows) Close() error {
	r.Closed = true
	return nil
}

func (r *Rows) Err() error {
	return r.IterErr
}

// Row is the single-row counterpart of Rows.
type Row struct {
	Values []any
	ErrVal error
}

var _ driver.Row = &Row{}

func NewRow(values ...any) *Row {
	return &Row{Values: values}
}

func (r *Row) Err() error {
	return r.ErrVal
}

func (r *Row) Scan(dest ...any) error {
	if r.ErrVal != nil {
		return r.ErrVal
	}
	return assign(r.Values, dest)
}

func (r *Row) ScanStruct(any) error {
	return errors.New("ScanStruct not supported by mock row")
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("expected %d scan destinations, got %d", len(values), len(dest))
	}

	for i, value := range values {
		target := reflect.ValueOf(dest[i])
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("scan destination %d is not a pointer", i)
		}

		source := reflect.ValueOf(value)
		if !source.Type().AssignableTo(target.Elem().Type()) {
			return fmt.Errorf("cannot scan %T into %T", value, dest[i])
		}
		target.Elem().Set(source)
	}

	return nil
}
