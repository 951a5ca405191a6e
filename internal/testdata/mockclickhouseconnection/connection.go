package mockclickhouseconnection

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

type Connection struct {
	mock.Mock
}

var _ clickhouse.Conn = &Connection{}

// Variadic query arguments are flattened into the call, so expectations are
// written as On("Query", ctx, query, arg1, arg2, ...).
func flatten(ctx context.Context, query string, args []any) []any {
	callArgs := []any{ctx, query}
	return append(callArgs, args...)
}

func (m *Connection) Exec(ctx context.Context, query string, args ...any) error {
	return m.Called(flatten(ctx, query, args)...).Error(0)
}

func (m *Connection) PrepareBatch(
	ctx context.Context,
	query string,
	_ ...driver.PrepareBatchOption,
) (driver.Batch, error) {
	mockArgs := m.Called(ctx, query)
	if batch, ok := mockArgs.Get(0).(driver.Batch); ok {
		return batch, mockArgs.Error(1)
	}
	return nil, mockArgs.Error(1)
}

func (m *Connection) AsyncInsert(ctx context.Context, query string, wait bool, args ...any) error {
	callArgs := []any{ctx, query, wait}
	callArgs = append(callArgs, args...)
	return m.Called(callArgs...).Error(0)
}

func (m *Connection) Close() error {
	mockArgs := m.Called()
	return mockArgs.Error(0)
}

func (m *Connection) Contributors() []string {
	mockArgs := m.Called()
	return mockArgs.Get(0).([]string)
}

func (m *Connection) Ping(ctx context.Context) error {
	mockArgs := m.Called(ctx)
	return mockArgs.Error(0)
}

func (m *Connection) ServerVersion() (*driver.ServerVersion, error) {
	mockArgs := m.Called()
	if version, ok := mockArgs.Get(0).(*driver.ServerVersion); ok {
		return version, mockArgs.Error(1)
	}
	return nil, mockArgs.Error(1)
}

func (m *Connection) Select(ctx context.Context, dest any, query string, args ...any) error {
	callArgs := []any{ctx, dest, query}
	callArgs = append(callArgs, args...)
	return m.Called(callArgs...).Error(0)
}

func (m *Connection) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	mockArgs := m.Called(flatten(ctx, query, args)...)
	if rows, ok := mockArgs.Get(0).(driver.Rows); ok {
		return rows, mockArgs.Error(1)
	}
	return nil, mockArgs.Error(1)
}

func (m *Connection) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	mockArgs := m.Called(flatten(ctx, query, args)...)
	return mockArgs.Get(0).(driver.Row)
}

func (m *Connection) Stats() driver.Stats {
	mockArgs := m.Called()
	return mockArgs.Get(0).(driver.Stats)
}
