package mockrepository

import (
	"context"
	"time"

	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/repository"

	"github.com/stretchr/testify/mock"
)

type Repository struct {
	mock.Mock
}

// Interface compliance check
var _ repository.DownloadRepository = &Repository{}

func (m *Repository) Aggregate(ctx context.Context, params model.QueryParameters) ([]model.AggregatedRow, error) {
	args := m.Called(ctx, params)
	rows, _ := args.Get(0).([]model.AggregatedRow)
	return rows, args.Error(1)
}

func (m *Repository) Breakdown(ctx context.Context, params model.QueryParameters) ([]model.GroupTotal, error) {
	args := m.Called(ctx, params)
	groups, _ := args.Get(0).([]model.GroupTotal)
	return groups, args.Error(1)
}

func (m *Repository) Weekdays(ctx context.Context, params model.QueryParameters) (map[time.Weekday]uint64, error) {
	args := m.Called(ctx, params)
	weekdays, _ := args.Get(0).(map[time.Weekday]uint64)
	return weekdays, args.Error(1)
}

func (m *Repository) Totals(ctx context.Context, params model.QueryParameters) (model.Totals, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.Totals), args.Error(1)
}

func (m *Repository) FirstDate(ctx context.Context, params model.QueryParameters) (time.Time, bool, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}
