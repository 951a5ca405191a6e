package mockservice

import (
	"context"

	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/service"

	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

var _ service.DownloadService = &Service{}

func (m *Service) Aggregate(ctx context.Context, params model.QueryParameters) (model.AggregatedResult, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.AggregatedResult), args.Error(1)
}

func (m *Service) GetDownloads(ctx context.Context, filter model.DownloadsFilter) (model.DownloadsResponse, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(model.DownloadsResponse), args.Error(1)
}

func (m *Service) GetRollingDownloads(ctx context.Context, filter model.DownloadsFilter) (model.DownloadsResponse, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(model.DownloadsResponse), args.Error(1)
}

func (m *Service) GetSummary(ctx context.Context, filter model.DownloadsFilter) (model.SummaryResponse, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(model.SummaryResponse), args.Error(1)
}

func (m *Service) GetBreakdown(ctx context.Context, filter model.DownloadsFilter) (model.BreakdownResponse, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(model.BreakdownResponse), args.Error(1)
}

func (m *Service) GetWeekdays(ctx context.Context, filter model.DownloadsFilter) (model.WeekdayResponse, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(model.WeekdayResponse), args.Error(1)
}

func (m *Service) ResolveRange(ctx context.Context, filter model.DownloadsFilter) (model.RangeResponse, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(model.RangeResponse), args.Error(1)
}
