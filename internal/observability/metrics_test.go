package observability

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
	registry *prometheus.Registry
	metrics  *Metrics
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (s *MetricsTestSuite) SetupTest() {
	s.registry = prometheus.NewRegistry()
	s.metrics = NewMetrics(s.registry)
}

func (s *MetricsTestSuite) TestObserveQuery() {
	s.metrics.ObserveQuery("aggregate", time.Now(), StatusOK)
	s.metrics.ObserveQuery("aggregate", time.Now(), StatusOK)
	s.metrics.ObserveQuery("aggregate", time.Now(), StatusQuery)

	s.Equal(2.0, testutil.ToFloat64(s.metrics.QueriesTotal.WithLabelValues("aggregate", StatusOK)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.QueriesTotal.WithLabelValues("aggregate", StatusQuery)))
	s.Equal(1, testutil.CollectAndCount(s.metrics.QueryDuration))
}

func (s *MetricsTestSuite) TestCacheCounters() {
	s.metrics.RecordCacheHit("downloads")
	s.metrics.RecordCacheMiss("downloads")
	s.metrics.RecordCacheMiss("downloads")
	s.metrics.RecordCacheShared("summary")

	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheHitsTotal.WithLabelValues("downloads")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.CacheMissesTotal.WithLabelValues("downloads")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheShared.WithLabelValues("summary")))
}

func (s *MetricsTestSuite) TestParseLevel() {
	s.Equal(slog.LevelDebug, ParseLevel("DEBUG"))
	s.Equal(slog.LevelWarn, ParseLevel("warning"))
	s.Equal(slog.LevelError, ParseLevel("error"))
	s.Equal(slog.LevelInfo, ParseLevel(""))
}

func (s *MetricsTestSuite) TestSetupLogger() {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	logger := SetupLogger(false, "warn")
	s.IsType(&slog.JSONHandler{}, logger.Handler())
	s.False(logger.Enabled(context.Background(), slog.LevelInfo))
	s.Same(logger, slog.Default())

	logger = SetupLogger(true, "debug")
	_, isJSON := logger.Handler().(*slog.JSONHandler)
	s.False(isJSON)
	s.True(logger.Enabled(context.Background(), slog.LevelDebug))
}
