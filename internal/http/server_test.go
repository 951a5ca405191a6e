package http

import (
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"better-pypi-stats/internal/config"
	"better-pypi-stats/internal/controller"
	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/observability"
	"better-pypi-stats/internal/repository"
	"better-pypi-stats/internal/service"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

type ServerTestSuite struct {
	suite.Suite

	server *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	events, err := repository.LoadFixture(filepath.Join("..", "repository", "testdata", "downloads.json"))
	s.Require().NoError(err)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	repo := repository.NewInstrumentedRepository(repository.NewMemoryRepository(events), metrics)

	svc := service.NewDownloadService(repo, nil, model.TableInstallerTypeCountry)
	s.server = NewServer(
		&config.Config{},
		controller.NewDownloadController(svc),
		controller.NewHealthController(nil, 0),
		registry,
	)
}

func (s *ServerTestSuite) get(target string) (int, string, *nethttp.Response) {
	resp, err := s.server.App().Test(httptest.NewRequest(nethttp.MethodGet, target, nil), -1)
	s.Require().NoError(err)

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, string(body), resp
}

func (s *ServerTestSuite) TestDownloads() {
	status, body, resp := s.get("/api/v1/projects/pyarrow/downloads?start=2024-05-01&end=2024-05-07&group_by=version&running_total=true")
	s.Require().Equal(nethttp.StatusOK, status, body)
	s.NotEmpty(resp.Header.Get("X-Request-ID"))

	var decoded model.DownloadsResponse
	s.Require().NoError(json.Unmarshal([]byte(body), &decoded))

	s.Equal("pyarrow", decoded.Meta.Project)
	s.True(decoded.Meta.RunningTotal)
	s.Len(decoded.Data.Rows, 14)
	s.Equal([]string{"16", "15"}, decoded.Data.Categories)

	last := decoded.Data.Rows[len(decoded.Data.Rows)-1]
	s.Require().NotNil(last.RunningTotal)
	s.Equal(uint64(8421), *last.RunningTotal)
}

func (s *ServerTestSuite) TestSummary() {
	status, body, _ := s.get("/api/v1/projects/pyarrow/summary?start=2024-05-01&end=2024-05-07&version_style=exact")
	s.Require().Equal(nethttp.StatusOK, status, body)

	s.JSONEq(`{
		"meta": {
			"project": "pyarrow",
			"table": "installer_type_country",
			"period": {"start": "2024-05-01", "end": "2024-05-07"},
			"version_style": "exact"
		},
		"data": {"total_downloads": 25893, "total_versions": 3, "total_days": 5}
	}`, body)
}

func (s *ServerTestSuite) TestUnknownProjectReturnsEmptyRows() {
	status, body, _ := s.get("/api/v1/projects/nonexistent-package-xyz/downloads")
	s.Require().Equal(nethttp.StatusOK, status)
	s.Contains(body, `"rows":[]`)
}

func (s *ServerTestSuite) TestValidationErrorIsJSON() {
	status, body, _ := s.get("/api/v1/projects/pyarrow/downloads?table=python_country&group_by=installer")
	s.Equal(nethttp.StatusBadRequest, status)
	s.JSONEq(`{"error":"table 'python_country' cannot be grouped by installer"}`, body)
}

func (s *ServerTestSuite) TestHealthAndMetrics() {
	status, body, _ := s.get("/health")
	s.Equal(nethttp.StatusOK, status)
	s.JSONEq(`{"status":"ok"}`, body)

	s.get("/api/v1/projects/pyarrow/weekdays")

	status, body, _ = s.get("/metrics")
	s.Equal(nethttp.StatusOK, status)
	s.Contains(body, `pypistats_store_queries_total{operation="weekdays",status="ok"} 1`)
}
