package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"better-pypi-stats/internal/config"
	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/testdata/mockclickhouseconnection"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type DBTestSuite struct {
	suite.Suite

	connMock *mockclickhouseconnection.Connection
}

func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func (s *DBTestSuite) SetupTest() {
	s.connMock = &mockclickhouseconnection.Connection{}
}

func (s *DBTestSuite) TearDownTest() {
	s.connMock.AssertExpectations(s.T())
}

func (s *DBTestSuite) TestConnectionOptions_HTTP() {
	options := connectionOptions(config.ClickHouse{
		Address:      "clickpy-clickhouse.clickhouse.com:443",
		DatabaseName: "pypi",
		Username:     "play",
		Protocol:     "http",
		TLS:          true,
		DialTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	})

	s.Equal([]string{"clickpy-clickhouse.clickhouse.com:443"}, options.Addr)
	s.Equal("pypi", options.Auth.Database)
	s.Equal("play", options.Auth.Username)
	s.Equal(clickhouse.HTTP, options.Protocol)
	s.Equal(clickhouse.CompressionGZIP, options.Compression.Method)
	s.NotNil(options.TLS)
	s.Equal(5*time.Second, options.DialTimeout)
	s.Equal(4, options.MaxOpenConns)
}

func (s *DBTestSuite) TestConnectionOptions_Native() {
	options := connectionOptions(config.ClickHouse{Address: "localhost:9000", Protocol: "native"})

	s.Equal(clickhouse.Native, options.Protocol)
	s.Equal(clickhouse.CompressionLZ4, options.Compression.Method)
	s.Nil(options.TLS)
}

func (s *DBTestSuite) TestEnsureSchema_CreatesEveryTable() {
	for _, schema := range model.Schemas() {
		s.connMock.On("Exec", mock.Anything, createTableStatement(schema)).Return(nil).Once()
	}

	s.NoError(EnsureSchema(context.Background(), s.connMock))
}

func (s *DBTestSuite) TestEnsureSchema_Error() {
	expectedErr := errors.New("Code: 497. DB::Exception: play: Not enough privileges")
	s.connMock.On("Exec", mock.Anything, mock.Anything).Return(expectedErr).Once()

	err := EnsureSchema(context.Background(), s.connMock)
	s.ErrorIs(err, expectedErr)
	s.ErrorContains(err, "pypi_downloads_per_day_by_version_by_installer_by_type_by_country")
}

func (s *DBTestSuite) TestCreateTableStatements_MatchSchemas() {
	for _, schema := range model.Schemas() {
		statement := createTableStatement(schema)
		s.Contains(statement, schema.Table)
		for _, column := range schema.Dimensions {
			s.Contains(statement, column)
		}
	}
}

func (s *DBTestSuite) TestCreateTableStatement_FollowsDescriptor() {
	statement := createTableStatement(model.TableSchema{
		Table:         "downloads_by_country",
		ProjectColumn: "package",
		VersionColumn: "release",
		DateColumn:    "day",
		CountColumn:   "hits",
		Dimensions: map[model.GroupDimension]string{
			model.DimensionVersion: "release",
			model.DimensionCountry: "cc",
		},
	})

	s.Equal(
		"CREATE TABLE IF NOT EXISTS `downloads_by_country`\n(\n"+
			"\t`package` String,\n"+
			"\t`release` String,\n"+
			"\t`day` Date,\n"+
			"\t`cc` LowCardinality(String),\n"+
			"\t`hits` Int64\n"+
			")\nENGINE = SummingMergeTree\n"+
			"ORDER BY (`package`, `release`, `day`, `cc`)",
		statement,
	)
}

func (s *DBTestSuite) TestCreateTableStatement_InstallerTable() {
	schema, ok := model.SchemaFor(model.TableInstallerTypeCountry)
	s.Require().True(ok)

	s.Contains(
		createTableStatement(schema),
		"ORDER BY (`project`, `version`, `date`, `installer`, `type`, `country_code`)",
	)
}
