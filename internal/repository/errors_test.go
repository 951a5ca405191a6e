package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/column"
	"github.com/ClickHouse/clickhouse-go/v2/lib/proto"
	"github.com/stretchr/testify/suite"
)

type ErrorsTestSuite struct {
	suite.Suite
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}

func (s *ErrorsTestSuite) TestNil() {
	s.NoError(classifyError(nil))
}

func (s *ErrorsTestSuite) TestException_IsQueryError() {
	exception := &proto.Exception{Code: 47, Name: "DB::Exception", Message: "Missing columns: 'nope'"}

	err := classifyError(fmt.Errorf("query: %w", exception))

	var queryErr *QueryError
	s.Require().ErrorAs(err, &queryErr)
	s.Equal(int32(47), queryErr.Code)
	s.ErrorIs(err, exception)
}

func (s *ErrorsTestSuite) TestException_AuthenticationIsConnectionError() {
	err := classifyError(&proto.Exception{Code: 516, Message: "play: Authentication failed"})

	var connErr *ConnectionError
	s.ErrorAs(err, &connErr)
}

func (s *ErrorsTestSuite) TestHTTPException() {
	err := classifyError(errors.New(
		"clickhouse [execute]:: 404 code: Code: 60. DB::Exception: Unknown table expression identifier 'pypi.nope'",
	))

	var queryErr *QueryError
	s.Require().ErrorAs(err, &queryErr)
	s.Equal(int32(60), queryErr.Code)

	err = classifyError(errors.New("clickhouse [execute]:: 403 code: Code: 194. DB::Exception: password required"))
	var connErr *ConnectionError
	s.ErrorAs(err, &connErr)
}

func (s *ErrorsTestSuite) TestTransportFailure_IsConnectionError() {
	dialErr := errors.New("dial tcp: lookup clickpy-clickhouse.clickhouse.com: no such host")

	err := classifyError(dialErr)

	var connErr *ConnectionError
	s.Require().ErrorAs(err, &connErr)
	s.ErrorIs(err, dialErr)
}

func (s *ErrorsTestSuite) TestNetworkFailure_IsConnectionError() {
	for _, err := range []error{
		&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
		fmt.Errorf("read: %w", io.ErrUnexpectedEOF),
		io.EOF,
	} {
		var connErr *ConnectionError
		s.ErrorAs(classifyError(err), &connErr, err.Error())
	}
}

func (s *ErrorsTestSuite) TestScanConversion_IsQueryError() {
	scanErr := &clickhouse.OpError{
		Op:         "ScanRow",
		ColumnName: "downloads",
		Err: &column.ColumnConverterError{
			Op:   "ScanRow",
			To:   "*string",
			From: "UInt64",
		},
	}

	err := classifyError(scanErr)

	var queryErr *QueryError
	s.Require().ErrorAs(err, &queryErr)
	s.ErrorIs(err, scanErr)

	var connErr *ConnectionError
	s.False(errors.As(err, &connErr))
}

func (s *ErrorsTestSuite) TestColumnConverter_IsQueryError() {
	err := classifyError(fmt.Errorf("scan: %w", &column.ColumnConverterError{Op: "ScanRow", To: "*uint8", From: "Date"}))

	var queryErr *QueryError
	s.ErrorAs(err, &queryErr)
}

func (s *ErrorsTestSuite) TestBindFailure_IsQueryError() {
	err := classifyError(errors.New("clickhouse [bind]: have no arg for param at position 2"))

	var queryErr *QueryError
	s.Require().ErrorAs(err, &queryErr)
	s.Zero(queryErr.Code)

	var connErr *ConnectionError
	s.False(errors.As(err, &connErr))
}

func (s *ErrorsTestSuite) TestUnknownError_IsConnectionError() {
	err := classifyError(errors.New("unexpected packet [42] from server"))

	var connErr *ConnectionError
	s.ErrorAs(err, &connErr)
}

func (s *ErrorsTestSuite) TestContextErrors_PassThrough() {
	s.Equal(context.Canceled, classifyError(context.Canceled))

	wrapped := fmt.Errorf("read: %w", context.DeadlineExceeded)
	s.Equal(wrapped, classifyError(wrapped))
}

func (s *ErrorsTestSuite) TestAlreadyClassified() {
	original := &QueryError{Code: 1, Err: errors.New("x")}
	s.Same(original, classifyError(original))
}
