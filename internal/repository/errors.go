package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/column"
	"github.com/ClickHouse/clickhouse-go/v2/lib/proto"
)

// ConnectionError is returned when the analytical store cannot be reached or
// refuses the session.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("clickhouse unavailable: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError is returned when the store rejects a query.
type QueryError struct {
	Code int32
	Err  error
}

func (e *QueryError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("clickhouse query failed (code %d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("clickhouse query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Exception codes that mean the session itself was refused.
// See https://github.com/ClickHouse/ClickHouse/blob/master/src/Common/ErrorCodes.cpp
var authenticationCodes = map[int32]bool{
	192: true, // UNKNOWN_USER
	193: true, // WRONG_PASSWORD
	194: true, // REQUIRED_PASSWORD
	516: true, // AUTHENTICATION_FAILED
}

// The HTTP transport reports server exceptions as text only.
var httpExceptionCode = regexp.MustCompile(`Code: (\d+)\. DB::Exception`)

// Prefix of the driver's parameter binding errors.
const bindErrorPrefix = "clickhouse [bind]"

// classifyError sorts a driver error into ConnectionError or QueryError.
// Context cancellation is passed through so callers can tell it apart.
// Transport failures and errors of unknown origin are ConnectionError.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var connErr *ConnectionError
	var queryErr *QueryError
	if errors.As(err, &connErr) || errors.As(err, &queryErr) {
		return err
	}

	var exception *proto.Exception
	if errors.As(err, &exception) {
		if authenticationCodes[exception.Code] {
			return &ConnectionError{Err: err}
		}
		return &QueryError{Code: exception.Code, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ConnectionError{Err: err}
	}

	if isClientQueryError(err) {
		return &QueryError{Err: err}
	}

	if match := httpExceptionCode.FindStringSubmatch(err.Error()); match != nil {
		code, _ := strconv.ParseInt(match[1], 10, 32)
		if authenticationCodes[int32(code)] {
			return &ConnectionError{Err: err}
		}
		return &QueryError{Code: int32(code), Err: err}
	}

	if strings.Contains(err.Error(), "DB::Exception") {
		return &QueryError{Err: err}
	}

	return &ConnectionError{Err: err}
}

// isClientQueryError reports whether the driver rejected the query shape
// itself: a scan or append type mismatch, or unbindable parameters.
func isClientQueryError(err error) bool {
	var opErr *clickhouse.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var converterErr *column.ColumnConverterError
	if errors.As(err, &converterErr) {
		return true
	}

	return strings.Contains(err.Error(), bindErrorPrefix)
}
