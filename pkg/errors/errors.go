// Package errors defines the error kinds shared by the indexer, searcher and
// evaluation packages, and maps them to process exit codes for the CLI.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrIOFailure       = errors.New("io failure")
	ErrMalformedRecord = errors.New("malformed record")
	ErrEmptyQuery      = errors.New("empty query")
	ErrNotFound        = errors.New("not found")
	ErrIndexSealed     = errors.New("index is sealed")
	ErrCorruptSegment  = errors.New("corrupt segment")
	ErrInvalidInput    = errors.New("invalid input")
)

// Exit codes returned by the CLI for each error kind.
const (
	ExitOK        = 0
	ExitInternal  = 1
	ExitUsage     = 2
	ExitIO        = 3
	ExitMalformed = 4
	ExitNotFound  = 5
	ExitCorrupt   = 6
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// MalformedRecordError reports a source line that is missing a required
// tab-separated column or carries an unparsable value.
type MalformedRecordError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed record at %s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed record at line %d: %s", e.Line, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// NotFoundError reports a lookup of a document id or field that the index
// never assigned.
type NotFoundError struct {
	DocID uint32
	Field string
}

func (e *NotFoundError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("document %d field %q not found", e.DocID, e.Field)
	}
	return fmt.Sprintf("document %d not found", e.DocID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// EmptyQueryError reports a raw query that produced no search terms.
type EmptyQueryError struct {
	Raw string
}

func (e *EmptyQueryError) Error() string {
	return fmt.Sprintf("query %q has no searchable terms", e.Raw)
}

func (e *EmptyQueryError) Is(target error) bool {
	return target == ErrEmptyQuery
}

// ExitCode maps an error to the CLI exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidInput):
		return ExitUsage
	case errors.Is(err, ErrIOFailure):
		return ExitIO
	case errors.Is(err, ErrMalformedRecord):
		return ExitMalformed
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrCorruptSegment):
		return ExitCorrupt
	default:
		return ExitInternal
	}
}
