package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	assert.ErrorIs(t, &MalformedRecordError{Line: 3, Reason: "missing tab"}, ErrMalformedRecord)
	assert.ErrorIs(t, &NotFoundError{DocID: 9}, ErrNotFound)
	assert.ErrorIs(t, &EmptyQueryError{Raw: "???"}, ErrEmptyQuery)

	wrapped := fmt.Errorf("loading benchmark: %w", &MalformedRecordError{Path: "b.txt", Line: 2, Reason: "bad id"})
	assert.ErrorIs(t, wrapped, ErrMalformedRecord)
	assert.Equal(t, "loading benchmark: malformed record at b.txt:2: bad id", wrapped.Error())
}

func TestAppErrorUnwraps(t *testing.T) {
	err := Newf(ErrIOFailure, "opening %s", "movies.txt")
	assert.ErrorIs(t, err, ErrIOFailure)
	assert.Equal(t, "io failure: opening movies.txt", err.Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"io", New(ErrIOFailure, "x"), ExitIO},
		{"malformed", &MalformedRecordError{Line: 1}, ExitMalformed},
		{"not found", fmt.Errorf("fetch: %w", &NotFoundError{DocID: 1}), ExitNotFound},
		{"corrupt", New(ErrCorruptSegment, "bad magic"), ExitCorrupt},
		{"usage", New(ErrInvalidInput, "bad flag"), ExitUsage},
		{"other", errors.New("boom"), ExitInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
