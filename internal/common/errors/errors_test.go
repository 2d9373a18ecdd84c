package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_ChainHelpers(t *testing.T) {
	cause := stderrors.New("duplicate key")
	err := fmt.Errorf("append score: %w", NewConcurrentUpdateConflictError("s-1", cause))

	assert.True(t, HasCode(err, ErrCodeConcurrentUpdateConflict))
	assert.False(t, HasCode(err, ErrCodeInvalidInput))
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &StandardError{Code: ErrCodeConcurrentUpdateConflict})

	stdErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "StandardError[CONCURRENT_UPDATE_CONFLICT]: Concurrent score update conflict", stdErr.Error())

	_, ok = As(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	in := NewSubjectNotFoundError("s-9")
	assert.Same(t, in, Normalize(in))

	out := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, out.Code)
	assert.Equal(t, "boom", out.Details)
	assert.False(t, out.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		retries   int
		retryable bool
		category  string
	}{
		{"database is retried", NewDatabaseQueryError("current score", stderrors.New("conn reset")), 3, true, "DATABASE"},
		{"search is retried", NewSearchQueryError("analytics", stderrors.New("503")), 3, true, "SEARCH"},
		{"notification is retried", NewNotificationSendError("sms", stderrors.New("throttled")), 3, true, "NOTIFICATION"},
		{"conflict is retried once", NewConcurrentUpdateConflictError("s-1", stderrors.New("dup")), 1, true, "STATE"},
		{"invalid input is final", NewInvalidInputError("subjectId is required"), 0, false, "VALIDATION"},
		{"unknown product is final", NewUnknownProductTypeError("yacht"), 0, false, "VALIDATION"},
		{"insufficient data is final", NewInsufficientDataError("3 samples"), 0, false, "MODEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), b.Code)
			assert.Equal(t, tt.retries, b.Retries)
			assert.Equal(t, tt.retryable, b.Retryable)
			assert.Equal(t, tt.category, GetErrorCategory(tt.err.Code))

			vars := b.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestWithMetadata(t *testing.T) {
	err := NewInvalidInputError("bad").WithMetadata("field", "monthlyIncome")
	assert.Equal(t, "monthlyIncome", err.Metadata["field"])
}
