package validation

import (
	"testing"

	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(registry.Default())
	require.NoError(t, err)
	return v
}

func TestValidate(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name      string
		taskType  string
		variables string
		valid     bool
		code      string
		contains  string
	}{
		{
			name:      "score with subject only",
			taskType:  "score-subject",
			variables: `{"subjectId":"s-1"}`,
			valid:     true,
		},
		{
			name:      "score without subject",
			taskType:  "score-subject",
			variables: `{"forceRecompute":true}`,
			code:      "REQUIRED",
			contains:  "subjectId",
		},
		{
			name:      "unknown event type",
			taskType:  "apply-transaction",
			variables: `{"subjectId":"s-1","event":{"type":"gift","amount":10}}`,
			code:      "ENUM",
		},
		{
			name:      "negative event amount",
			taskType:  "apply-transaction",
			variables: `{"subjectId":"s-1","event":{"type":"regular_payment","amount":-5}}`,
			code:      "NUMBER_GTE",
		},
		{
			name:      "unknown product",
			taskType:  "check-eligibility",
			variables: `{"subjectId":"s-1","productType":"mortgage"}`,
			code:      "ENUM",
		},
		{
			name:      "empty variables for optional-only task",
			taskType:  "recalculate-scores",
			variables: ``,
			valid:     true,
		},
		{
			name:      "task without schema",
			taskType:  "not-registered",
			variables: `{"anything":1}`,
			valid:     true,
		},
		{
			name:      "malformed json",
			taskType:  "score-subject",
			variables: `{"subjectId":`,
			code:      "MALFORMED_JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.taskType, tt.variables)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.Empty(t, res.Errors)
				return
			}
			require.NotEmpty(t, res.Errors)
			assert.Equal(t, tt.code, res.Errors[0].Code)
			if tt.contains != "" {
				assert.Contains(t, res.Errors[0].Message, tt.contains)
			}
		})
	}
}

func TestValidate_TransactionEventContent(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name  string
		event string
		valid bool
	}{
		{"income update with amount", `{"type":"income_update","amount":1200000}`, true},
		{"income update with new income", `{"type":"income_update","metadata":{"newIncome":1200000}}`, true},
		{"income update without income", `{"type":"income_update"}`, false},
		{"income update with zero amount", `{"type":"income_update","amount":0}`, false},
		{"income update with zero new income", `{"type":"income_update","metadata":{"newIncome":0}}`, false},
		{"employment change", `{"type":"employment_change","metadata":{"newEmployment":"civil_servant"}}`, true},
		{"employment change without metadata", `{"type":"employment_change"}`, false},
		{"employment change without new employment", `{"type":"employment_change","metadata":{"previousEmployment":"other"}}`, false},
		{"employment change to unknown type", `{"type":"employment_change","metadata":{"newEmployment":"astronaut"}}`, false},
		{"payment needs no metadata", `{"type":"regular_payment"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate("apply-transaction", `{"subjectId":"s-1","event":`+tt.event+`}`)
			assert.Equal(t, tt.valid, res.Valid, "%+v", res.Errors)
		})
	}
}

func TestCheck_ReturnsPayloadValidationError(t *testing.T) {
	v := newValidator(t)

	err := v.Check("score-history", `{"subjectId":"s-1","limit":0}`)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePayloadValidationFailed))

	assert.NoError(t, v.Check("score-history", `{"subjectId":"s-1","limit":20}`))
}
