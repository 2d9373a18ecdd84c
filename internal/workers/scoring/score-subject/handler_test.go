package scoresubject

import (
	"context"
	"testing"
	"time"

	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/common/validation"
	"microfinance-scoring/internal/models"
	"microfinance-scoring/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Score(ctx context.Context, subjectID string, profile *models.ApplicantProfile, force bool) (*models.ScoreRecord, error) {
	args := m.Called(ctx, subjectID, profile, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScoreRecord), args.Error(1)
}

func newHandler(t *testing.T, eng Scorer) *Handler {
	t.Helper()
	v, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: time.Second}, Dependencies{
		Engine:    eng,
		Validator: v,
		Logger:    logger.NewTestLogger(t),
	})
}

func TestProcess_UsesStoredProfileWhenAbsent(t *testing.T) {
	eng := &mockEngine{}
	rec := &models.ScoreRecord{SubjectID: "s-1", Score: 7.6667, Score850: 722, RiskTier: models.RiskLow, EligibleAmount: 540000}
	eng.On("Score", mock.Anything, "s-1", (*models.ApplicantProfile)(nil), false).Return(rec, nil)

	out, err := newHandler(t, eng).process(context.Background(), `{"subjectId":"s-1"}`)
	require.NoError(t, err)

	o := out.(*Output)
	assert.Equal(t, models.RiskLow, o.RiskTier)
	assert.Equal(t, int64(540000), o.EligibleAmount)
	assert.Same(t, rec, o.ScoreRecord)
	eng.AssertExpectations(t)
}

func TestProcess_PassesProfileAndForce(t *testing.T) {
	eng := &mockEngine{}
	eng.On("Score", mock.Anything, "s-2", mock.MatchedBy(func(p *models.ApplicantProfile) bool {
		return p != nil && p.MonthlyIncome == 2500000
	}), true).Return(&models.ScoreRecord{SubjectID: "s-2"}, nil)

	_, err := newHandler(t, eng).process(context.Background(),
		`{"subjectId":"s-2","forceRecompute":true,"profile":{"subjectId":"s-2","monthlyIncome":2500000}}`)
	require.NoError(t, err)
	eng.AssertExpectations(t)
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		engineErr error
		code      errors.ErrorCode
	}{
		{"missing subject", `{}`, nil, errors.ErrCodePayloadValidationFailed},
		{"empty subject", `{"subjectId":""}`, nil, errors.ErrCodePayloadValidationFailed},
		{"unknown subject", `{"subjectId":"ghost"}`, errors.NewSubjectNotFoundError("ghost"), errors.ErrCodeSubjectNotFound},
		{"conflict", `{"subjectId":"s-1"}`, errors.NewConcurrentUpdateConflictError("s-1", nil), errors.ErrCodeConcurrentUpdateConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &mockEngine{}
			if tt.engineErr != nil {
				eng.On("Score", mock.Anything, mock.Anything, mock.Anything, false).Return(nil, tt.engineErr)
			}
			_, err := newHandler(t, eng).process(context.Background(), tt.variables)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())
		})
	}
}
