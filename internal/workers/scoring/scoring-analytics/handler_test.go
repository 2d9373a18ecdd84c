package scoringanalytics

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
	"github.com/stretchr/testify/require"
)

type fakeAnalytics struct {
	q   models.AnalyticsQuery
	res *models.ScoringAnalytics
	err error
}

func (f *fakeAnalytics) Analytics(_ context.Context, q models.AnalyticsQuery) (*models.ScoringAnalytics, error) {
	f.q = q
	return f.res, f.err
}

func newHandler(t *testing.T, eng AnalyticsReader) *Handler {
	t.Helper()
	v, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: time.Second}, Dependencies{
		Engine:    eng,
		Validator: v,
		Logger:    logger.NewNoOpLogger(),
	})
}

func TestProcess_BuildsQuery(t *testing.T) {
	eng := &fakeAnalytics{res: &models.ScoringAnalytics{TotalRecords: 12, AverageScore: 6.1}}

	out, err := newHandler(t, eng).process(context.Background(),
		`{"productType":"savings_circle","from":"2026-01-01T00:00:00Z","to":"2026-06-30T23:59:59Z"}`)
	require.NoError(t, err)

	assert.Equal(t, models.ProductSavingsCircle, eng.q.ProductType)
	assert.Equal(t, time.January, eng.q.From.Month())
	assert.Equal(t, time.June, eng.q.To.Month())
	assert.Equal(t, int64(12), out.(*Output).Analytics.TotalRecords)
}

func TestProcess_OpenRange(t *testing.T) {
	eng := &fakeAnalytics{res: &models.ScoringAnalytics{}}
	_, err := newHandler(t, eng).process(context.Background(), `{}`)
	require.NoError(t, err)
	assert.True(t, eng.q.From.IsZero())
	assert.True(t, eng.q.To.IsZero())
	assert.Empty(t, eng.q.ProductType)
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		engineErr error
		code      errors.ErrorCode
	}{
		{"unknown product", `{"productType":"mortgage"}`, nil, errors.ErrCodePayloadValidationFailed},
		{"bad from", `{"from":"last week"}`, nil, errors.ErrCodeInvalidInput},
		{"search down", `{}`, errors.NewSearchQueryError("analytics", assert.AnError), errors.ErrCodeSearchQueryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeAnalytics{err: tt.engineErr}
			_, err := newHandler(t, eng).process(context.Background(), tt.variables)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())
		})
	}
}
