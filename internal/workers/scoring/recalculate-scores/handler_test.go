package recalculatescores

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

type fakeRecalc struct {
	limit  int
	report *models.RecalculationReport
	err    error
}

func (f *fakeRecalc) RecalculateAll(_ context.Context, limit int) (*models.RecalculationReport, error) {
	f.limit = limit
	return f.report, f.err
}

func newHandler(t *testing.T, eng Recalculator) *Handler {
	t.Helper()
	v, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: time.Second}, Dependencies{
		Engine:    eng,
		Validator: v,
		Logger:    logger.NewTestLogger(t),
	})
}

func TestProcess_ReportsPartialFailures(t *testing.T) {
	eng := &fakeRecalc{report: &models.RecalculationReport{
		Total:     3,
		Succeeded: 2,
		Failed:    map[string]string{"s-3": "profile invalid"},
		Duration:  1500 * time.Millisecond,
	}}

	out, err := newHandler(t, eng).process(context.Background(), `{"limit":3}`)
	require.NoError(t, err)

	o := out.(*Output)
	assert.Equal(t, 3, eng.limit)
	assert.Equal(t, 2, o.Succeeded)
	assert.Equal(t, 1, o.FailedCount)
	assert.Equal(t, "profile invalid", o.Failed["s-3"])
	assert.Equal(t, int64(1500), o.DurationMs)
}

func TestProcess_DefaultsToAllSubjects(t *testing.T) {
	eng := &fakeRecalc{report: &models.RecalculationReport{Failed: map[string]string{}}}
	_, err := newHandler(t, eng).process(context.Background(), ``)
	require.NoError(t, err)
	assert.Zero(t, eng.limit)
}

func TestProcess_Errors(t *testing.T) {
	_, err := newHandler(t, &fakeRecalc{}).process(context.Background(), `{"limit":-1}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodePayloadValidationFailed))

	eng := &fakeRecalc{err: errors.NewDatabaseQueryError("list subjects", assert.AnError)}
	_, err = newHandler(t, eng).process(context.Background(), `{}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDatabaseQueryFailed))
}
