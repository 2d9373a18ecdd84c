package scorehistory

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

type fakeHistory struct {
	limit int
	recs  []models.ScoreRecord
	err   error
}

func (f *fakeHistory) History(_ context.Context, _ string, limit int) ([]models.ScoreRecord, error) {
	f.limit = limit
	return f.recs, f.err
}

func newHandler(t *testing.T, eng HistoryReader) *Handler {
	t.Helper()
	v, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: time.Second}, Dependencies{
		Engine:    eng,
		Validator: v,
		Logger:    logger.NewNoOpLogger(),
	})
}

func TestProcess(t *testing.T) {
	eng := &fakeHistory{recs: []models.ScoreRecord{{Version: 3}, {Version: 2}, {Version: 1}}}

	out, err := newHandler(t, eng).process(context.Background(), `{"subjectId":"s-1","limit":3}`)
	require.NoError(t, err)

	o := out.(*Output)
	assert.Equal(t, 3, eng.limit)
	assert.Equal(t, 3, o.Count)
	assert.Equal(t, int64(3), o.Records[0].Version)
}

func TestProcess_EmptyHistoryIsAnEmptyList(t *testing.T) {
	out, err := newHandler(t, &fakeHistory{}).process(context.Background(), `{"subjectId":"s-1"}`)
	require.NoError(t, err)
	o := out.(*Output)
	assert.NotNil(t, o.Records)
	assert.Zero(t, o.Count)
}

func TestProcess_Errors(t *testing.T) {
	h := newHandler(t, &fakeHistory{})
	for _, vars := range []string{`{}`, `{"subjectId":"s-1","limit":0}`, `{"subjectId":"s-1","limit":501}`} {
		_, err := h.process(context.Background(), vars)
		assert.True(t, errors.HasCode(err, errors.ErrCodePayloadValidationFailed), vars)
	}

	h = newHandler(t, &fakeHistory{err: errors.NewSubjectNotFoundError("s-1")})
	_, err := h.process(context.Background(), `{"subjectId":"s-1"}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSubjectNotFound))
}
