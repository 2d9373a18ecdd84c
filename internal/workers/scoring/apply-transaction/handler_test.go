package applytransaction

import (
	"context"
	"testing"
	"time"

	"microfinance-scoring/internal/common/camunda"
	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/common/validation"
	"microfinance-scoring/internal/models"
	"microfinance-scoring/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	subjectID string
	event     *models.TransactionEvent
	force     bool
	rec       *models.ScoreRecord
	err       error
}

func (f *fakeEngine) ApplyTransaction(_ context.Context, subjectID string, ev *models.TransactionEvent, force bool) (*models.ScoreRecord, error) {
	f.subjectID, f.event, f.force = subjectID, ev, force
	if f.err != nil {
		return nil, f.err
	}
	if ev.ID == "" {
		ev.ID = "evt-1"
	}
	return f.rec, nil
}

func newHandler(t *testing.T, eng TransactionApplier) *Handler {
	t.Helper()
	v, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: time.Second}, Dependencies{
		Engine:    eng,
		Validator: v,
		Logger:    logger.NewTestLogger(t),
	})
}

func TestProcess_DecodesEvent(t *testing.T) {
	eng := &fakeEngine{rec: &models.ScoreRecord{
		Score: 7.1, RiskTier: models.RiskLow, Source: models.SourceTransaction,
		Details: models.ScoreDetails{Delta: -1},
	}}

	out, err := newHandler(t, eng).process(context.Background(), `{
		"subjectId": "s-1",
		"event": {
			"type": "late_payment",
			"amount": 120000,
			"scheduledDate": "2026-03-01T00:00:00Z",
			"actualDate": "2026-03-11T00:00:00Z",
			"metadata": {"daysLate": 10}
		}
	}`)
	require.NoError(t, err)

	assert.Equal(t, "s-1", eng.subjectID)
	require.NotNil(t, eng.event)
	assert.Equal(t, models.EventLatePayment, eng.event.Type)
	assert.Equal(t, 10, eng.event.DaysLate())
	assert.Equal(t, 2026, eng.event.ActualDate.Year())

	o := out.(*Output)
	assert.Equal(t, "evt-1", o.EventID)
	assert.Equal(t, -1.0, o.Delta)
	assert.Equal(t, models.SourceTransaction, o.Source)
}

func TestProcess_RejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		code      errors.ErrorCode
	}{
		{"missing event", `{"subjectId":"s-1"}`, errors.ErrCodePayloadValidationFailed},
		{"unknown event type", `{"subjectId":"s-1","event":{"type":"gift"}}`, errors.ErrCodePayloadValidationFailed},
		{"negative amount", `{"subjectId":"s-1","event":{"type":"new_loan","amount":-5}}`, errors.ErrCodePayloadValidationFailed},
		{"bad date", `{"subjectId":"s-1","event":{"type":"new_loan","actualDate":"yesterday"}}`, errors.ErrCodeInvalidInput},
		{"income update without income", `{"subjectId":"s-1","event":{"type":"income_update"}}`, errors.ErrCodePayloadValidationFailed},
		{"employment change without employment", `{"subjectId":"s-1","event":{"type":"employment_change","metadata":{}}}`, errors.ErrCodePayloadValidationFailed},
		{"unknown employment", `{"subjectId":"s-1","event":{"type":"employment_change","metadata":{"newEmployment":"astronaut"}}}`, errors.ErrCodePayloadValidationFailed},
		{"force is boolean", `{"subjectId":"s-1","forceRecompute":"yes","event":{"type":"new_loan"}}`, errors.ErrCodePayloadValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{}
			_, err := newHandler(t, eng).process(context.Background(), tt.variables)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())
			assert.Nil(t, eng.event)
		})
	}
}

func TestProcess_PassesForce(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		force     bool
	}{
		{"default", `{"subjectId":"s-1","event":{"type":"regular_payment"}}`, false},
		{"forced", `{"subjectId":"s-1","forceRecompute":true,"event":{"type":"regular_payment"}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{rec: &models.ScoreRecord{Source: models.SourceFullRecompute}}
			_, err := newHandler(t, eng).process(context.Background(), tt.variables)
			require.NoError(t, err)
			assert.Equal(t, tt.force, eng.force)
		})
	}
}

func TestExecute_EventIDFromJobKey(t *testing.T) {
	h := newHandler(t, &fakeEngine{rec: &models.ScoreRecord{}})
	run := func(ctx context.Context, id string) string {
		out, err := h.Execute(ctx, &Input{
			SubjectID: "s-1",
			Event:     &models.TransactionEvent{ID: id, Type: models.EventRegularPayment},
		})
		require.NoError(t, err)
		return out.EventID
	}

	job := camunda.WithJobKey(context.Background(), 2251799813685301)
	first := run(job, "")
	assert.NotEqual(t, "evt-1", first)
	assert.Len(t, first, 36)
	assert.Equal(t, first, run(job, ""), "redelivered job keeps its event id")
	assert.NotEqual(t, first, run(camunda.WithJobKey(context.Background(), 2251799813685302), ""))
	assert.Equal(t, "bank-ref-9", run(job, "bank-ref-9"))
	assert.Equal(t, "evt-1", run(context.Background(), ""))
}

func TestExecute_PropagatesEngineErrors(t *testing.T) {
	eng := &fakeEngine{err: errors.NewSubjectNotFoundError("s-9")}
	_, err := newHandler(t, eng).Execute(context.Background(), &Input{
		SubjectID: "s-9",
		Event:     &models.TransactionEvent{Type: models.EventRegularPayment},
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeSubjectNotFound))
}

func TestExecute_NilEvent(t *testing.T) {
	_, err := newHandler(t, &fakeEngine{}).Execute(context.Background(), &Input{SubjectID: "s-1"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}
