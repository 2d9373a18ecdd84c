// internal/workers/scoring/apply-transaction/handler.go
package applytransaction

import (
	"context"
	"encoding/json"
	"strconv"

	"microfinance-scoring/internal/common/camunda"
	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/common/observability"
	"microfinance-scoring/internal/common/validation"
	"microfinance-scoring/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "apply-transaction"

// jobEventNamespace scopes event ids derived from Zeebe job keys.
var jobEventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:microfinance-scoring:apply-transaction"))

type TransactionApplier interface {
	ApplyTransaction(ctx context.Context, subjectID string, ev *models.TransactionEvent, force bool) (*models.ScoreRecord, error)
}

type Dependencies struct {
	Engine    TransactionApplier
	Validator *validation.Validator
	Obs       *observability.Observability
	Logger    logger.Logger
}

type Handler struct {
	config    *Config
	engine    TransactionApplier
	validator *validation.Validator
	runner    *camunda.JobRunner
}

func NewHandler(cfg *Config, deps Dependencies) *Handler {
	return &Handler{
		config:    cfg,
		engine:    deps.Engine,
		validator: deps.Validator,
		runner:    camunda.NewJobRunner(TaskType, cfg.Timeout, deps.Obs, deps.Logger),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, h.process)
}

func (h *Handler) process(ctx context.Context, variables string) (interface{}, error) {
	if h.validator != nil {
		if err := h.validator.Check(TaskType, variables); err != nil {
			return nil, err
		}
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidInputError("parse input: " + err.Error())
	}
	out, err := h.Execute(ctx, &input)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Event == nil {
		return nil, errors.NewInvalidInputError("event is required")
	}
	if input.Event.ID == "" {
		input.Event.ID = eventIDFor(ctx)
	}
	rec, err := h.engine.ApplyTransaction(ctx, input.SubjectID, input.Event, input.ForceRecompute)
	if err != nil {
		return nil, err
	}
	return &Output{
		EventID:     input.Event.ID,
		Score:       rec.Score,
		RiskTier:    rec.RiskTier,
		Delta:       rec.Details.Delta,
		Source:      rec.Source,
		ScoreRecord: rec,
	}, nil
}

// eventIDFor derives the event id from the job key so a redelivered job
// records its event once. Outside a job the engine assigns a random id.
func eventIDFor(ctx context.Context) string {
	key, ok := camunda.JobKey(ctx)
	if !ok {
		return ""
	}
	return uuid.NewSHA1(jobEventNamespace, []byte(strconv.FormatInt(key, 10))).String()
}
