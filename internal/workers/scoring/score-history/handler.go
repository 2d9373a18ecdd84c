// internal/workers/scoring/score-history/handler.go
package scorehistory

import (
	"context"
	"encoding/json"

	"microfinance-scoring/internal/common/camunda"
	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/common/observability"
	"microfinance-scoring/internal/common/validation"
	"microfinance-scoring/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "score-history"

type HistoryReader interface {
	History(ctx context.Context, subjectID string, limit int) ([]models.ScoreRecord, error)
}

type Dependencies struct {
	Engine    HistoryReader
	Validator *validation.Validator
	Obs       *observability.Observability
	Logger    logger.Logger
}

type Handler struct {
	config    *Config
	engine    HistoryReader
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
	recs, err := h.engine.History(ctx, input.SubjectID, input.Limit)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []models.ScoreRecord{}
	}
	return &Output{SubjectID: input.SubjectID, Count: len(recs), Records: recs}, nil
}
