// internal/workers/scoring/score-subject/handler.go
package scoresubject

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

const TaskType = "score-subject"

type Scorer interface {
	Score(ctx context.Context, subjectID string, profile *models.ApplicantProfile, force bool) (*models.ScoreRecord, error)
}

type Dependencies struct {
	Engine    Scorer
	Validator *validation.Validator
	Obs       *observability.Observability
	Logger    logger.Logger
}

type Handler struct {
	config    *Config
	engine    Scorer
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
	rec, err := h.engine.Score(ctx, input.SubjectID, input.Profile, input.ForceRecompute)
	if err != nil {
		return nil, err
	}
	return &Output{
		Score:          rec.Score,
		Score850:       rec.Score850,
		RiskTier:       rec.RiskTier,
		EligibleAmount: rec.EligibleAmount,
		ModelType:      rec.ModelType,
		ScoreRecord:    rec,
	}, nil
}
