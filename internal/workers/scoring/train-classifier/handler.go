// internal/workers/scoring/train-classifier/handler.go
package trainclassifier

import (
	"context"
	"encoding/json"
	"strings"

	"microfinance-scoring/internal/common/camunda"
	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/common/observability"
	"microfinance-scoring/internal/common/validation"
	"microfinance-scoring/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "train-classifier"

type Trainer interface {
	TrainClassifier(ctx context.Context, samples []models.TrainingSample) (*models.TrainingResult, error)
}

type Dependencies struct {
	Engine    Trainer
	Validator *validation.Validator
	Obs       *observability.Observability
	Logger    logger.Logger
}

type Handler struct {
	config    *Config
	engine    Trainer
	validator *validation.Validator
	runner    *camunda.JobRunner
	logger    logger.Logger
}

func NewHandler(cfg *Config, deps Dependencies) *Handler {
	runner := camunda.NewJobRunner(TaskType, cfg.Timeout, deps.Obs, deps.Logger)
	return &Handler{
		config:    cfg,
		engine:    deps.Engine,
		validator: deps.Validator,
		runner:    runner,
		logger:    runner.Logger,
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
	if strings.TrimSpace(variables) != "" {
		if err := json.Unmarshal([]byte(variables), &input); err != nil {
			return nil, errors.NewInvalidInputError("parse input: " + err.Error())
		}
	}
	out, err := h.Execute(ctx, &input)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.engine.TrainClassifier(ctx, input.Samples)
	if err != nil {
		return nil, err
	}
	h.logger.Info("classifier trained", map[string]interface{}{
		"modelVersion":    res.ModelVersion,
		"samples":         res.Samples,
		"holdoutAccuracy": res.HoldoutAccuracy,
		"inlineDataset":   len(input.Samples) > 0,
	})
	return &Output{
		ModelVersion:    res.ModelVersion,
		HoldoutAccuracy: res.HoldoutAccuracy,
		Result:          res,
	}, nil
}
