// internal/workers/scoring/recalculate-scores/handler.go
package recalculatescores

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

const TaskType = "recalculate-scores"

type Recalculator interface {
	RecalculateAll(ctx context.Context, limit int) (*models.RecalculationReport, error)
}

type Dependencies struct {
	Engine    Recalculator
	Validator *validation.Validator
	Obs       *observability.Observability
	Logger    logger.Logger
}

type Handler struct {
	config    *Config
	engine    Recalculator
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
	report, err := h.engine.RecalculateAll(ctx, input.Limit)
	if err != nil {
		return nil, err
	}
	if len(report.Failed) > 0 {
		h.logger.Warn("some subjects were not recalculated", map[string]interface{}{
			"failed": len(report.Failed),
			"total":  report.Total,
		})
	}
	return &Output{
		Total:       report.Total,
		Succeeded:   report.Succeeded,
		FailedCount: len(report.Failed),
		Failed:      report.Failed,
		DurationMs:  report.Duration.Milliseconds(),
	}, nil
}
