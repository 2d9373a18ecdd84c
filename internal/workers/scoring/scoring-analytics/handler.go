// internal/workers/scoring/scoring-analytics/handler.go
package scoringanalytics

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"microfinance-scoring/internal/common/camunda"
	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/common/observability"
	"microfinance-scoring/internal/common/validation"
	"microfinance-scoring/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "scoring-analytics"

type AnalyticsReader interface {
	Analytics(ctx context.Context, q models.AnalyticsQuery) (*models.ScoringAnalytics, error)
}

type Dependencies struct {
	Engine    AnalyticsReader
	Validator *validation.Validator
	Obs       *observability.Observability
	Logger    logger.Logger
}

type Handler struct {
	config    *Config
	engine    AnalyticsReader
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
	q := models.AnalyticsQuery{ProductType: models.ProductType(input.ProductType)}
	var err error
	if q.From, err = parseTime("from", input.From); err != nil {
		return nil, err
	}
	if q.To, err = parseTime("to", input.To); err != nil {
		return nil, err
	}

	res, err := h.engine.Analytics(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Output{Analytics: res}, nil
}

func parseTime(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.NewInvalidInputError(field + " must be an RFC 3339 timestamp")
	}
	return t, nil
}
