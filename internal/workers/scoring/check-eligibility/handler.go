// internal/workers/scoring/check-eligibility/handler.go
package checkeligibility

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

const TaskType = "check-eligibility"

type EligibilityChecker interface {
	CheckEligibility(ctx context.Context, subjectID, productType string) (*models.EligibilityResult, error)
}

type Dependencies struct {
	Engine    EligibilityChecker
	Validator *validation.Validator
	Obs       *observability.Observability
	Logger    logger.Logger
}

type Handler struct {
	config    *Config
	engine    EligibilityChecker
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

// Execute reports ineligibility as a completed job with reasons; only
// malformed requests and lookup failures fail the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.engine.CheckEligibility(ctx, input.SubjectID, input.ProductType)
	if err != nil {
		return nil, err
	}
	reasons := res.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return &Output{
		Eligible:       res.Eligible,
		Reasons:        reasons,
		EligibleAmount: res.EligibleAmount,
		ProductType:    res.ProductType,
		Score:          res.Score,
		RiskTier:       res.RiskTier,
	}, nil
}
