package engine

import (
	"context"

	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/amount"
	"microfinance-scoring/internal/scoring/features"
	"microfinance-scoring/internal/scoring/rules"

	"go.opentelemetry.io/otel/attribute"
)

// CheckEligibility evaluates the gates of productType for the stored profile
// and the subject's current score. An empty productType checks the product
// the profile requests.
func (e *Engine) CheckEligibility(ctx context.Context, subjectID, productType string) (*models.EligibilityResult, error) {
	ctx, span := e.deps.Obs.StartSpan(ctx, "engine.checkEligibility",
		attribute.String("subject.id", subjectID), attribute.String("product.type", productType))
	defer span.End()

	if subjectID == "" {
		return nil, errors.NewInvalidInputError("subjectId is required")
	}

	stored, err := e.deps.Store.GetProfile(ctx, subjectID)
	if err != nil {
		return nil, e.storeError("get profile", subjectID, err)
	}

	product := stored.ProductType()
	if productType != "" {
		p, err := models.ParseProductType(productType)
		if err != nil {
			return nil, errors.NewUnknownProductTypeError(productType)
		}
		product = p
	}

	rec, err := e.Score(ctx, subjectID, nil, false)
	if err != nil {
		return nil, err
	}

	profile := stored.Clone()
	if profile.Request == nil {
		profile.Request = &models.LoanRequest{}
	}
	profile.Request.ProductType = product

	n, err := features.Normalize(profile)
	if err != nil {
		return nil, err
	}
	verdict := rules.CheckEligibility(profile, n)
	if rec.Score < rules.MinimumEligibleScore {
		verdict.Eligible = false
		verdict.Reasons = append(verdict.Reasons, rules.ReasonInsufficientScore)
	}

	res := &models.EligibilityResult{
		SubjectID:   subjectID,
		ProductType: product,
		Eligible:    verdict.Eligible,
		Reasons:     verdict.Reasons,
		Score:       rec.Score,
		RiskTier:    rec.RiskTier,
	}
	if verdict.Eligible {
		res.EligibleAmount = amount.Calculate(amount.Input{
			Score:         rec.Score,
			MonthlyIncome: n.MonthlyIncome,
			DebtRatioPct:  n.DebtRatioPct,
			Product:       product,
		})
	}
	return res, nil
}
