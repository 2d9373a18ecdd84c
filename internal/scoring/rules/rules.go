// Package rules is the deterministic, zero-training scorer and the system of
// record for per-product eligibility gates.
package rules

import (
	"math"

	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/calibration"
	"microfinance-scoring/internal/scoring/features"
)

var baseScores = map[models.ProductType]float64{
	models.ProductConsumption:    450,
	models.ProductInvestment:     550,
	models.ProductInvoiceAdvance: 700,
	models.ProductOrderAdvance:   650,
	models.ProductSavingsCircle:  750,
	models.ProductPensionAdvance: 800,
	models.ProductSpotEmergency:  500,
}

// Factor is one named criterion and the signed points it contributed.
type Factor struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}

// Result is the outcome of one rule evaluation.
type Result struct {
	Product models.ProductType `json:"product"`
	Base    float64            `json:"base"`
	// Raw is the unclamped sum; Points is Raw clamped to the rule range.
	Raw     float64  `json:"raw"`
	Points  float64  `json:"points"`
	Factors []Factor `json:"factors"`
}

// Dominant returns the factor with the largest absolute contribution.
func (r Result) Dominant() (Factor, bool) {
	var best Factor
	found := false
	for _, f := range r.Factors {
		if f.Points == 0 {
			continue
		}
		if !found || math.Abs(f.Points) > math.Abs(best.Points) {
			best, found = f, true
		}
	}
	return best, found
}

type sheet struct {
	factors []Factor
}

func (s *sheet) add(name string, points float64) {
	s.factors = append(s.factors, Factor{Name: name, Points: points})
}

func (s *sheet) total() float64 {
	var t float64
	for _, f := range s.factors {
		t += f.Points
	}
	return t
}

// Score evaluates the profile against the rules of its requested product.
func Score(p *models.ApplicantProfile, n *features.Normalized) Result {
	product := p.ProductType()
	s := &sheet{}

	switch product {
	case models.ProductInvestment:
		scoreInvestment(s, p, n)
	case models.ProductInvoiceAdvance:
		scoreInvoiceAdvance(s, p)
	case models.ProductOrderAdvance:
		scoreOrderAdvance(s, p)
	case models.ProductSavingsCircle:
		scoreSavingsCircle(s, p)
	case models.ProductPensionAdvance:
		scorePensionAdvance(s, p, n)
	case models.ProductSpotEmergency:
		scoreSpotEmergency(s, p)
	default:
		product = models.ProductConsumption
		scoreConsumption(s, p, n)
	}
	applyGeneralAdjustments(s, p, product)

	base := baseScores[product]
	raw := base + s.total()
	return Result{
		Product: product,
		Base:    base,
		Raw:     raw,
		Points:  calibration.ClampRule(raw),
		Factors: s.factors,
	}
}

func applyGeneralAdjustments(s *sheet, p *models.ApplicantProfile, product models.ProductType) {
	switch p.CreditHistory {
	case models.CreditHistoryExcellent:
		s.add("credit_history", 50)
	case models.CreditHistoryGood:
		s.add("credit_history", 30)
	case models.CreditHistoryAverage:
		s.add("credit_history", 10)
	case models.CreditHistoryBad:
		s.add("credit_history", -100)
	}

	if p.Request == nil {
		return
	}
	limits := product.Limits()
	if p.Request.DurationMonths > limits.MaxDurationMonths {
		s.add("duration_over_max", -50)
	}
	if limits.MaxAmount > 0 && p.Request.Amount > limits.MaxAmount {
		s.add("amount_over_cap", -100)
	}
}

func requested(p *models.ApplicantProfile) (amountRequested float64, months int) {
	if p.Request == nil {
		return 0, 0
	}
	return p.Request.Amount, p.Request.DurationMonths
}
