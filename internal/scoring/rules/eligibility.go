package rules

import (
	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/amount"
	"microfinance-scoring/internal/scoring/features"
)

const (
	MinimumAge       = 18
	MaxActiveCredits = 2
	// MinimumEligibleScore is the score below which checkEligibility rejects.
	MinimumEligibleScore = 5.0
)

// Rejection reasons.
const (
	ReasonUnderage             = "minimum age is 18 years"
	ReasonActiveCredits        = "maximum number of active credits reached"
	ReasonInstalmentOverIncome = "monthly instalment exceeds 35% of income"
	ReasonDuration48           = "maximum duration is 48 months"
	ReasonDuration12           = "maximum duration is 12 months"
	ReasonDuration3            = "maximum duration is 3 months"
	ReasonAmount100M           = "maximum amount is 100,000,000"
	ReasonAmount5M             = "maximum amount is 5,000,000"
	ReasonStatutesRequired     = "company statutes required"
	ReasonPatentRequired       = "business patent required"
	ReasonInvoiceCap           = "advance is limited to 70% of the invoice amount"
	ReasonContributionHistory  = "minimum 6 months of contribution history required"
	ReasonPensionAffiliation   = "CNSS or CPPF pension affiliation required"
	ReasonInsufficientScore    = "insufficient score"
)

// Eligibility is an explicit verdict; ineligibility is a normal outcome.
type Eligibility struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}

func (e *Eligibility) reject(reason string) {
	e.Eligible = false
	e.Reasons = append(e.Reasons, reason)
}

// CheckEligibility evaluates the hard gates of the requested product.
// The verdict is independent of the computed score.
func CheckEligibility(p *models.ApplicantProfile, n *features.Normalized) Eligibility {
	e := Eligibility{Eligible: true, Reasons: []string{}}

	if n.Age < MinimumAge {
		e.reject(ReasonUnderage)
	}
	if n.ActiveCredits >= MaxActiveCredits {
		e.reject(ReasonActiveCredits)
	}

	amt, months := requested(p)

	switch p.ProductType() {
	case models.ProductConsumption:
		if n.MonthlyIncome > 0 && amt > 0 &&
			amount.MonthlyInstalment(amt, months) > n.MonthlyIncome*0.35 {
			e.reject(ReasonInstalmentOverIncome)
		}
		if months > 48 {
			e.reject(ReasonDuration48)
		}

	case models.ProductInvestment:
		if amt > 100_000_000 {
			e.reject(ReasonAmount100M)
		}
		if b := p.Business; b != nil && b.LegalForm == models.LegalFormCompany {
			if !b.HasStatutes {
				e.reject(ReasonStatutesRequired)
			}
			if !b.HasPatent {
				e.reject(ReasonPatentRequired)
			}
		}

	case models.ProductInvoiceAdvance:
		if p.Invoice != nil && p.Invoice.Amount > 0 && amt > p.Invoice.Amount*0.7 {
			e.reject(ReasonInvoiceCap)
		}
		if amt > 100_000_000 {
			e.reject(ReasonAmount100M)
		}

	case models.ProductOrderAdvance:
		if amt > 100_000_000 {
			e.reject(ReasonAmount100M)
		}

	case models.ProductSavingsCircle:
		if amt > 5_000_000 {
			e.reject(ReasonAmount5M)
		}
		if p.SavingsCircle == nil || p.SavingsCircle.ContributionMonths < 6 {
			e.reject(ReasonContributionHistory)
		}

	case models.ProductPensionAdvance:
		if p.Pension == nil || !recognisedPensionFund(p.Pension.Fund) {
			e.reject(ReasonPensionAffiliation)
		}
		if months > 12 {
			e.reject(ReasonDuration12)
		}

	case models.ProductSpotEmergency:
		if months > 3 {
			e.reject(ReasonDuration3)
		}
		if amt > 100_000_000 {
			e.reject(ReasonAmount100M)
		}
	}

	return e
}
