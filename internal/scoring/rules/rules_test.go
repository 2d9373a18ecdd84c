package rules

import (
	"testing"

	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func evaluate(t *testing.T, p *models.ApplicantProfile) (Result, Eligibility) {
	t.Helper()
	n, err := features.Normalize(p)
	require.NoError(t, err)
	return Score(p, n), CheckEligibility(p, n)
}

func factorPoints(r Result, name string) (float64, bool) {
	for _, f := range r.Factors {
		if f.Name == name {
			return f.Points, true
		}
	}
	return 0, false
}

func TestScore_ConsumptionScenarios(t *testing.T) {
	tests := []struct {
		name     string
		profile  *models.ApplicantProfile
		points   float64
		dominant string
	}{
		{
			name: "stable permanent employee",
			profile: &models.ApplicantProfile{
				SubjectID:       "a",
				MonthlyIncome:   900_000,
				EmploymentType:  models.EmploymentPermanent,
				SeniorityMonths: intPtr(48),
			},
			points:   760,
			dominant: "employment",
		},
		{
			name: "low income self employed",
			profile: &models.ApplicantProfile{
				SubjectID:       "b",
				MonthlyIncome:   180_000,
				EmploymentType:  models.EmploymentSelfEmployed,
				SeniorityMonths: intPtr(12),
			},
			points:   460,
			dominant: "income",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := evaluate(t, tt.profile)
			assert.Equal(t, models.ProductConsumption, r.Product)
			assert.Equal(t, 450.0, r.Base)
			assert.Equal(t, tt.points, r.Points)
			d, ok := r.Dominant()
			require.True(t, ok)
			assert.Equal(t, tt.dominant, d.Name)
		})
	}
}

func TestScore_ConsumptionPaymentPenaltiesAreCapped(t *testing.T) {
	r, _ := evaluate(t, &models.ApplicantProfile{
		SubjectID:     "c",
		MonthlyIncome: 600_000,
		Payments:      models.PaymentSummary{Total: 10, OnTime: 6, Missed: 4},
	})

	rel, ok := factorPoints(r, "payment_reliability")
	require.True(t, ok)
	assert.Equal(t, -60.0, rel)

	missed, ok := factorPoints(r, "missed_payments")
	require.True(t, ok)
	assert.Equal(t, -120.0, missed)
}

func TestScore_ConsumptionRequestFactors(t *testing.T) {
	r, e := evaluate(t, &models.ApplicantProfile{
		SubjectID:     "c",
		MonthlyIncome: 300_000,
		Dependents:    6,
		Request:       &models.LoanRequest{ProductType: models.ProductConsumption, Amount: 1_200_000, DurationMonths: 60, Purpose: "Education"},
	})

	ratio, _ := factorPoints(r, "instalment_ratio")
	assert.Equal(t, 60.0, ratio)
	purpose, _ := factorPoints(r, "purpose")
	assert.Equal(t, 30.0, purpose)
	deps, _ := factorPoints(r, "dependents")
	assert.Equal(t, -20.0, deps)
	dur, ok := factorPoints(r, "duration_over_max")
	assert.True(t, ok)
	assert.Equal(t, -50.0, dur)

	assert.False(t, e.Eligible)
	assert.Contains(t, e.Reasons, ReasonDuration48)
}

func TestScore_ProductBases(t *testing.T) {
	tests := []struct {
		name    string
		profile *models.ApplicantProfile
		raw     float64
		points  float64
	}{
		{
			name: "investment company",
			profile: &models.ApplicantProfile{
				SubjectID: "i",
				Request:   &models.LoanRequest{ProductType: models.ProductInvestment, Amount: 10_000_000, DurationMonths: 24},
				Business: &models.BusinessInfo{
					LegalForm: models.LegalFormCompany, AnnualTurnover: 30_000_000, NetMarginPct: 12,
					HasStatutes: true, CollateralValue: 15_000_000, InvestmentType: "Equipment",
				},
			},
			raw:    810,
			points: 810,
		},
		{
			name: "invoice over cap",
			profile: &models.ApplicantProfile{
				SubjectID: "v",
				Request:   &models.LoanRequest{ProductType: models.ProductInvoiceAdvance, Amount: 800_000, DurationMonths: 3},
				Invoice:   &models.InvoiceInfo{Amount: 1_000_000},
			},
			raw:    680,
			points: 680,
		},
		{
			name: "order clamps at rule max",
			profile: &models.ApplicantProfile{
				SubjectID: "o",
				Request:   &models.LoanRequest{ProductType: models.ProductOrderAdvance, Amount: 2_000_000, DurationMonths: 6},
				Order:     &models.OrderInfo{Amount: 5_000_000, Verified: true, ClientReputation: "good", ProductionCapacity: 7, MarginPct: 25, RawMaterialRatio: 0.3},
			},
			raw:    966,
			points: 900,
		},
		{
			name: "pension clamps at rule max",
			profile: &models.ApplicantProfile{
				SubjectID: "p",
				Age:       intPtr(62),
				Request:   &models.LoanRequest{ProductType: models.ProductPensionAdvance, Amount: 600_000, DurationMonths: 12},
				Pension:   &models.PensionInfo{MonthlyPension: 300_000, PensionMonths: 30, Fund: "cnss", OtherIncome: 120_000},
			},
			raw:    1144,
			points: 900,
		},
		{
			name: "spot emergency over duration",
			profile: &models.ApplicantProfile{
				SubjectID: "s",
				Request:   &models.LoanRequest{ProductType: models.ProductSpotEmergency, Amount: 500_000, DurationMonths: 6},
				Emergency: &models.EmergencyInfo{Reason: "medical bills", RepaymentSource: "salary"},
			},
			raw:    580,
			points: 580,
		},
		{
			name: "savings circle over cap with bad history",
			profile: &models.ApplicantProfile{
				SubjectID:     "t",
				CreditHistory: models.CreditHistoryBad,
				Request:       &models.LoanRequest{ProductType: models.ProductSavingsCircle, Amount: 6_000_000, DurationMonths: 12},
				SavingsCircle: &models.SavingsCircleInfo{ContributionMonths: 30, MembershipMonths: 30, MonthlyContribution: 100_000},
			},
			// 750 + 140 + 100 - 40 + 80 - 100 (history) - 100 (amount cap)
			raw:    830,
			points: 830,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := evaluate(t, tt.profile)
			assert.InDelta(t, tt.raw, r.Raw, 1e-9)
			assert.InDelta(t, tt.points, r.Points, 1e-9)
			assert.GreaterOrEqual(t, r.Points, 300.0)
			assert.LessOrEqual(t, r.Points, 900.0)
		})
	}
}

func TestCheckEligibility(t *testing.T) {
	tests := []struct {
		name     string
		profile  *models.ApplicantProfile
		eligible bool
		reason   string
	}{
		{
			name: "invoice advance above 70 percent",
			profile: &models.ApplicantProfile{
				SubjectID: "c", MonthlyIncome: 2_000_000, EmploymentType: models.EmploymentPermanent,
				Request: &models.LoanRequest{ProductType: models.ProductInvoiceAdvance, Amount: 800_000},
				Invoice: &models.InvoiceInfo{Amount: 1_000_000, ClientRating: "excellent", Verified: true},
			},
			reason: ReasonInvoiceCap,
		},
		{
			name: "savings circle with short history",
			profile: &models.ApplicantProfile{
				SubjectID:     "d",
				Request:       &models.LoanRequest{ProductType: models.ProductSavingsCircle, Amount: 300_000},
				SavingsCircle: &models.SavingsCircleInfo{ContributionMonths: 4},
			},
			reason: ReasonContributionHistory,
		},
		{
			name: "savings circle without section",
			profile: &models.ApplicantProfile{
				SubjectID: "d2",
				Request:   &models.LoanRequest{ProductType: models.ProductSavingsCircle, Amount: 300_000},
			},
			reason: ReasonContributionHistory,
		},
		{
			name:    "underage",
			profile: &models.ApplicantProfile{SubjectID: "u", Age: intPtr(17)},
			reason:  ReasonUnderage,
		},
		{
			name:    "too many active credits",
			profile: &models.ApplicantProfile{SubjectID: "k", ActiveCredits: 2},
			reason:  ReasonActiveCredits,
		},
		{
			name: "instalment over income",
			profile: &models.ApplicantProfile{
				SubjectID: "m", MonthlyIncome: 100_000,
				Request: &models.LoanRequest{Amount: 1_200_000, DurationMonths: 12},
			},
			reason: ReasonInstalmentOverIncome,
		},
		{
			name: "pension without affiliation",
			profile: &models.ApplicantProfile{
				SubjectID: "p",
				Request:   &models.LoanRequest{ProductType: models.ProductPensionAdvance, Amount: 100_000, DurationMonths: 6},
				Pension:   &models.PensionInfo{MonthlyPension: 200_000, Fund: "private"},
			},
			reason: ReasonPensionAffiliation,
		},
		{
			name: "investment company without patent",
			profile: &models.ApplicantProfile{
				SubjectID: "i",
				Request:   &models.LoanRequest{ProductType: models.ProductInvestment, Amount: 1_000_000},
				Business:  &models.BusinessInfo{LegalForm: models.LegalFormCompany, HasStatutes: true},
			},
			reason: ReasonPatentRequired,
		},
		{
			name: "order advance over cap",
			profile: &models.ApplicantProfile{
				SubjectID: "o",
				Request:   &models.LoanRequest{ProductType: models.ProductOrderAdvance, Amount: 150_000_000},
			},
			reason: ReasonAmount100M,
		},
		{
			name: "eligible consumption",
			profile: &models.ApplicantProfile{
				SubjectID: "ok", MonthlyIncome: 500_000,
				Request: &models.LoanRequest{Amount: 1_200_000, DurationMonths: 12},
			},
			eligible: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, e := evaluate(t, tt.profile)
			assert.Equal(t, tt.eligible, e.Eligible)
			if tt.eligible {
				assert.Empty(t, e.Reasons)
				return
			}
			assert.Contains(t, e.Reasons, tt.reason)
			// A rejected request still carries a computed score.
			assert.GreaterOrEqual(t, r.Points, 300.0)
		})
	}
}

func TestDominant_NoFactors(t *testing.T) {
	_, ok := Result{}.Dominant()
	assert.False(t, ok)

	d, ok := Result{Factors: []Factor{{"a", 10}, {"b", -40}, {"c", 40}}}.Dominant()
	require.True(t, ok)
	assert.Equal(t, "b", d.Name)
}
