// Package insights derives the explanatory parts of a score: recommendations,
// the payment-reliability label and behavioural factors.
package insights

import (
	"fmt"
	"math"
	"time"

	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/amount"
	"microfinance-scoring/internal/scoring/features"
)

const (
	ReliabilityNewClient = "new_client"
	ReliabilityExcellent = "excellent"
	ReliabilityVeryGood  = "very_good"
	ReliabilityGood      = "good"
	ReliabilityAverage   = "average"
)

const (
	DebtTrendIncreasing = "increasing"
	DebtTrendDecreasing = "decreasing"
	DebtTrendStable     = "stable"
)

// DefaultBehaviourScore is used when there is no recent payment history.
const DefaultBehaviourScore = 75.0

const (
	RecommendOnTime         = "Improve your on-time payment rate"
	RecommendActiveCredits  = "Maximum number of active credits reached"
	RecommendInstalment     = "Reduce the requested amount or extend the duration to keep the instalment under 35% of income"
	RecommendCollateral     = "Increase the value of the collateral"
	RecommendContributions  = "Keep contributing regularly for at least 12 months"
	RecommendFocusOnTime    = "Focus on paying on time"
	RecommendKeepGoing      = "Good progress, keep it up"
	RecommendExcellentHabit = "Excellent profile, keep your habits"
)

// ReliabilityLabel buckets the on-time ratio of a payment history.
func ReliabilityLabel(ps models.PaymentSummary) string {
	if ps.Total == 0 {
		return ReliabilityNewClient
	}
	ratio := float64(ps.OnTime) / float64(ps.Total)
	switch {
	case ratio >= 0.95:
		return ReliabilityExcellent
	case ratio >= 0.85:
		return ReliabilityVeryGood
	case ratio >= 0.70:
		return ReliabilityGood
	default:
		return ReliabilityAverage
	}
}

// Recommendations returns advice ordered from payment behaviour to the score band.
// The score band message is always last.
func Recommendations(p *models.ApplicantProfile, n *features.Normalized, score float64) []string {
	recs := []string{}

	if n.Payments.Total > 0 && n.OnTimeRatio < 0.80 {
		recs = append(recs, RecommendOnTime)
	}
	if n.Payments.AvgDaysLate > 7 {
		recs = append(recs, fmt.Sprintf("Reduce payment delays (average: %.0f days)", n.Payments.AvgDaysLate))
	}
	if n.DebtRatioPct > 50 {
		recs = append(recs, fmt.Sprintf("High indebtedness (%.0f%%)", n.DebtRatioPct))
	}
	if n.ActiveCredits >= 2 {
		recs = append(recs, RecommendActiveCredits)
	}

	if req := p.Request; req != nil {
		switch p.ProductType() {
		case models.ProductConsumption:
			if n.MonthlyIncome > 0 && req.Amount > 0 &&
				amount.MonthlyInstalment(req.Amount, req.DurationMonths)/n.MonthlyIncome > 0.35 {
				recs = append(recs, RecommendInstalment)
			}
		case models.ProductInvestment:
			if p.Business != nil && p.Business.CollateralValue < req.Amount {
				recs = append(recs, RecommendCollateral)
			}
		case models.ProductSavingsCircle:
			if p.SavingsCircle == nil || p.SavingsCircle.ContributionMonths < 12 {
				recs = append(recs, RecommendContributions)
			}
		}
	}

	switch {
	case score < 5:
		recs = append(recs, RecommendFocusOnTime)
	case score < 7:
		recs = append(recs, RecommendKeepGoing)
	default:
		recs = append(recs, RecommendExcellentHabit)
	}
	return recs
}

// Behaviour summarizes recent transaction history.
type Behaviour struct {
	Punctuality float64
	Consistency float64
	DebtTrend   string
}

// AnalyzeBehaviour looks at the events whose actual date falls in the
// trailing window ending at now.
func AnalyzeBehaviour(events []models.TransactionEvent, now time.Time, window time.Duration) Behaviour {
	var payments, onTime, onTimeOrEarly, loans, closures int
	for _, e := range events {
		if e.ActualDate.After(now) || now.Sub(e.ActualDate) > window {
			continue
		}
		switch e.Type {
		case models.EventRegularPayment:
			payments++
			onTime++
			onTimeOrEarly++
		case models.EventEarlyPayment:
			payments++
			onTimeOrEarly++
		case models.EventLatePayment, models.EventMissedPayment:
			payments++
		case models.EventNewLoan:
			loans++
		case models.EventLoanClosure:
			closures++
		}
	}

	b := Behaviour{
		Punctuality: DefaultBehaviourScore,
		Consistency: DefaultBehaviourScore,
		DebtTrend:   DebtTrendStable,
	}
	if payments > 0 {
		b.Punctuality = round1(float64(onTime) / float64(payments) * 100)
	}
	if payments >= 2 {
		b.Consistency = round1(float64(onTimeOrEarly) / float64(payments) * 100)
	}
	switch {
	case loans > closures:
		b.DebtTrend = DebtTrendIncreasing
	case closures > loans:
		b.DebtTrend = DebtTrendDecreasing
	}
	return b
}

// Details assembles the explanatory map stored with a ScoreRecord.
func Details(n *features.Normalized, b Behaviour) models.ScoreDetails {
	return models.ScoreDetails{
		PaymentReliability: ReliabilityLabel(n.Payments),
		OnTimeRatioPct:     round1(n.OnTimeRatio * 100),
		TotalPayments:      n.Payments.Total,
		AvgDelayDays:       n.Payments.AvgDaysLate,
		DebtRatioPct:       round1(n.DebtRatioPct),
		ActiveCredits:      n.ActiveCredits,
		PunctualityScore:   b.Punctuality,
		PaymentConsistency: b.Consistency,
		DebtTrend:          b.DebtTrend,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
