// Package amount derives the maximum loan principal a subject qualifies for.
package amount

import (
	"microfinance-scoring/internal/models"

	"github.com/shopspring/decimal"
)

// MinimumScore is the floor below which no amount is granted.
const MinimumScore = 4.0

// Input carries everything the calculation depends on.
type Input struct {
	Score         float64
	MonthlyIncome float64
	DebtRatioPct  float64
	Product       models.ProductType
}

// Multiplier grows with the score tier.
func Multiplier(score float64) decimal.Decimal {
	switch {
	case score >= 8:
		return decimal.RequireFromString("0.8")
	case score >= 7:
		return decimal.RequireFromString("0.6")
	case score >= 6:
		return decimal.RequireFromString("0.5")
	case score >= 5:
		return decimal.RequireFromString("0.4")
	default:
		return decimal.RequireFromString("0.3")
	}
}

func debtPenalty(debtRatioPct float64) decimal.Decimal {
	switch {
	case debtRatioPct > 70:
		return decimal.RequireFromString("0.3")
	case debtRatioPct > 50:
		return decimal.RequireFromString("0.5")
	default:
		return decimal.NewFromInt(1)
	}
}

// Calculate returns a whole-unit amount in [0, product ceiling].
func Calculate(in Input) int64 {
	if in.Score < MinimumScore || in.MonthlyIncome <= 0 {
		return 0
	}

	v := decimal.NewFromFloat(in.MonthlyIncome).
		Mul(Multiplier(in.Score)).
		Mul(debtPenalty(in.DebtRatioPct)).
		Truncate(0)

	ceiling := decimal.NewFromInt(in.Product.Limits().AmountCeiling)
	if v.GreaterThan(ceiling) {
		v = ceiling
	}
	if v.IsNegative() {
		return 0
	}
	return v.IntPart()
}

// MonthlyInstalment spreads a principal evenly over the duration.
func MonthlyInstalment(principal float64, months int) float64 {
	if months <= 0 {
		months = 1
	}
	f, _ := decimal.NewFromFloat(principal).
		Div(decimal.NewFromInt(int64(months))).
		Round(2).
		Float64()
	return f
}

// Ratio returns num/den, or 0 when den is not positive.
func Ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	f, _ := decimal.NewFromFloat(num).Div(decimal.NewFromFloat(den)).Float64()
	return f
}
