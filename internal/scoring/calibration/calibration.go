// Package calibration maps classifier probabilities and rule points onto the
// public 0-10 and 300-850 scales and a shared risk-tier table.
package calibration

import (
	"math"

	"microfinance-scoring/internal/models"
)

const (
	RuleMin = 300.0
	RuleMax = 900.0

	ConfidenceTrained   = 0.85
	ConfidenceRuleBased = 0.70
)

// Result is the calibrated view of one risk estimate.
type Result struct {
	Score      float64
	Score850   int
	RiskTier   models.RiskTier
	ModelType  models.ModelType
	Confidence float64
}

// FromProbability calibrates a classifier probability of being a good debtor.
func FromProbability(p float64) Result {
	if math.IsNaN(p) {
		p = 0
	}
	s := Clamp(3+7*p, models.ScoreMin, models.ScoreMax)
	return derive(s, models.ModelTrained, ConfidenceTrained)
}

// FromRulePoints calibrates a raw rule score; it is clamped to the rule range first.
func FromRulePoints(points float64) Result {
	points = ClampRule(points)
	s := (points - RuleMin) / (RuleMax - RuleMin) * models.ScoreMax
	return derive(Clamp(s, models.ScoreMin, models.ScoreMax), models.ModelRuleBased, ConfidenceRuleBased)
}

// Rederive recomputes the dependent fields of an adjusted 0-10 score while
// keeping the model path of the record it came from.
func Rederive(score float64, model models.ModelType, confidence float64) Result {
	return derive(Clamp(score, models.ScoreMin, models.ScoreMax), model, Clamp(confidence, 0, 1))
}

func derive(score float64, model models.ModelType, confidence float64) Result {
	return Result{
		Score:      score,
		Score850:   To850(score),
		RiskTier:   Tier(score),
		ModelType:  model,
		Confidence: confidence,
	}
}

// To850 is monotonic non-decreasing in score.
func To850(score float64) int {
	score = Clamp(score, models.ScoreMin, models.ScoreMax)
	v := models.Score850Min + int(math.Round(score/models.ScoreMax*550))
	if v < models.Score850Min {
		return models.Score850Min
	}
	if v > models.Score850Max {
		return models.Score850Max
	}
	return v
}

// Tier is the single threshold table shared by both scoring paths.
func Tier(score float64) models.RiskTier {
	switch {
	case score >= 8:
		return models.RiskVeryLow
	case score >= 7:
		return models.RiskLow
	case score >= 5:
		return models.RiskMedium
	case score >= 3:
		return models.RiskHigh
	default:
		return models.RiskVeryHigh
	}
}

func ClampRule(points float64) float64 {
	if math.IsNaN(points) {
		return RuleMin
	}
	return Clamp(points, RuleMin, RuleMax)
}

// Clamp returns lo for NaN input.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
