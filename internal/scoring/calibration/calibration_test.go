package calibration

import (
	"math"
	"testing"

	"microfinance-scoring/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFromProbability_RangeAndFormula(t *testing.T) {
	for p := 0.0; p <= 1.0; p += 0.01 {
		r := FromProbability(p)
		assert.InDelta(t, 3+7*p, r.Score, 1e-9)
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 10.0)
		assert.Equal(t, models.ModelTrained, r.ModelType)
		assert.Equal(t, ConfidenceTrained, r.Confidence)
	}

	assert.Equal(t, 10.0, FromProbability(1.7).Score)
	assert.Equal(t, 0.0, FromProbability(-1).Score)
	assert.Equal(t, 3.0, FromProbability(math.NaN()).Score)
}

func TestFromRulePoints(t *testing.T) {
	tests := []struct {
		points float64
		score  float64
		tier   models.RiskTier
	}{
		{300, 0, models.RiskVeryHigh},
		{120, 0, models.RiskVeryHigh},
		{600, 5, models.RiskMedium},
		{760, 7.666666666666667, models.RiskLow},
		{900, 10, models.RiskVeryLow},
		{1200, 10, models.RiskVeryLow},
	}
	for _, tt := range tests {
		r := FromRulePoints(tt.points)
		assert.InDelta(t, tt.score, r.Score, 1e-9, "points %v", tt.points)
		assert.Equal(t, tt.tier, r.RiskTier)
		assert.Equal(t, models.ModelRuleBased, r.ModelType)
		assert.Equal(t, ConfidenceRuleBased, r.Confidence)
	}
}

func TestTo850_MonotonicAndBounded(t *testing.T) {
	prev := To850(0)
	assert.Equal(t, 300, prev)
	for s := 0.0; s <= 10.0; s += 0.005 {
		v := To850(s)
		assert.GreaterOrEqual(t, v, 300)
		assert.LessOrEqual(t, v, 850)
		assert.GreaterOrEqual(t, v, prev)
		assert.Equal(t, 300+int(math.Round(s/10*550)), v)
		prev = v
	}
	assert.Equal(t, 850, To850(10))
	assert.Equal(t, 850, To850(42))
	assert.Equal(t, 300, To850(-3))
}

func TestTier(t *testing.T) {
	tests := []struct {
		score float64
		want  models.RiskTier
	}{
		{9.2, models.RiskVeryLow},
		{8, models.RiskVeryLow},
		{7.99, models.RiskLow},
		{7, models.RiskLow},
		{5, models.RiskMedium},
		{4.99, models.RiskHigh},
		{3, models.RiskHigh},
		{2.99, models.RiskVeryHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tier(tt.score), "score %v", tt.score)
	}
}

func TestRederive_ClampsAndKeepsModel(t *testing.T) {
	r := Rederive(11.3, models.ModelTrained, 0.85)
	assert.Equal(t, 10.0, r.Score)
	assert.Equal(t, 850, r.Score850)
	assert.Equal(t, models.ModelTrained, r.ModelType)

	r = Rederive(-0.4, models.ModelRuleBased, 0.7)
	assert.Equal(t, 0.0, r.Score)
	assert.Equal(t, models.RiskVeryHigh, r.RiskTier)
}
