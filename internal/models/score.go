// internal/models/score.go
package models

import "time"

// RiskTier is the discretized risk bucket derived from score_0_10.
type RiskTier string

const (
	RiskVeryLow  RiskTier = "very_low"
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskVeryHigh RiskTier = "very_high"
)

// ModelType records which path produced a score.
type ModelType string

const (
	ModelTrained   ModelType = "trained"
	ModelRuleBased ModelType = "rule_based"
)

// ScoreSource describes why a ScoreRecord was written.
type ScoreSource string

const (
	SourceFullRecompute ScoreSource = "full_recompute"
	SourceTransaction   ScoreSource = "transaction"
)

const (
	ScoreMin    = 0.0
	ScoreMax    = 10.0
	Score850Min = 300
	Score850Max = 850
)

// ScoreRecord is one immutable entry of a subject's score history.
// The current record of a subject is the one with the highest Version.
type ScoreRecord struct {
	ID              string       `json:"id"`
	SubjectID       string       `json:"subjectId"`
	Version         int64        `json:"version"`
	Score           float64      `json:"score"`
	Score850        int          `json:"score850"`
	RiskTier        RiskTier     `json:"riskTier"`
	EligibleAmount  int64        `json:"eligibleAmount"`
	ModelType       ModelType    `json:"modelType"`
	Confidence      float64      `json:"confidence"`
	ProductType     ProductType  `json:"productType"`
	Source          ScoreSource  `json:"source"`
	ComputedAt      time.Time    `json:"computedAt"`
	Details         ScoreDetails `json:"details"`
	Recommendations []string     `json:"recommendations"`
	// ProfileFingerprint identifies the profile snapshot the record was computed from.
	ProfileFingerprint string `json:"profileFingerprint,omitempty"`
}

// ScoreDetails carries the explanatory data attached to a ScoreRecord.
type ScoreDetails struct {
	PaymentReliability string   `json:"paymentReliability"`
	OnTimeRatioPct     float64  `json:"onTimeRatioPct"`
	TotalPayments      int      `json:"totalPayments"`
	AvgDelayDays       float64  `json:"avgDelayDays"`
	DebtRatioPct       float64  `json:"debtRatioPct"`
	ActiveCredits      int      `json:"activeCredits"`
	PunctualityScore   float64  `json:"punctualityScore"`
	PaymentConsistency float64  `json:"paymentConsistency"`
	DebtTrend          string   `json:"debtTrend"`
	DominantFactor     string   `json:"dominantFactor,omitempty"`
	RulePoints         *float64 `json:"rulePoints,omitempty"`
	ProbabilityGood    *float64 `json:"probabilityGood,omitempty"`
	EventType          string   `json:"eventType,omitempty"`
	Delta              float64  `json:"delta,omitempty"`
	ModelVersion       string   `json:"modelVersion,omitempty"`
}

// Age returns how old the record is at now.
func (r *ScoreRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.ComputedAt)
}

// EligibilityResult is the explicit outcome of an eligibility check.
type EligibilityResult struct {
	SubjectID      string      `json:"subjectId"`
	ProductType    ProductType `json:"productType"`
	Eligible       bool        `json:"eligible"`
	Reasons        []string    `json:"reasons"`
	EligibleAmount int64       `json:"eligibleAmount"`
	Score          float64     `json:"score"`
	RiskTier       RiskTier    `json:"riskTier"`
}

// ScoreCacheEntry is a short-lived copy of a subject's latest result. CacheKey
// is the fingerprint of the profile the result was computed from.
type ScoreCacheEntry struct {
	SubjectID  string       `json:"subjectId"`
	CacheKey   string       `json:"cacheKey"`
	Result     *ScoreRecord `json:"result"`
	ComputedAt time.Time    `json:"computedAt"`
}
