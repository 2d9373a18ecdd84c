// Package features turns an ApplicantProfile into the fixed-order numeric
// vector consumed by the classifier and the rule scorer.
package features

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultAge       = 35
	DefaultSeniority = 0
)

// Names lists the vector entries in order.
var Names = []string{
	"monthly_income",
	"seniority_months",
	"monthly_charges",
	"existing_debts",
	"employment_rank",
	"active_credits",
	"debt_ratio_pct",
	"total_payments",
	"on_time_payments",
	"late_payments",
	"missed_payments",
	"avg_days_late",
	"debt_to_income",
	"capacity_ratio",
	"payment_on_time_ratio",
}

// Size is the length of every feature vector.
var Size = len(Names)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalized is a profile with every default applied and ratios derived.
type Normalized struct {
	SubjectID       string
	Age             int
	SeniorityMonths int
	MonthlyIncome   float64
	MonthlyCharges  float64
	ExistingDebts   float64
	Employment      models.EmploymentType
	EmploymentRank  int
	ActiveCredits   int
	Dependents      int
	DebtRatioPct    float64
	Payments        models.PaymentSummary
	DebtToIncome    float64
	CapacityRatio   float64
	OnTimeRatio     float64
}

// Normalize validates the mandatory fields of p and fills documented defaults.
// Missing optional fields never produce an error.
func Normalize(p *models.ApplicantProfile) (*Normalized, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	n := &Normalized{
		SubjectID:       p.SubjectID,
		Age:             DefaultAge,
		SeniorityMonths: DefaultSeniority,
		MonthlyIncome:   p.MonthlyIncome,
		MonthlyCharges:  p.MonthlyCharges,
		ExistingDebts:   p.ExistingDebts,
		Employment:      p.EmploymentType,
		EmploymentRank:  p.EmploymentType.Rank(),
		ActiveCredits:   p.ActiveCredits,
		Dependents:      p.Dependents,
		Payments:        p.Payments,
	}
	if n.Employment == "" {
		n.Employment = models.EmploymentOther
	}
	if p.Age != nil {
		n.Age = *p.Age
	}
	if p.SeniorityMonths != nil {
		n.SeniorityMonths = *p.SeniorityMonths
	}

	income := math.Max(p.MonthlyIncome, 1)
	n.DebtToIncome = (p.MonthlyCharges + p.ExistingDebts) / income
	n.CapacityRatio = math.Max(0, (p.MonthlyIncome-p.MonthlyCharges-p.ExistingDebts)/income)
	n.OnTimeRatio = float64(p.Payments.OnTime) / math.Max(float64(p.Payments.Total), 1)

	if p.DebtRatio != nil {
		n.DebtRatioPct = *p.DebtRatio
	} else {
		n.DebtRatioPct = n.DebtToIncome * 100
	}
	return n, nil
}

// Vector returns the features in the order of Names.
func (n *Normalized) Vector() []float64 {
	return []float64{
		n.MonthlyIncome,
		float64(n.SeniorityMonths),
		n.MonthlyCharges,
		n.ExistingDebts,
		float64(n.EmploymentRank),
		float64(n.ActiveCredits),
		n.DebtRatioPct,
		float64(n.Payments.Total),
		float64(n.Payments.OnTime),
		float64(n.Payments.Late),
		float64(n.Payments.Missed),
		n.Payments.AvgDaysLate,
		n.DebtToIncome,
		n.CapacityRatio,
		n.OnTimeRatio,
	}
}

// Validate checks identity, mandatory numeric fields and the enumerated
// fields. A requested product outside the catalogue is UNKNOWN_PRODUCT_TYPE.
func Validate(p *models.ApplicantProfile) error {
	if p == nil {
		return errors.NewInvalidInputError("profile is required")
	}
	if p.Request != nil && p.Request.ProductType != "" && !p.Request.ProductType.Valid() {
		return errors.NewUnknownProductTypeError(string(p.Request.ProductType))
	}
	for name, v := range map[string]float64{
		"monthlyIncome":  p.MonthlyIncome,
		"monthlyCharges": p.MonthlyCharges,
		"existingDebts":  p.ExistingDebts,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewInvalidInputError(name + " must be a finite number")
		}
	}
	if err := validate.Struct(p); err != nil {
		return errors.NewInvalidInputError(describe(err))
	}
	return nil
}

// ValidateEvent checks the mandatory fields of a transaction event.
func ValidateEvent(e *models.TransactionEvent) error {
	if e == nil {
		return errors.NewInvalidInputError("event is required")
	}
	if err := validate.Struct(e); err != nil {
		return errors.NewInvalidInputError(describe(err))
	}
	if !e.Type.Valid() {
		return errors.NewUnknownEventTypeError(string(e.Type))
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return errors.NewInvalidInputError("amount must be a finite number")
	}
	switch e.Type {
	case models.EventIncomeUpdate:
		if e.Metadata.NewIncome <= 0 && e.Amount <= 0 {
			return errors.NewInvalidInputError("income_update needs a positive amount or metadata.newIncome")
		}
	case models.EventEmploymentChange:
		if e.Metadata.NewEmployment == "" {
			return errors.NewInvalidInputError("employment_change needs metadata.newEmployment")
		}
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// Fingerprint identifies a profile snapshot; equal profiles share a fingerprint.
func Fingerprint(p *models.ApplicantProfile) string {
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}
