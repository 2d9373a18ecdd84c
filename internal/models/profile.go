// internal/models/profile.go
package models

// EmploymentType is the contract type of a subject's main occupation.
type EmploymentType string

const (
	EmploymentPermanent    EmploymentType = "permanent"
	EmploymentCivilServant EmploymentType = "civil_servant"
	EmploymentFixedTerm    EmploymentType = "fixed_term"
	EmploymentSelfEmployed EmploymentType = "self_employed"
	EmploymentOther        EmploymentType = "other"
)

// Rank orders employment types by stability. Unknown values rank as other.
func (e EmploymentType) Rank() int {
	switch e {
	case EmploymentPermanent, EmploymentCivilServant:
		return 3
	case EmploymentFixedTerm:
		return 2
	case EmploymentSelfEmployed:
		return 1
	}
	return 0
}

// CreditHistory is the bureau-style summary of past credit behaviour.
type CreditHistory string

const (
	CreditHistoryNone      CreditHistory = ""
	CreditHistoryExcellent CreditHistory = "excellent"
	CreditHistoryGood      CreditHistory = "good"
	CreditHistoryAverage   CreditHistory = "average"
	CreditHistoryBad       CreditHistory = "bad"
)

// ApplicantProfile is an immutable snapshot of a subject used for one scoring call.
// Optional numeric fields are pointers so that "unknown" and "zero" stay distinct.
type ApplicantProfile struct {
	SubjectID       string         `json:"subjectId" validate:"required"`
	Age             *int           `json:"age,omitempty" validate:"omitempty,gte=0,lte=120"`
	MonthlyIncome   float64        `json:"monthlyIncome" validate:"gte=0"`
	MonthlyCharges  float64        `json:"monthlyCharges" validate:"gte=0"`
	ExistingDebts   float64        `json:"existingDebts" validate:"gte=0"`
	EmploymentType  EmploymentType `json:"employmentType,omitempty" validate:"omitempty,oneof=permanent civil_servant fixed_term self_employed other"`
	SeniorityMonths *int           `json:"seniorityMonths,omitempty" validate:"omitempty,gte=0"`
	Dependents      int            `json:"dependents,omitempty" validate:"gte=0"`
	ActiveCredits   int            `json:"activeCredits,omitempty" validate:"gte=0"`
	// DebtRatio is a declared debt ratio in percent; derived from income when nil.
	DebtRatio     *float64       `json:"debtRatio,omitempty" validate:"omitempty,gte=0"`
	CreditHistory CreditHistory  `json:"creditHistory,omitempty" validate:"omitempty,oneof=excellent good average bad"`
	Payments      PaymentSummary `json:"payments"`

	Request       *LoanRequest       `json:"request,omitempty"`
	Business      *BusinessInfo      `json:"business,omitempty"`
	Invoice       *InvoiceInfo       `json:"invoice,omitempty"`
	Order         *OrderInfo         `json:"order,omitempty"`
	SavingsCircle *SavingsCircleInfo `json:"savingsCircle,omitempty"`
	Pension       *PensionInfo       `json:"pension,omitempty"`
	Emergency     *EmergencyInfo     `json:"emergency,omitempty"`
}

// PaymentSummary aggregates the repayment history of a subject.
type PaymentSummary struct {
	Total       int     `json:"total" validate:"gte=0"`
	OnTime      int     `json:"onTime" validate:"gte=0"`
	Late        int     `json:"late" validate:"gte=0"`
	Missed      int     `json:"missed" validate:"gte=0"`
	AvgDaysLate float64 `json:"avgDaysLate" validate:"gte=0"`
}

// LoanRequest is the credit being applied for.
type LoanRequest struct {
	ProductType    ProductType `json:"productType"`
	Amount         float64     `json:"amount" validate:"gte=0"`
	DurationMonths int         `json:"durationMonths" validate:"gte=0"`
	Purpose        string      `json:"purpose,omitempty"`
}

// LegalForm distinguishes individual borrowers from incorporated companies.
type LegalForm string

const (
	LegalFormIndividual LegalForm = "individual"
	LegalFormCompany    LegalForm = "company"
)

type BusinessInfo struct {
	LegalForm       LegalForm `json:"legalForm,omitempty"`
	AnnualTurnover  float64   `json:"annualTurnover,omitempty"`
	NetMarginPct    float64   `json:"netMarginPct,omitempty"`
	HasStatutes     bool      `json:"hasStatutes,omitempty"`
	HasPatent       bool      `json:"hasPatent,omitempty"`
	YearsInBusiness float64   `json:"yearsInBusiness,omitempty"`
	MonthlyCashflow float64   `json:"monthlyCashflow,omitempty"`
	CollateralValue float64   `json:"collateralValue,omitempty"`
	InvestmentType  string    `json:"investmentType,omitempty"`
}

type InvoiceInfo struct {
	Amount             float64 `json:"amount"`
	ClientRating       string  `json:"clientRating,omitempty"`
	PaymentTermDays    int     `json:"paymentTermDays,omitempty"`
	Verified           bool    `json:"verified,omitempty"`
	RelationshipMonths int     `json:"relationshipMonths,omitempty"`
}

type OrderInfo struct {
	Amount             float64 `json:"amount"`
	Verified           bool    `json:"verified,omitempty"`
	ClientReputation   string  `json:"clientReputation,omitempty"`
	ProductionCapacity float64 `json:"productionCapacity,omitempty"`
	MarginPct          float64 `json:"marginPct,omitempty"`
	RawMaterialRatio   float64 `json:"rawMaterialRatio,omitempty"`
}

type SavingsCircleInfo struct {
	ContributionMonths  int     `json:"contributionMonths"`
	MissedContributions int     `json:"missedContributions,omitempty"`
	MembershipMonths    int     `json:"membershipMonths,omitempty"`
	MonthlyContribution float64 `json:"monthlyContribution,omitempty"`
	GroupDefaultRate    float64 `json:"groupDefaultRate,omitempty"`
}

type PensionInfo struct {
	MonthlyPension float64 `json:"monthlyPension"`
	PensionMonths  int     `json:"pensionMonths,omitempty"`
	Fund           string  `json:"fund,omitempty"`
	OtherIncome    float64 `json:"otherIncome,omitempty"`
}

type EmergencyInfo struct {
	Reason          string `json:"reason,omitempty"`
	RepaymentSource string `json:"repaymentSource,omitempty"`
}

// ProductType returns the requested product, defaulting to consumption when
// none is requested. Validation rejects values outside the catalogue.
func (p *ApplicantProfile) ProductType() ProductType {
	if p.Request != nil && p.Request.ProductType.Valid() {
		return p.Request.ProductType
	}
	return ProductConsumption
}

// Clone returns a deep copy so callers may mutate the result freely.
func (p *ApplicantProfile) Clone() *ApplicantProfile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Age != nil {
		v := *p.Age
		c.Age = &v
	}
	if p.SeniorityMonths != nil {
		v := *p.SeniorityMonths
		c.SeniorityMonths = &v
	}
	if p.DebtRatio != nil {
		v := *p.DebtRatio
		c.DebtRatio = &v
	}
	if p.Request != nil {
		v := *p.Request
		c.Request = &v
	}
	if p.Business != nil {
		v := *p.Business
		c.Business = &v
	}
	if p.Invoice != nil {
		v := *p.Invoice
		c.Invoice = &v
	}
	if p.Order != nil {
		v := *p.Order
		c.Order = &v
	}
	if p.SavingsCircle != nil {
		v := *p.SavingsCircle
		c.SavingsCircle = &v
	}
	if p.Pension != nil {
		v := *p.Pension
		c.Pension = &v
	}
	if p.Emergency != nil {
		v := *p.Emergency
		c.Emergency = &v
	}
	return &c
}
