package rules

import (
	"math"
	"strings"

	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/amount"
	"microfinance-scoring/internal/scoring/features"
)

func scoreConsumption(s *sheet, p *models.ApplicantProfile, n *features.Normalized) {
	switch {
	case n.Age >= 25 && n.Age <= 55:
		s.add("age", 30)
	case (n.Age >= 18 && n.Age < 25) || (n.Age > 55 && n.Age <= 65):
		s.add("age", 10)
	default:
		s.add("age", -30)
	}

	switch n.Employment {
	case models.EmploymentPermanent, models.EmploymentCivilServant:
		s.add("employment", 120)
	case models.EmploymentFixedTerm:
		s.add("employment", 50)
	case models.EmploymentSelfEmployed:
		s.add("employment", 0)
	default:
		s.add("employment", -50)
	}

	switch {
	case n.SeniorityMonths >= 60:
		s.add("seniority", 60)
	case n.SeniorityMonths >= 24:
		s.add("seniority", 40)
	case n.SeniorityMonths >= 12:
		s.add("seniority", 0)
	default:
		s.add("seniority", -40)
	}

	s.add("income", incomeBracket(n.MonthlyIncome))

	if n.Payments.Total > 0 {
		switch {
		case n.OnTimeRatio >= 0.95:
			s.add("payment_reliability", 60)
		case n.OnTimeRatio >= 0.85:
			s.add("payment_reliability", 30)
		case n.OnTimeRatio >= 0.70:
			s.add("payment_reliability", 0)
		default:
			s.add("payment_reliability", -60)
		}
		if n.Payments.Missed > 0 {
			s.add("missed_payments", math.Max(-120, -40*float64(n.Payments.Missed)))
		}
	}

	switch {
	case n.DebtRatioPct <= 30:
		s.add("debt_ratio", 40)
	case n.DebtRatioPct <= 50:
		s.add("debt_ratio", 0)
	case n.DebtRatioPct <= 70:
		s.add("debt_ratio", -60)
	default:
		s.add("debt_ratio", -120)
	}

	if p.Request != nil && p.Request.Amount > 0 {
		instalment := amount.MonthlyInstalment(p.Request.Amount, p.Request.DurationMonths)
		ratio := math.Inf(1)
		if n.MonthlyIncome > 0 {
			ratio = instalment / n.MonthlyIncome
		}
		switch {
		case ratio <= 0.35:
			s.add("instalment_ratio", 60)
		case ratio <= 0.45:
			s.add("instalment_ratio", 20)
		case ratio <= 0.55:
			s.add("instalment_ratio", -20)
		default:
			s.add("instalment_ratio", -100)
		}
	}

	if p.Request != nil {
		switch strings.ToLower(p.Request.Purpose) {
		case "health", "education":
			s.add("purpose", 30)
		case "appliances", "renovation", "family":
			s.add("purpose", 20)
		case "travel", "leisure":
			s.add("purpose", 10)
		}
	}

	if n.Dependents >= 5 {
		s.add("dependents", -20)
	}
}

func incomeBracket(income float64) float64 {
	switch {
	case income >= 1_500_000:
		return 100
	case income >= 1_000_000:
		return 90
	case income >= 500_000:
		return 80
	case income >= 300_000:
		return 20
	default:
		return -60
	}
}

func scoreInvestment(s *sheet, p *models.ApplicantProfile, n *features.Normalized) {
	b := p.Business
	if b != nil && b.LegalForm == models.LegalFormCompany {
		switch {
		case b.AnnualTurnover >= 50_000_000:
			s.add("company_turnover", 100)
		case b.AnnualTurnover >= 20_000_000:
			s.add("company_turnover", 70)
		case b.AnnualTurnover >= 10_000_000:
			s.add("company_turnover", 40)
		default:
			s.add("company_turnover", 20)
		}

		if b.AnnualTurnover > 0 {
			switch {
			case b.NetMarginPct >= 20:
				s.add("net_margin", 80)
			case b.NetMarginPct >= 10:
				s.add("net_margin", 50)
			case b.NetMarginPct >= 5:
				s.add("net_margin", 30)
			default:
				s.add("net_margin", -20)
			}
		}

		switch {
		case b.HasStatutes && b.HasPatent:
			s.add("legal_documents", 40)
		case b.HasStatutes || b.HasPatent:
			s.add("legal_documents", 20)
		}
	} else {
		switch {
		case n.MonthlyIncome >= 1_000_000:
			s.add("income", 80)
		case n.MonthlyIncome >= 500_000:
			s.add("income", 50)
		case n.MonthlyIncome >= 300_000:
			s.add("income", 30)
		}
	}

	if b == nil {
		return
	}
	if amt, _ := requested(p); amt > 0 {
		coverage := b.CollateralValue / amt
		switch {
		case coverage >= 1.5:
			s.add("collateral_coverage", 80)
		case coverage >= 1:
			s.add("collateral_coverage", 50)
		case coverage >= 0.5:
			s.add("collateral_coverage", 20)
		}
	}

	kind := strings.ToLower(b.InvestmentType)
	switch {
	case strings.Contains(kind, "equipment") || strings.Contains(kind, "machine"):
		s.add("investment_type", 40)
	case strings.Contains(kind, "real_estate") || strings.Contains(kind, "real estate"):
		s.add("investment_type", 35)
	case strings.Contains(kind, "stock"):
		s.add("investment_type", 20)
	}
}

func ratingPoints(rating string, excellent, good, average, other float64) float64 {
	switch strings.ToLower(rating) {
	case "excellent":
		return excellent
	case "good":
		return good
	case "average", "":
		return average
	default:
		return other
	}
}

func scoreInvoiceAdvance(s *sheet, p *models.ApplicantProfile) {
	inv := p.Invoice
	if inv == nil {
		inv = &models.InvoiceInfo{}
	}
	amt, _ := requested(p)

	if inv.Amount > 0 {
		if amt/inv.Amount <= 0.7 {
			s.add("advance_ratio", 100)
		} else {
			s.add("advance_ratio", -100)
		}
	}

	s.add("client_rating", ratingPoints(inv.ClientRating, 120, 80, 40, -50))

	term := inv.PaymentTermDays
	if term == 0 {
		term = 90
	}
	switch {
	case term <= 30:
		s.add("payment_term", 100)
	case term <= 60:
		s.add("payment_term", 70)
	case term <= 90:
		s.add("payment_term", 40)
	default:
		s.add("payment_term", -30)
	}

	if inv.Verified {
		s.add("invoice_verified", 60)
	}

	switch {
	case inv.RelationshipMonths >= 24:
		s.add("business_relationship", 40)
	case inv.RelationshipMonths >= 12:
		s.add("business_relationship", 25)
	case inv.RelationshipMonths >= 6:
		s.add("business_relationship", 10)
	}
}

func scoreOrderAdvance(s *sheet, p *models.ApplicantProfile) {
	o := p.Order
	if o == nil {
		o = &models.OrderInfo{}
	}

	if o.Verified {
		s.add("order_verified", 100)
	} else {
		s.add("order_verified", -50)
	}

	s.add("client_reputation", ratingPoints(o.ClientReputation, 100, 60, 30, -40))

	capacity := o.ProductionCapacity
	if capacity == 0 {
		capacity = 5
	}
	s.add("production_capacity", math.Min(10, math.Max(0, capacity))*8)

	switch {
	case o.MarginPct >= 30:
		s.add("expected_margin", 60)
	case o.MarginPct >= 20:
		s.add("expected_margin", 40)
	case o.MarginPct >= 10:
		s.add("expected_margin", 20)
	default:
		s.add("expected_margin", -20)
	}

	raw := o.RawMaterialRatio
	if raw == 0 {
		raw = 0.5
	}
	switch {
	case raw <= 0.4:
		s.add("raw_material_share", 60)
	case raw <= 0.6:
		s.add("raw_material_share", 30)
	default:
		s.add("raw_material_share", -20)
	}
}

func scoreSavingsCircle(s *sheet, p *models.ApplicantProfile) {
	sc := p.SavingsCircle
	if sc == nil {
		sc = &models.SavingsCircleInfo{}
	}

	switch {
	case sc.ContributionMonths >= 24 && sc.MissedContributions == 0:
		s.add("contribution_history", 140)
	case sc.ContributionMonths >= 12 && sc.MissedContributions <= 1:
		s.add("contribution_history", 100)
	case sc.ContributionMonths >= 6 && sc.MissedContributions <= 2:
		s.add("contribution_history", 60)
	default:
		s.add("contribution_history", -50)
	}

	switch {
	case sc.MembershipMonths >= 24:
		s.add("membership", 100)
	case sc.MembershipMonths >= 12:
		s.add("membership", 60)
	case sc.MembershipMonths >= 6:
		s.add("membership", 30)
	default:
		s.add("membership", -30)
	}

	if sc.MonthlyContribution > 0 {
		amt, _ := requested(p)
		ratio := amt / (sc.MonthlyContribution * 12)
		switch {
		case ratio <= 2:
			s.add("contribution_coverage", 80)
		case ratio <= 3:
			s.add("contribution_coverage", 50)
		case ratio <= 4:
			s.add("contribution_coverage", 20)
		default:
			s.add("contribution_coverage", -40)
		}
	}

	switch {
	case sc.GroupDefaultRate == 0:
		s.add("group_solidarity", 80)
	case sc.GroupDefaultRate <= 0.05:
		s.add("group_solidarity", 50)
	case sc.GroupDefaultRate <= 0.10:
		s.add("group_solidarity", 20)
	default:
		s.add("group_solidarity", -50)
	}
}

// recognisedPensionFund reports CNSS or CPPF affiliation.
func recognisedPensionFund(fund string) bool {
	switch strings.ToUpper(strings.TrimSpace(fund)) {
	case "CNSS", "CPPF":
		return true
	}
	return false
}

func scorePensionAdvance(s *sheet, p *models.ApplicantProfile, n *features.Normalized) {
	pen := p.Pension
	if pen == nil {
		pen = &models.PensionInfo{}
	}

	if pen.MonthlyPension > 0 {
		amt, months := requested(p)
		if months <= 0 {
			months = 12
		}
		ratio := amount.MonthlyInstalment(amt, months) / pen.MonthlyPension
		switch {
		case ratio <= 0.3:
			s.add("pension_coverage", 120)
		case ratio <= 0.4:
			s.add("pension_coverage", 80)
		case ratio <= 0.5:
			s.add("pension_coverage", 40)
		default:
			s.add("pension_coverage", -60)
		}
	}

	switch {
	case pen.PensionMonths >= 24:
		s.add("pension_duration", 100)
	case pen.PensionMonths >= 12:
		s.add("pension_duration", 60)
	case pen.PensionMonths >= 6:
		s.add("pension_duration", 30)
	}

	switch {
	case n.Age <= 65:
		s.add("age", 60)
	case n.Age <= 70:
		s.add("age", 40)
	case n.Age <= 75:
		s.add("age", 20)
	default:
		s.add("age", -30)
	}

	if recognisedPensionFund(pen.Fund) {
		s.add("pension_affiliation", 40)
	}

	if pen.OtherIncome > 0 {
		s.add("other_income", math.Min(60, math.Floor(pen.OtherIncome/50_000*10)))
	}
}

var urgentReasons = []string{"medical", "death", "accident", "catastrophe", "business_opportunity", "business opportunity"}

func scoreSpotEmergency(s *sheet, p *models.ApplicantProfile) {
	var reason, source string
	if p.Emergency != nil {
		reason = strings.ToLower(p.Emergency.Reason)
		source = strings.ToLower(p.Emergency.RepaymentSource)
	}

	urgent := false
	for _, r := range urgentReasons {
		if reason != "" && strings.Contains(reason, r) {
			urgent = true
			break
		}
	}
	if urgent {
		s.add("urgency", 100)
	} else {
		s.add("urgency", 20)
	}

	switch {
	case strings.Contains(source, "contract") || strings.Contains(source, "invoice"):
		s.add("repayment_source", 120)
	case strings.Contains(source, "sale") || strings.Contains(source, "stock"):
		s.add("repayment_source", 80)
	case strings.Contains(source, "salary"):
		s.add("repayment_source", 60)
	default:
		s.add("repayment_source", 20)
	}

	var cashflow, years float64
	if p.Business != nil {
		cashflow = p.Business.MonthlyCashflow
		years = p.Business.YearsInBusiness
	}
	if amt, _ := requested(p); cashflow > 0 && amt > 0 {
		coverage := cashflow * 3 / amt
		switch {
		case coverage >= 2:
			s.add("cashflow_coverage", 100)
		case coverage >= 1.5:
			s.add("cashflow_coverage", 60)
		case coverage >= 1:
			s.add("cashflow_coverage", 30)
		default:
			s.add("cashflow_coverage", -50)
		}
	}

	switch {
	case years >= 3:
		s.add("business_age", 80)
	case years >= 2:
		s.add("business_age", 50)
	case years >= 1:
		s.add("business_age", 20)
	default:
		s.add("business_age", -30)
	}
}
