package engine

import (
	"math"
	"time"

	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/calibration"
)

const (
	onTimeStreakLength = 3
	onTimeStreakBonus  = 0.05
	incomeChangeFloor  = 0.1
	incomeDeltaLimit   = 0.5
	employmentRankStep = 0.2
	highDebtToIncome   = 0.5
)

// eventDelta is the signed change to score_0_10 for one event. history holds
// the subject's earlier events; only those inside the trailing window ending
// at the event's date are counted.
func eventDelta(ev *models.TransactionEvent, history []models.TransactionEvent, before *models.ApplicantProfile, window time.Duration) float64 {
	switch ev.Type {
	case models.EventRegularPayment:
		d := 0.1
		if countRecent(history, ev.ActualDate, window, models.EventRegularPayment, models.EventEarlyPayment) >= onTimeStreakLength {
			d += onTimeStreakBonus
		}
		return d

	case models.EventLatePayment:
		switch days := ev.DaysLate(); {
		case days <= 5:
			return -0.1
		case days <= 15:
			return -0.3
		case days <= 30:
			return -0.5
		default:
			return -0.8
		}

	case models.EventMissedPayment:
		repeat := 1 + countRecent(history, ev.ActualDate, window, models.EventMissedPayment)
		return -1.0 - 0.5*float64(repeat-1)

	case models.EventEarlyPayment:
		return math.Min(0.2, 0.05+0.01*float64(ev.DaysEarly()))

	case models.EventNewLoan:
		d := -0.2
		if newLoanDebtRatio(ev, before) > highDebtToIncome {
			d -= 0.3
		}
		return d

	case models.EventLoanClosure:
		d := 0.3
		if ev.Metadata.EarlyClosure {
			d += 0.2
		}
		return d

	case models.EventIncomeUpdate:
		oldIncome := before.MonthlyIncome
		if ev.Metadata.PreviousIncome != nil {
			oldIncome = *ev.Metadata.PreviousIncome
		}
		change := (newIncome(ev) - oldIncome) / math.Max(oldIncome, 1)
		if math.Abs(change) < incomeChangeFloor {
			return 0
		}
		return calibration.Clamp(change, -incomeDeltaLimit, incomeDeltaLimit)

	case models.EventEmploymentChange:
		oldEmployment := before.EmploymentType
		if ev.Metadata.PreviousEmployment != "" {
			oldEmployment = ev.Metadata.PreviousEmployment
		}
		return float64(ev.Metadata.NewEmployment.Rank()-oldEmployment.Rank()) * employmentRankStep
	}
	return 0
}

func countRecent(history []models.TransactionEvent, at time.Time, window time.Duration, types ...models.EventType) int {
	n := 0
	for _, h := range history {
		if h.ActualDate.After(at) || at.Sub(h.ActualDate) > window {
			continue
		}
		for _, t := range types {
			if h.Type == t {
				n++
				break
			}
		}
	}
	return n
}

// newLoanDebtRatio prefers the debt and income reported with the event and
// falls back to the profile's obligations.
func newLoanDebtRatio(ev *models.TransactionEvent, before *models.ApplicantProfile) float64 {
	debt := ev.Metadata.TotalDebtAfter
	if debt <= 0 {
		debt = before.MonthlyCharges + before.ExistingDebts
	}
	income := ev.Metadata.MonthlyIncome
	if income <= 0 {
		income = before.MonthlyIncome
	}
	return debt / math.Max(income, 1)
}

func newIncome(ev *models.TransactionEvent) float64 {
	if ev.Metadata.NewIncome > 0 {
		return ev.Metadata.NewIncome
	}
	return ev.Amount
}

// applyEvent returns a copy of p updated with the effect of ev.
func applyEvent(p *models.ApplicantProfile, ev *models.TransactionEvent) *models.ApplicantProfile {
	next := p.Clone()
	ps := &next.Payments

	switch ev.Type {
	case models.EventRegularPayment, models.EventEarlyPayment:
		ps.Total++
		ps.OnTime++
	case models.EventLatePayment:
		ps.Total++
		ps.Late++
		ps.AvgDaysLate += (float64(ev.DaysLate()) - ps.AvgDaysLate) / float64(ps.Late)
	case models.EventMissedPayment:
		ps.Total++
		ps.Missed++
	case models.EventNewLoan:
		next.ActiveCredits++
		if ev.Metadata.TotalDebtAfter > 0 {
			next.ExistingDebts = ev.Metadata.TotalDebtAfter
		}
	case models.EventLoanClosure:
		if next.ActiveCredits > 0 {
			next.ActiveCredits--
		}
	case models.EventIncomeUpdate:
		if v := newIncome(ev); v > 0 {
			next.MonthlyIncome = v
		}
	case models.EventEmploymentChange:
		if ev.Metadata.NewEmployment != "" {
			next.EmploymentType = ev.Metadata.NewEmployment
		}
	}
	return next
}
