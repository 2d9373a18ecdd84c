// internal/models/event.go
package models

import (
	"fmt"
	"math"
	"time"
)

// EventType enumerates the financial events that move a score incrementally.
type EventType string

const (
	EventRegularPayment   EventType = "regular_payment"
	EventLatePayment      EventType = "late_payment"
	EventMissedPayment    EventType = "missed_payment"
	EventEarlyPayment     EventType = "early_payment"
	EventNewLoan          EventType = "new_loan"
	EventLoanClosure      EventType = "loan_closure"
	EventIncomeUpdate     EventType = "income_update"
	EventEmploymentChange EventType = "employment_change"
)

func (t EventType) Valid() bool {
	switch t {
	case EventRegularPayment, EventLatePayment, EventMissedPayment, EventEarlyPayment,
		EventNewLoan, EventLoanClosure, EventIncomeUpdate, EventEmploymentChange:
		return true
	}
	return false
}

func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return t, nil
}

// IsPayment reports whether the event is a repayment outcome.
func (t EventType) IsPayment() bool {
	switch t {
	case EventRegularPayment, EventLatePayment, EventMissedPayment, EventEarlyPayment:
		return true
	}
	return false
}

// TransactionEvent is immutable once recorded.
type TransactionEvent struct {
	ID            string        `json:"id"`
	SubjectID     string        `json:"subjectId" validate:"required"`
	Type          EventType     `json:"type" validate:"required"`
	Amount        float64       `json:"amount" validate:"gte=0"`
	ScheduledDate *time.Time    `json:"scheduledDate,omitempty"`
	ActualDate    time.Time     `json:"actualDate"`
	Metadata      EventMetadata `json:"metadata"`
}

// EventMetadata holds the per-type optional attributes of an event.
type EventMetadata struct {
	DaysLate           *int           `json:"daysLate,omitempty"`
	DaysEarly          *int           `json:"daysEarly,omitempty"`
	EarlyClosure       bool           `json:"earlyClosure,omitempty"`
	TotalDebtAfter     float64        `json:"totalDebtAfter,omitempty"`
	MonthlyIncome      float64        `json:"monthlyIncome,omitempty"`
	PreviousIncome     *float64       `json:"previousIncome,omitempty"`
	NewIncome          float64        `json:"newIncome,omitempty"`
	PreviousEmployment EmploymentType `json:"previousEmployment,omitempty" validate:"omitempty,oneof=permanent civil_servant fixed_term self_employed other"`
	NewEmployment      EmploymentType `json:"newEmployment,omitempty" validate:"omitempty,oneof=permanent civil_servant fixed_term self_employed other"`
}

// DaysLate prefers the explicit metadata value and falls back to the
// difference between actual and scheduled dates.
func (e *TransactionEvent) DaysLate() int {
	if e.Metadata.DaysLate != nil {
		return *e.Metadata.DaysLate
	}
	if e.ScheduledDate == nil || e.ActualDate.IsZero() {
		return 0
	}
	d := int(math.Ceil(e.ActualDate.Sub(*e.ScheduledDate).Hours() / 24))
	if d < 0 {
		return 0
	}
	return d
}

func (e *TransactionEvent) DaysEarly() int {
	if e.Metadata.DaysEarly != nil {
		return *e.Metadata.DaysEarly
	}
	if e.ScheduledDate == nil || e.ActualDate.IsZero() {
		return 0
	}
	d := int(math.Floor(e.ScheduledDate.Sub(e.ActualDate).Hours() / 24))
	if d < 0 {
		return 0
	}
	return d
}
