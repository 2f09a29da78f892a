package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func (s Status) CanTransition(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

const TimeLayout = "15:04"
const DateLayout = "2006-01-02"

type Booking struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ClientID         string          `gorm:"index;not null" json:"client_id"`
	ServiceAgentID   string          `gorm:"index;not null" json:"service_agent_id"`
	ServicePackageID string          `gorm:"index" json:"service_package_id"`
	ScheduledDate    time.Time       `gorm:"type:date;index" json:"scheduled_date"`
	ScheduledTime    string          `gorm:"type:varchar(5)" json:"scheduled_time"` // HH:MM
	Status           Status          `gorm:"type:varchar(16);index" json:"status"`
	Address          string          `json:"address"`
	City             string          `json:"city"`
	State            string          `json:"state"`
	ZipCode          string          `json:"zip_code"`
	Notes            string          `json:"notes,omitempty"`
	Price            decimal.Decimal `gorm:"type:numeric(12,2)" json:"price"`
	PaymentStatus    PaymentStatus   `gorm:"type:varchar(16)" json:"payment_status"`
	ChargeID         string          `gorm:"index" json:"charge_id,omitempty"`

	IsRecurring        bool    `json:"is_recurring"`
	RecurrenceGroup    *string `gorm:"type:varchar(36);index" json:"recurrence_group,omitempty"`
	RecurrenceSequence int     `json:"recurrence_sequence,omitempty"`

	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	RefundAmount       decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"refund_amount"`
	RefundID           string              `json:"refund_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppointmentAt combines the scheduled date and time in loc.
func (b *Booking) AppointmentAt(loc *time.Location) (time.Time, error) {
	return Appointment(b.ScheduledDate, b.ScheduledTime, loc)
}

func Appointment(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	clock, err := time.Parse(TimeLayout, hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduled time %q: %w", hhmm, err)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

// ParseDate reads a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ServicePackage is a bookable offer published by a service agent.
type ServicePackage struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ServiceAgentID string          `gorm:"index;not null" json:"service_agent_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Price          decimal.Decimal `gorm:"type:numeric(12,2)" json:"price"`
	Duration       int             `json:"duration"`
	DurationUnit   string          `json:"duration_unit"` // minutes|hours
	Active         bool            `gorm:"index" json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type EventConsumed struct {
	ID          string `gorm:"primaryKey"` // payment id
	EventKey    string `gorm:"index"`      // e.g. payment.paid
	ProcessedAt time.Time
}
