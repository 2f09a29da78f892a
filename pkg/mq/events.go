package mq

import (
	"encoding/json"
	"fmt"
)

// Routing keys shared between services.
const (
	RKBookingCreated     = "booking.created"
	RKBookingConfirmed   = "booking.confirmed"
	RKBookingCancelled   = "booking.cancelled"
	RKBookingCompleted   = "booking.completed"
	RKBookingRescheduled = "booking.rescheduled"

	RKPaymentPaid   = "payment.paid"
	RKPaymentFailed = "payment.failed"

	RKCreditsChanged = "credits.changed"
)

// Payment purposes carried in charge metadata.
const (
	PurposeBooking = "booking"
	PurposeCredits = "credits"
)

// PaymentPaid is published by payment-service once a charge succeeds.
type PaymentPaid struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		PaymentID string `json:"payment_id"`
		Purpose   string `json:"purpose"`
		BookingID string `json:"booking_id,omitempty"`
		UserID    string `json:"user_id,omitempty"`
		Credits   int64  `json:"credits,omitempty"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Method    string `json:"method"`
	} `json:"data"`
}

type PaymentFailed struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		PaymentID string `json:"payment_id"`
		Purpose   string `json:"purpose"`
		BookingID string `json:"booking_id,omitempty"`
		Reason    string `json:"reason"`
	} `json:"data"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}

// BookingEvent is the payload of every booking.* routing key.
type BookingEvent struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		BookingID          string `json:"booking_id"`
		ClientID           string `json:"client_id"`
		ServiceAgentID     string `json:"service_agent_id"`
		Status             string `json:"status"`
		PaymentStatus      string `json:"payment_status"`
		ScheduledDate      string `json:"scheduled_date"`
		ScheduledTime      string `json:"scheduled_time"`
		RecurrenceGroup    string `json:"recurrence_group,omitempty"`
		RecurrenceSequence int    `json:"recurrence_sequence,omitempty"`
		RefundAmount       string `json:"refund_amount,omitempty"`
		Reason             string `json:"reason,omitempty"`
	} `json:"data"`
}

// CreditsChanged is published by credit-service after every ledger write.
type CreditsChanged struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		UserID        string `json:"user_id"`
		TransactionID string `json:"transaction_id"`
		Type          string `json:"type"`
		Amount        int64  `json:"amount"`
		Balance       int64  `json:"balance"`
	} `json:"data"`
}
