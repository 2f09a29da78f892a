package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/pkg/payments"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrUnverified   = errors.New("webhook event could not be verified")
)

// Gateway is the payments provider; *payments.Client satisfies it.
type Gateway interface {
	CreateCardCharge(ctx context.Context, in payments.ChargeRequest) (*payments.Charge, error)
	GetCharge(ctx context.Context, id string) (*payments.Charge, error)
	RetrieveEvent(ctx context.Context, id string) (*payments.Event, error)
}

// MaxCreditsPerCharge caps a single credit purchase.
const MaxCreditsPerCharge = 100000

type PaymentSvc struct {
	gw         Gateway
	pub        mq.EventPublisher
	log        *slog.Logger
	now        func() time.Time
	creditUnit decimal.Decimal
}

type Option func(*PaymentSvc)

// WithCreditUnitPrice sets the price of one credit in major units.
func WithCreditUnitPrice(p decimal.Decimal) Option {
	return func(s *PaymentSvc) { s.creditUnit = p }
}

func NewPaymentSvc(gw Gateway, pub mq.EventPublisher, log *slog.Logger, opts ...Option) *PaymentSvc {
	if pub == nil {
		pub = mq.Nop{}
	}
	s := &PaymentSvc{gw: gw, pub: pub, log: log, now: time.Now, creditUnit: decimal.NewFromInt(1)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CardChargeInput is a card payment request. Amount is only read for
// bookings; credit purchases are priced from the unit price.
type CardChargeInput struct {
	Purpose   string
	BookingID string
	Credits   int64
	Amount    decimal.Decimal
	CardToken string
}

// CreditPrice is what a purchase of n credits costs.
func (s *PaymentSvc) CreditPrice(n int64) decimal.Decimal {
	return s.creditUnit.Mul(decimal.NewFromInt(n))
}

// CreateCardCharge charges a card on behalf of the caller. Final outcomes are
// published right away; pending charges wait for the webhook.
func (s *PaymentSvc) CreateCardCharge(ctx context.Context, sub, role string, in CardChargeInput) (*payments.Charge, error) {
	if sub == "" {
		return nil, ErrForbidden
	}
	if role == auth.RoleServiceAgent {
		return nil, fmt.Errorf("%w: service agents cannot pay", ErrForbidden)
	}
	req := payments.ChargeRequest{
		Purpose:   in.Purpose,
		UserID:    sub,
		CardToken: in.CardToken,
	}
	switch in.Purpose {
	case mq.PurposeBooking:
		if in.BookingID == "" {
			return nil, fmt.Errorf("%w: booking_id required", ErrInvalidInput)
		}
		req.BookingID = in.BookingID
		req.Amount = in.Amount
		req.Description = "Booking " + in.BookingID
	case mq.PurposeCredits:
		if in.Credits <= 0 || in.Credits > MaxCreditsPerCharge {
			return nil, fmt.Errorf("%w: credits must be between 1 and %d", ErrInvalidInput, MaxCreditsPerCharge)
		}
		req.Credits = in.Credits
		req.Amount = s.CreditPrice(in.Credits)
		req.Description = fmt.Sprintf("%d credits", in.Credits)
	default:
		return nil, fmt.Errorf("%w: purpose must be booking or credits", ErrInvalidInput)
	}

	ch, err := s.gw.CreateCardCharge(ctx, req)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidParams) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}
	// metadata round-trips through the provider; fill it locally for the
	// immediate publish
	ch.Purpose, ch.BookingID, ch.UserID, ch.Credits = req.Purpose, req.BookingID, req.UserID, req.Credits
	s.log.InfoContext(ctx, "charge created", "charge_id", ch.ID, "status", ch.Status, "purpose", ch.Purpose)
	s.publishOutcome(ctx, ch)
	return ch, nil
}

// GetCharge returns a charge to the user who paid it, or to an admin.
func (s *PaymentSvc) GetCharge(ctx context.Context, sub, role, id string) (*payments.Charge, error) {
	if sub == "" {
		return nil, ErrForbidden
	}
	ch, err := s.gw.GetCharge(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != auth.RoleAdmin && ch.UserID != sub {
		return nil, ErrForbidden
	}
	return ch, nil
}

// HandleWebhook verifies an incoming event id with the provider and publishes
// the charge outcome for charge.complete.
func (s *PaymentSvc) HandleWebhook(ctx context.Context, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("%w: event id required", ErrInvalidInput)
	}
	ev, err := s.gw.RetrieveEvent(ctx, eventID)
	if err != nil {
		s.log.WarnContext(ctx, "retrieve event", "event_id", eventID, "error", err)
		return fmt.Errorf("%w: %v", ErrUnverified, err)
	}
	if ev.Key != "charge.complete" || ev.Charge == nil {
		s.log.DebugContext(ctx, "webhook ignored", "event_id", eventID, "key", ev.Key)
		return nil
	}
	s.publishOutcome(ctx, ev.Charge)
	return nil
}

func (s *PaymentSvc) publishOutcome(ctx context.Context, ch *payments.Charge) {
	at := s.now().UTC().Format(time.RFC3339)
	switch ch.Status {
	case payments.StatusSuccessful:
		evt := mq.PaymentPaid{Event: mq.RKPaymentPaid, Version: 1, OccurredAt: at}
		evt.Data.PaymentID = ch.ID
		evt.Data.Purpose = ch.Purpose
		evt.Data.BookingID = ch.BookingID
		evt.Data.UserID = ch.UserID
		evt.Data.Credits = ch.Credits
		evt.Data.Amount = ch.Amount
		evt.Data.Currency = ch.Currency
		evt.Data.Method = ch.Method
		s.publish(ctx, mq.RKPaymentPaid, ch.ID, evt)
	case payments.StatusFailed, payments.StatusExpired, payments.StatusReversed:
		evt := mq.PaymentFailed{Event: mq.RKPaymentFailed, Version: 1, OccurredAt: at}
		evt.Data.PaymentID = ch.ID
		evt.Data.Purpose = ch.Purpose
		evt.Data.BookingID = ch.BookingID
		evt.Data.Reason = ch.FailureCode
		if evt.Data.Reason == "" {
			evt.Data.Reason = ch.Status
		}
		s.publish(ctx, mq.RKPaymentFailed, ch.ID, evt)
	}
}

func (s *PaymentSvc) publish(ctx context.Context, key, chargeID string, v any) {
	if err := s.pub.PublishJSON(ctx, key, v); err != nil {
		s.log.ErrorContext(ctx, "publish failed", "routing_key", key, "charge_id", chargeID, "error", err)
		return
	}
	s.log.InfoContext(ctx, "published", "routing_key", key, "charge_id", chargeID)
}
