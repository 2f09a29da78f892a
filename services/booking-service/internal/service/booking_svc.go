package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Faitltd/FAIT-sub003/pkg/money"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/pkg/payments"
	"github.com/Faitltd/FAIT-sub003/pkg/refund"
	"github.com/Faitltd/FAIT-sub003/pkg/schedule"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/domain"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/repository"
)

var tracer = otel.Tracer("booking-service")

// Payments is the slice of the payments client the booking flow needs.
// *payments.Client satisfies it.
type Payments interface {
	CreateCardCharge(ctx context.Context, in payments.ChargeRequest) (*payments.Charge, error)
	Refund(ctx context.Context, chargeID string, amount decimal.Decimal) (*payments.Refund, error)
}

type BookingSvc struct {
	repo *repository.BookingRepo
	pay  Payments
	pub  mq.EventPublisher
	log  *slog.Logger
	loc  *time.Location
	now  func() time.Time
	cur  string
}

type Option func(*BookingSvc)

// WithCurrency sets the currency booking prices are charged in.
func WithCurrency(cur string) Option { return func(s *BookingSvc) { s.cur = cur } }

func WithClock(now func() time.Time) Option { return func(s *BookingSvc) { s.now = now } }

func WithLocation(loc *time.Location) Option { return func(s *BookingSvc) { s.loc = loc } }

// NewBookingSvc wires the service. pay may be nil when no payments provider
// is configured; charging is then skipped and paid bookings cannot be
// cancelled with a refund.
func NewBookingSvc(r *repository.BookingRepo, pay Payments, pub mq.EventPublisher, log *slog.Logger, opts ...Option) *BookingSvc {
	if pub == nil {
		pub = mq.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	s := &BookingSvc{repo: r, pay: pay, pub: pub, log: log, loc: time.UTC, now: time.Now, cur: "usd"}
	for _, o := range opts {
		o(s)
	}
	return s
}

type CreateInput struct {
	// ClientID is only honoured for admins booking on behalf of a client.
	ClientID         string
	ServicePackageID string
	Date             time.Time
	Time             string
	Address          string
	City             string
	State            string
	ZipCode          string
	Notes            string
}

// prepare checks who may book and builds the row template from the package.
func (s *BookingSvc) prepare(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Booking, error) {
	clientID := actor.ID
	switch {
	case actor.IsAdmin():
		if in.ClientID == "" {
			return nil, fmt.Errorf("%w: client_id required", domain.ErrInvalidInput)
		}
		clientID = in.ClientID
	case actor.IsAgent():
		return nil, fmt.Errorf("%w: service agents cannot book", domain.ErrForbidden)
	}
	if clientID == "" {
		return nil, domain.ErrForbidden
	}
	if in.ServicePackageID == "" || strings.TrimSpace(in.Address) == "" {
		return nil, fmt.Errorf("%w: service_package_id and address required", domain.ErrInvalidInput)
	}
	if _, err := domain.Appointment(in.Date, in.Time, s.loc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	pkg, err := s.repo.PackageByID(ctx, in.ServicePackageID)
	if err != nil {
		return nil, fmt.Errorf("service package: %w", err)
	}
	if !pkg.Active {
		return nil, fmt.Errorf("%w: service package is inactive", domain.ErrInvalidInput)
	}
	return &domain.Booking{
		ClientID:         clientID,
		ServiceAgentID:   pkg.ServiceAgentID,
		ServicePackageID: pkg.ID,
		ScheduledTime:    in.Time,
		Status:           domain.StatusPending,
		PaymentStatus:    domain.PaymentUnpaid,
		Address:          in.Address,
		City:             in.City,
		State:            in.State,
		ZipCode:          in.ZipCode,
		Notes:            in.Notes,
		Price:            pkg.Price,
	}, nil
}

func (s *BookingSvc) requireFuture(date time.Time, hhmm string) error {
	at, err := domain.Appointment(date, hhmm, s.loc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !at.After(s.now()) {
		return fmt.Errorf("%w: appointment must be in the future", domain.ErrInvalidInput)
	}
	return nil
}

func (s *BookingSvc) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.Create")
	defer span.End()

	b, err := s.prepare(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	if err := s.requireFuture(in.Date, in.Time); err != nil {
		return nil, err
	}
	b.ScheduledDate = dateOnly(in.Date)
	if err := s.repo.Create(ctx, b); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.id", b.ID))
	s.publish(ctx, mq.RKBookingCreated, b, "")
	return b, nil
}

// PreviewRecurring returns the dates CreateRecurring would book.
func (s *BookingSvc) PreviewRecurring(start time.Time, cadence string, count int) ([]time.Time, error) {
	c, err := schedule.ParseCadence(cadence)
	if err != nil {
		return nil, err
	}
	if err := schedule.ValidateOccurrences(count); err != nil {
		return nil, err
	}
	return schedule.Dates(dateOnly(start), c, count), nil
}

// CreateRecurring books one row per generated date under a fresh recurrence
// group. Only the first date is charged, and only when a card token is
// given. A declined charge returns the created rows together with
// ErrPaymentDeclined.
func (s *BookingSvc) CreateRecurring(ctx context.Context, actor domain.Actor, in CreateInput, cadence string, count int, cardToken string) ([]domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.CreateRecurring")
	defer span.End()

	dates, err := s.PreviewRecurring(in.Date, cadence, count)
	if err != nil {
		return nil, err
	}
	if cardToken != "" && s.pay == nil {
		return nil, domain.ErrPaymentsDisabled
	}
	tmpl, err := s.prepare(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	if err := s.requireFuture(dates[0], in.Time); err != nil {
		return nil, err
	}

	group := uuid.NewString()
	rows := make([]*domain.Booking, len(dates))
	for i, d := range dates {
		b := *tmpl
		b.ScheduledDate = d
		b.IsRecurring = true
		b.RecurrenceGroup = &group
		b.RecurrenceSequence = i + 1
		rows[i] = &b
	}
	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create recurring series: %w", err)
	}
	span.SetAttributes(attribute.String("booking.recurrence_group", group), attribute.Int("booking.count", len(rows)))
	s.log.InfoContext(ctx, "recurring series created", "recurrence_group", group, "count", len(rows), "client_id", tmpl.ClientID)
	for _, b := range rows {
		s.publish(ctx, mq.RKBookingCreated, b, "")
	}

	var chargeErr error
	if cardToken != "" {
		chargeErr = s.chargeFirst(ctx, rows[0], cardToken)
	}
	out := make([]domain.Booking, len(rows))
	for i, b := range rows {
		out[i] = *b
	}
	return out, chargeErr
}

// chargeFirst attempts the single card charge of a series and records the
// outcome on b.
func (s *BookingSvc) chargeFirst(ctx context.Context, b *domain.Booking, cardToken string) error {
	ch, err := s.pay.CreateCardCharge(ctx, payments.ChargeRequest{
		Purpose:     mq.PurposeBooking,
		BookingID:   b.ID,
		UserID:      b.ClientID,
		Amount:      b.Price,
		CardToken:   cardToken,
		Description: fmt.Sprintf("Booking %s (1 of series)", b.ID),
	})
	status, chargeID := domain.PaymentFailed, ""
	switch {
	case err != nil:
		s.log.WarnContext(ctx, "charge request failed", "booking_id", b.ID, "error", err)
	case ch.Status == payments.StatusSuccessful:
		status, chargeID = domain.PaymentPaid, ch.ID
	case ch.Status == payments.StatusPending:
		status, chargeID = domain.PaymentPending, ch.ID
	default:
		chargeID = ch.ID
		err = fmt.Errorf("charge %s: %s %s", ch.Status, ch.FailureCode, ch.FailureMessage)
	}
	if uerr := s.repo.SetPayment(ctx, b.ID, status, chargeID); uerr != nil {
		return fmt.Errorf("record payment outcome: %w", uerr)
	}
	b.PaymentStatus = status
	if chargeID != "" {
		b.ChargeID = chargeID
	}
	if status == domain.PaymentFailed {
		return fmt.Errorf("%w: %v", domain.ErrPaymentDeclined, err)
	}
	return nil
}

func (s *BookingSvc) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	b, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(b) {
		return nil, domain.ErrForbidden
	}
	return b, nil
}

// List scopes the filter to the actor: clients see their bookings, agents the
// bookings assigned to them, admins everything.
func (s *BookingSvc) List(ctx context.Context, actor domain.Actor, f repository.Filter) ([]domain.Booking, int64, error) {
	switch {
	case actor.IsAdmin():
	case actor.IsAgent():
		f.ServiceAgentID = actor.ID
	default:
		f.ClientID = actor.ID
	}
	return s.repo.List(ctx, f)
}

func (s *BookingSvc) ListGroup(ctx context.Context, actor domain.Actor, group string) ([]domain.Booking, error) {
	rows, err := s.repo.ByGroup(ctx, group)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	if !actor.IsAdmin() && !actor.Owns(&rows[0]) {
		return nil, domain.ErrForbidden
	}
	return rows, nil
}

func (s *BookingSvc) Accept(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	return s.advance(ctx, actor, id, domain.StatusConfirmed, mq.RKBookingConfirmed)
}

func (s *BookingSvc) Complete(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	return s.advance(ctx, actor, id, domain.StatusCompleted, mq.RKBookingCompleted)
}

// advance runs a provider side transition that moves no money.
func (s *BookingSvc) advance(ctx context.Context, actor domain.Actor, id string, to domain.Status, key string) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking."+string(to))
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", id))

	b, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Manages(b) {
		return nil, domain.ErrForbidden
	}
	if !b.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, b.Status, to)
	}
	out, err := s.repo.Transition(ctx, id, b.Status, to)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, key, out, "")
	return out, nil
}

// Quote is a refund decision for a booking plus whether money would move.
type Quote struct {
	BookingID  string `json:"booking_id"`
	Refundable bool   `json:"refundable"`
	refund.Decision
}

func (s *BookingSvc) QuoteRefund(ctx context.Context, actor domain.Actor, id string) (*Quote, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	at, err := b.AppointmentAt(s.loc)
	if err != nil {
		return nil, err
	}
	d := refund.Decide(b.Price, s.now(), at)
	return &Quote{BookingID: b.ID, Refundable: refundable(b, d.Amount), Decision: d}, nil
}

func refundable(b *domain.Booking, amount decimal.Decimal) bool {
	return b.PaymentStatus == domain.PaymentPaid && b.ChargeID != "" && amount.IsPositive()
}

// Cancel cancels on behalf of either party or an admin with the tiered
// refund policy. Everyone but an admin must give a reason.
func (s *BookingSvc) Cancel(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.Cancel")
	defer span.End()

	b, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(b) {
		return nil, domain.ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: cancellation reason required", domain.ErrInvalidInput)
	}
	return s.cancel(ctx, b, reason, refund.Decide, mq.RKBookingCancelled)
}

// Decline is the provider turning down a pending request; a paid booking is
// refunded in full.
func (s *BookingSvc) Decline(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.Decline")
	defer span.End()

	b, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Manages(b) {
		return nil, domain.ErrForbidden
	}
	if b.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: only pending bookings can be declined", domain.ErrInvalidTransition)
	}
	if reason == "" {
		reason = "declined by service agent"
	}
	return s.cancel(ctx, b, reason, refund.Full, mq.RKBookingCancelled)
}

type decideFunc func(price decimal.Decimal, now, at time.Time) refund.Decision

// cancel refunds first and writes second. When the provider rejects the
// refund nothing is written and ErrRefundFailed is returned.
func (s *BookingSvc) cancel(ctx context.Context, b *domain.Booking, reason string, decide decideFunc, key string) (*domain.Booking, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("booking.id", b.ID))

	if !b.Status.CanTransition(domain.StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, b.Status, domain.StatusCancelled)
	}
	at, err := b.AppointmentAt(s.loc)
	if err != nil {
		return nil, err
	}
	now := s.now()
	d := decide(b.Price, now, at)

	c := repository.Cancellation{Reason: reason, At: now}
	if refundable(b, d.Amount) {
		if s.pay == nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRefundFailed, domain.ErrPaymentsDisabled)
		}
		rf, err := s.pay.Refund(ctx, b.ChargeID, d.Amount)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "refund failed")
			s.log.ErrorContext(ctx, "refund failed, booking left unchanged", "booking_id", b.ID, "charge_id", b.ChargeID, "amount", d.Amount.String(), "error", err)
			return nil, fmt.Errorf("%w: %w", domain.ErrRefundFailed, err)
		}
		c.RefundID = rf.ID
		c.RefundAmount = rf.Amount
	}

	out, err := s.repo.ApplyCancellation(ctx, b.ID, b.Status, c)
	if err != nil {
		if c.RefundID != "" {
			// money already moved; operators reconcile from this line
			s.log.ErrorContext(ctx, "refund issued but cancellation not recorded", "booking_id", b.ID, "refund_id", c.RefundID, "error", err)
		}
		return nil, err
	}
	s.log.InfoContext(ctx, "booking cancelled", "booking_id", out.ID, "fraction", d.Fraction, "refund_amount", c.RefundAmount.String(), "refund_id", c.RefundID)
	s.publish(ctx, key, out, reason)
	return out, nil
}

// Reschedule moves a pending or confirmed booking to a new future slot.
func (s *BookingSvc) Reschedule(ctx context.Context, actor domain.Actor, id string, date time.Time, hhmm string) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.Reschedule")
	defer span.End()

	b, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(b) {
		return nil, domain.ErrForbidden
	}
	if b.Status != domain.StatusPending && b.Status != domain.StatusConfirmed {
		return nil, fmt.Errorf("%w: cannot reschedule a %s booking", domain.ErrInvalidTransition, b.Status)
	}
	if err := s.requireFuture(date, hhmm); err != nil {
		return nil, err
	}
	out, err := s.repo.Reschedule(ctx, id, b.Status, dateOnly(date), hhmm)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, mq.RKBookingRescheduled, out, "")
	return out, nil
}

// PaidCharge is the part of a payment.paid event checked against the booking.
// Amount is in minor units.
type PaidCharge struct {
	PaymentID string
	UserID    string
	Amount    int64
	Currency  string
}

// MarkPaid applies a payment.paid event once per payment id. A payment that
// does not match the booking price, or arrives for a booking that can no
// longer take it, is refunded in full instead.
func (s *BookingSvc) MarkPaid(ctx context.Context, bookingID string, pc PaidCharge) error {
	ctx, span := tracer.Start(ctx, "booking.MarkPaid")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", bookingID), attribute.String("payment.id", pc.PaymentID))

	if pc.PaymentID == "" {
		return fmt.Errorf("%w: payment id required", domain.ErrInvalidInput)
	}
	b, err := s.repo.ByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if why := s.paymentMismatch(b, pc); why != "" {
		seen, err := s.repo.EventSeen(ctx, pc.PaymentID)
		if err != nil || seen {
			return err
		}
		return s.refundStray(ctx, b, pc, why)
	}

	b, res, err := s.repo.MarkPaidIfNotProcessed(ctx, bookingID, pc.PaymentID, mq.RKPaymentPaid)
	if err != nil {
		return err
	}
	switch res {
	case repository.PaidApplied:
		s.log.InfoContext(ctx, "booking paid", "booking_id", b.ID, "payment_id", pc.PaymentID)
	case repository.PaidStray:
		return s.refundStray(ctx, b, pc, fmt.Sprintf("booking %s, payment %s", b.Status, b.PaymentStatus))
	default:
		s.log.DebugContext(ctx, "payment event skipped", "booking_id", b.ID, "payment_id", pc.PaymentID, "status", b.Status)
	}
	return nil
}

func (s *BookingSvc) paymentMismatch(b *domain.Booking, pc PaidCharge) string {
	if pc.Currency != "" && !strings.EqualFold(pc.Currency, s.cur) {
		return fmt.Sprintf("currency %s, expected %s", pc.Currency, s.cur)
	}
	want, err := money.ToMinor(b.Price, s.cur)
	if err != nil {
		return err.Error()
	}
	if pc.Amount != want {
		return fmt.Sprintf("amount %d, price %d", pc.Amount, want)
	}
	return ""
}

// refundStray sends a payment back and consumes its event. A failed refund
// leaves the event unconsumed so it is redelivered.
func (s *BookingSvc) refundStray(ctx context.Context, b *domain.Booking, pc PaidCharge, why string) error {
	span := trace.SpanFromContext(ctx)
	cur := pc.Currency
	if cur == "" {
		cur = s.cur
	}
	amount, err := money.FromMinor(pc.Amount, cur)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: payment %s has no amount", domain.ErrInvalidInput, pc.PaymentID)
	}
	s.log.WarnContext(ctx, "payment not applicable, refunding", "booking_id", b.ID, "payment_id", pc.PaymentID, "user_id", pc.UserID, "reason", why)
	if s.pay == nil {
		return fmt.Errorf("%w: %w", domain.ErrRefundFailed, domain.ErrPaymentsDisabled)
	}
	rf, err := s.pay.Refund(ctx, pc.PaymentID, amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refund failed")
		return fmt.Errorf("%w: %w", domain.ErrRefundFailed, err)
	}
	if err := s.repo.RecordStrayPayment(ctx, b.ID, pc.PaymentID, mq.RKPaymentPaid, rf.ID, rf.Amount); err != nil {
		// money already moved; operators reconcile from this line
		s.log.ErrorContext(ctx, "refund issued but not recorded", "booking_id", b.ID, "payment_id", pc.PaymentID, "refund_id", rf.ID, "error", err)
		return err
	}
	s.log.InfoContext(ctx, "stray payment refunded", "booking_id", b.ID, "payment_id", pc.PaymentID, "refund_id", rf.ID, "amount", money.Format(rf.Amount, cur))
	return nil
}

// MarkPaymentFailed records a payment.failed event for a booking that is still
// waiting on its charge.
func (s *BookingSvc) MarkPaymentFailed(ctx context.Context, bookingID string) error {
	b, err := s.repo.ByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.PaymentStatus != domain.PaymentPending && b.PaymentStatus != domain.PaymentUnpaid {
		return nil
	}
	return s.repo.SetPayment(ctx, bookingID, domain.PaymentFailed, "")
}

type PackageInput struct {
	ServiceAgentID string
	Title          string
	Description    string
	Price          decimal.Decimal
	Duration       int
	DurationUnit   string
}

func (s *BookingSvc) CreatePackage(ctx context.Context, actor domain.Actor, in PackageInput) (*domain.ServicePackage, error) {
	agentID := in.ServiceAgentID
	switch {
	case actor.IsAgent():
		agentID = actor.ID
	case actor.IsAdmin():
		if agentID == "" {
			return nil, fmt.Errorf("%w: service_agent_id required", domain.ErrInvalidInput)
		}
	default:
		return nil, domain.ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" || !in.Price.IsPositive() {
		return nil, fmt.Errorf("%w: title and a positive price required", domain.ErrInvalidInput)
	}
	unit := in.DurationUnit
	if unit == "" {
		unit = "hours"
	}
	if unit != "hours" && unit != "minutes" {
		return nil, fmt.Errorf("%w: duration_unit must be hours or minutes", domain.ErrInvalidInput)
	}
	p := &domain.ServicePackage{
		ServiceAgentID: agentID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Price:          money.Cents(in.Price),
		Duration:       in.Duration,
		DurationUnit:   unit,
		Active:         true,
	}
	if err := s.repo.CreatePackage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *BookingSvc) GetPackage(ctx context.Context, id string) (*domain.ServicePackage, error) {
	return s.repo.PackageByID(ctx, id)
}

func (s *BookingSvc) ListPackages(ctx context.Context, agentID string, activeOnly bool) ([]domain.ServicePackage, error) {
	return s.repo.ListPackages(ctx, agentID, activeOnly)
}

func (s *BookingSvc) publish(ctx context.Context, key string, b *domain.Booking, reason string) {
	evt := mq.BookingEvent{Event: key, Version: 1, OccurredAt: s.now().UTC().Format(time.RFC3339)}
	evt.Data.BookingID = b.ID
	evt.Data.ClientID = b.ClientID
	evt.Data.ServiceAgentID = b.ServiceAgentID
	evt.Data.Status = string(b.Status)
	evt.Data.PaymentStatus = string(b.PaymentStatus)
	evt.Data.ScheduledDate = b.ScheduledDate.Format(domain.DateLayout)
	evt.Data.ScheduledTime = b.ScheduledTime
	if b.RecurrenceGroup != nil {
		evt.Data.RecurrenceGroup = *b.RecurrenceGroup
		evt.Data.RecurrenceSequence = b.RecurrenceSequence
	}
	if b.RefundAmount.Valid {
		evt.Data.RefundAmount = b.RefundAmount.Decimal.StringFixed(2)
	}
	evt.Data.Reason = reason
	if err := s.pub.PublishJSON(ctx, key, evt); err != nil {
		s.log.WarnContext(ctx, "publish failed", "routing_key", key, "booking_id", b.ID, "error", err)
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsClientError reports whether err stems from the caller's input rather
// than from the service.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, schedule.ErrInvalidCadence) ||
		errors.Is(err, schedule.ErrInvalidOccurrences)
}
