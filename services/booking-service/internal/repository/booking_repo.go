package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/domain"
)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Booking{}, &domain.ServicePackage{}, &domain.EventConsumed{})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(b).Error
}

// CreateBatch inserts every row or none.
func (r *BookingRepo) CreateBatch(ctx context.Context, bs []*domain.Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range bs {
			if b.ID == "" {
				b.ID = uuid.NewString()
			}
			if err := tx.Create(b).Error; err != nil {
				return fmt.Errorf("insert sequence %d: %w", b.RecurrenceSequence, err)
			}
		}
		return nil
	})
}

func (r *BookingRepo) ByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// ByGroup returns a recurring series ordered by sequence.
func (r *BookingRepo) ByGroup(ctx context.Context, group string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("recurrence_group = ?", group).
		Order("recurrence_sequence ASC").
		Find(&out).Error
	return out, err
}

type Filter struct {
	ClientID        string
	ServiceAgentID  string
	Status          domain.Status
	RecurrenceGroup string
	Page            int
	Size            int
}

func (r *BookingRepo) List(ctx context.Context, f Filter) ([]domain.Booking, int64, error) {
	if f.Size <= 0 || f.Size > 100 {
		f.Size = 20
	}
	if f.Page < 0 {
		f.Page = 0
	}
	qb := r.db.WithContext(ctx).Model(&domain.Booking{})
	if f.ClientID != "" {
		qb = qb.Where("client_id = ?", f.ClientID)
	}
	if f.ServiceAgentID != "" {
		qb = qb.Where("service_agent_id = ?", f.ServiceAgentID)
	}
	if f.Status != "" {
		qb = qb.Where("status = ?", f.Status)
	}
	if f.RecurrenceGroup != "" {
		qb = qb.Where("recurrence_group = ?", f.RecurrenceGroup)
	}
	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Booking
	if err := qb.Order("scheduled_date ASC, scheduled_time ASC").Limit(f.Size).Offset(f.Page * f.Size).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// casUpdate applies fields to the booking only while it still has status
// from. A lost race surfaces as ErrInvalidTransition.
func casUpdate(tx *gorm.DB, id string, from domain.Status, fields map[string]any) (*domain.Booking, error) {
	res := tx.Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	var b domain.Booking
	if err := tx.First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrInvalidTransition, b.Status)
	}
	return &b, nil
}

func (r *BookingRepo) Transition(ctx context.Context, id string, from, to domain.Status) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := casUpdate(tx, id, from, map[string]any{"status": to})
		out = b
		return err
	})
	return out, err
}

type Cancellation struct {
	Reason       string
	At           time.Time
	RefundAmount decimal.Decimal
	// RefundID is set only when the payments provider confirmed a refund.
	RefundID string
}

// ApplyCancellation moves a booking from status from to cancelled and records
// the refund outcome in the same write.
func (r *BookingRepo) ApplyCancellation(ctx context.Context, id string, from domain.Status, c Cancellation) (*domain.Booking, error) {
	fields := map[string]any{
		"status":              domain.StatusCancelled,
		"cancellation_reason": c.Reason,
		"cancelled_at":        c.At.UTC(),
		"refund_amount":       decimal.NewNullDecimal(c.RefundAmount),
	}
	if c.RefundID != "" {
		fields["refund_id"] = c.RefundID
		fields["payment_status"] = domain.PaymentRefunded
	}
	var out *domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := casUpdate(tx, id, from, fields)
		out = b
		return err
	})
	return out, err
}

// Reschedule moves the appointment while the booking keeps status from.
func (r *BookingRepo) Reschedule(ctx context.Context, id string, from domain.Status, date time.Time, hhmm string) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := casUpdate(tx, id, from, map[string]any{
			"scheduled_date": date,
			"scheduled_time": hhmm,
		})
		out = b
		return err
	})
	return out, err
}

func (r *BookingRepo) SetPayment(ctx context.Context, id string, status domain.PaymentStatus, chargeID string) error {
	fields := map[string]any{"payment_status": status}
	if chargeID != "" {
		fields["charge_id"] = chargeID
	}
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PaidResult says what MarkPaidIfNotProcessed did with a payment.
type PaidResult int

const (
	// PaidApplied marked the booking paid.
	PaidApplied PaidResult = iota
	// PaidDuplicate means the payment id was consumed before.
	PaidDuplicate
	// PaidKnown is a repeat notice for the booking's own recorded charge.
	PaidKnown
	// PaidStray is money the booking cannot take: it is cancelled, or paid
	// by another charge. The event is left unconsumed for the caller to
	// refund and then RecordStrayPayment.
	PaidStray
)

// MarkPaidIfNotProcessed records a payment.paid event once. Every outcome
// except PaidStray consumes the payment id in the same transaction.
func (r *BookingRepo) MarkPaidIfNotProcessed(ctx context.Context, bookingID, paymentID, eventKey string) (*domain.Booking, PaidResult, error) {
	var (
		b   domain.Booking
		out PaidResult
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&domain.EventConsumed{}).Where("id = ?", paymentID).Count(&exists).Error; err != nil {
			return err
		}
		if err := tx.First(&b, "id = ?", bookingID).Error; err != nil {
			return notFound(err)
		}
		if exists > 0 {
			out = PaidDuplicate
			return nil
		}
		own := b.ChargeID == paymentID
		switch {
		case own && (b.PaymentStatus == domain.PaymentPaid || b.PaymentStatus == domain.PaymentRefunded):
			out = PaidKnown
		case b.Status == domain.StatusCancelled || b.PaymentStatus == domain.PaymentPaid || b.PaymentStatus == domain.PaymentRefunded:
			out = PaidStray
			return nil
		default:
			b.PaymentStatus = domain.PaymentPaid
			b.ChargeID = paymentID
			if err := tx.Model(&b).Updates(map[string]any{
				"payment_status": b.PaymentStatus,
				"charge_id":      b.ChargeID,
			}).Error; err != nil {
				return err
			}
			out = PaidApplied
		}
		return consume(tx, paymentID, eventKey)
	})
	if err != nil {
		return nil, 0, err
	}
	return &b, out, nil
}

// EventSeen reports whether a payment id was already consumed.
func (r *BookingRepo) EventSeen(ctx context.Context, paymentID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.EventConsumed{}).Where("id = ?", paymentID).Count(&n).Error
	return n > 0, err
}

// RecordStrayPayment consumes a payment that was refunded instead of applied.
// When it was the charge of a booking cancelled while the charge was pending,
// the refund is recorded on that booking.
func (r *BookingRepo) RecordStrayPayment(ctx context.Context, bookingID, paymentID, eventKey, refundID string, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.Booking{}).
			Where("id = ? AND charge_id = ? AND status = ?", bookingID, paymentID, domain.StatusCancelled).
			Updates(map[string]any{
				"payment_status": domain.PaymentRefunded,
				"refund_id":      refundID,
				"refund_amount":  decimal.NewNullDecimal(amount),
			}).Error
		if err != nil {
			return err
		}
		return consume(tx, paymentID, eventKey)
	})
}

func consume(tx *gorm.DB, paymentID, eventKey string) error {
	rec := domain.EventConsumed{ID: paymentID, EventKey: eventKey, ProcessedAt: time.Now().UTC()}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}
