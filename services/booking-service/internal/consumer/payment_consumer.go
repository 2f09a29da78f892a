package consumer

import (
	"context"
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/domain"
	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/service"
)

// PaymentHandler is the booking side of payment events.
type PaymentHandler interface {
	MarkPaid(ctx context.Context, bookingID string, pc service.PaidCharge) error
	MarkPaymentFailed(ctx context.Context, bookingID string) error
}

type PaymentConsumer struct {
	h    PaymentHandler
	cons *mq.Consumer
	log  *slog.Logger
}

func NewPaymentConsumer(h PaymentHandler, cons *mq.Consumer, log *slog.Logger) *PaymentConsumer {
	return &PaymentConsumer{h: h, cons: cons, log: log}
}

func (pc *PaymentConsumer) Run(ctx context.Context) error {
	msgs, err := pc.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	go func() {
		for d := range msgs {
			pc.settle(d, pc.Handle(ctx, d.RoutingKey, d.Body))
		}
	}()
	return nil
}

// Outcome says how a delivery is settled.
type Outcome int

const (
	Ack Outcome = iota
	Drop
	Retry
)

func (pc *PaymentConsumer) settle(d amqp.Delivery, o Outcome) {
	switch o {
	case Ack:
		_ = d.Ack(false)
	case Drop:
		_ = d.Nack(false, false)
	case Retry:
		_ = d.Nack(false, true)
	}
}

// Handle processes one message body. Events for other purposes (credit
// purchases) are acknowledged and ignored.
func (pc *PaymentConsumer) Handle(ctx context.Context, key string, body []byte) Outcome {
	switch key {
	case mq.RKPaymentPaid:
		evt, err := mq.Decode[mq.PaymentPaid](body)
		if err != nil {
			pc.log.Error("unmarshal payment.paid", "error", err)
			return Drop
		}
		if evt.Data.Purpose != "" && evt.Data.Purpose != mq.PurposeBooking {
			return Ack
		}
		if evt.Data.BookingID == "" || evt.Data.PaymentID == "" {
			pc.log.Warn("invalid payment.paid payload", "payment_id", evt.Data.PaymentID)
			return Ack
		}
		err = pc.h.MarkPaid(ctx, evt.Data.BookingID, service.PaidCharge{
			PaymentID: evt.Data.PaymentID,
			UserID:    evt.Data.UserID,
			Amount:    evt.Data.Amount,
			Currency:  evt.Data.Currency,
		})
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				pc.log.Warn("payment for unknown booking", "booking_id", evt.Data.BookingID, "payment_id", evt.Data.PaymentID)
				return Ack
			}
			if errors.Is(err, domain.ErrInvalidInput) {
				pc.log.Error("unusable payment.paid", "booking_id", evt.Data.BookingID, "payment_id", evt.Data.PaymentID, "error", err)
				return Drop
			}
			pc.log.Error("mark paid", "booking_id", evt.Data.BookingID, "error", err)
			return Retry
		}
		return Ack
	case mq.RKPaymentFailed:
		evt, err := mq.Decode[mq.PaymentFailed](body)
		if err != nil {
			pc.log.Error("unmarshal payment.failed", "error", err)
			return Drop
		}
		if evt.Data.Purpose != mq.PurposeBooking || evt.Data.BookingID == "" {
			return Ack
		}
		if err := pc.h.MarkPaymentFailed(ctx, evt.Data.BookingID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			pc.log.Error("mark payment failed", "booking_id", evt.Data.BookingID, "error", err)
			return Retry
		}
		return Ack
	default:
		return Ack
	}
}
