package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/domain"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/repository"
)

type Granter interface {
	Purchase(ctx context.Context, userID string, credits int64, paymentID string) (*repository.Result, error)
	Reward(ctx context.Context, userID string, amount int64, description, ref string) (*repository.Result, error)
}

// EventConsumer turns payment.paid events for credit purchases into ledger
// entries, and booking.completed events into a completion bonus for the client.
type EventConsumer struct {
	g     Granter
	cons  *mq.Consumer
	log   *slog.Logger
	bonus int64
}

// NewEventConsumer builds a consumer; a bonus of zero disables completion rewards.
func NewEventConsumer(g Granter, cons *mq.Consumer, log *slog.Logger, bonus int64) *EventConsumer {
	return &EventConsumer{g: g, cons: cons, log: log, bonus: bonus}
}

func (ec *EventConsumer) Run(ctx context.Context) error {
	msgs, err := ec.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	go func() {
		for d := range msgs {
			ack, requeue := ec.Handle(ctx, d.RoutingKey, d.Body)
			if ack {
				_ = d.Ack(false)
			} else {
				_ = d.Nack(false, requeue)
			}
		}
	}()
	return nil
}

// Handle reports whether to ack the delivery and, if not, whether to requeue it.
func (ec *EventConsumer) Handle(ctx context.Context, key string, body []byte) (ack, requeue bool) {
	switch key {
	case mq.RKPaymentPaid:
		return ec.handlePaid(ctx, body)
	case mq.RKBookingCompleted:
		return ec.handleCompleted(ctx, body)
	default:
		return true, false
	}
}

func (ec *EventConsumer) handlePaid(ctx context.Context, body []byte) (bool, bool) {
	evt, err := mq.Decode[mq.PaymentPaid](body)
	if err != nil {
		ec.log.Error("unmarshal payment.paid", "error", err)
		return false, false
	}
	if evt.Data.Purpose != mq.PurposeCredits {
		return true, false
	}
	if evt.Data.UserID == "" || evt.Data.PaymentID == "" || evt.Data.Credits <= 0 {
		ec.log.Warn("invalid credit purchase payload", "payment_id", evt.Data.PaymentID, "user_id", evt.Data.UserID)
		return true, false
	}
	_, err = ec.g.Purchase(ctx, evt.Data.UserID, evt.Data.Credits, evt.Data.PaymentID)
	return ec.outcome("credit purchase", evt.Data.PaymentID, err)
}

func (ec *EventConsumer) handleCompleted(ctx context.Context, body []byte) (bool, bool) {
	if ec.bonus <= 0 {
		return true, false
	}
	evt, err := mq.Decode[mq.BookingEvent](body)
	if err != nil {
		ec.log.Error("unmarshal booking.completed", "error", err)
		return false, false
	}
	if evt.Data.BookingID == "" || evt.Data.ClientID == "" {
		ec.log.Warn("invalid booking.completed payload", "booking_id", evt.Data.BookingID)
		return true, false
	}
	// one bonus per booking; redeliveries hit the external ref
	ref := fmt.Sprintf("booking_completion:%s", evt.Data.BookingID)
	_, err = ec.g.Reward(ctx, evt.Data.ClientID, ec.bonus, "Booking completion bonus", ref)
	return ec.outcome("completion bonus", evt.Data.BookingID, err)
}

func (ec *EventConsumer) outcome(what, id string, err error) (bool, bool) {
	if err == nil {
		return true, false
	}
	if errors.Is(err, domain.ErrInvalidAmount) || errors.Is(err, domain.ErrInvalidInput) {
		ec.log.Warn(what+" rejected", "ref", id, "error", err)
		return true, false
	}
	ec.log.Error(what, "ref", id, "error", err)
	return false, true
}
