package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/repository"
)

type fakeGranter struct {
	calls []string
	err   error
}

func (f *fakeGranter) Purchase(_ context.Context, userID string, credits int64, paymentID string) (*repository.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, userID+":"+paymentID)
	return &repository.Result{Applied: true, Balance: credits}, nil
}

func (f *fakeGranter) Reward(_ context.Context, userID string, amount int64, _, ref string) (*repository.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, userID+":"+ref)
	return &repository.Result{Applied: true, Balance: amount}, nil
}

func newConsumer(g Granter) *EventConsumer {
	return NewEventConsumer(g, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), 50)
}

func TestHandle_PaymentPaid(t *testing.T) {
	ctx := context.Background()
	credits := []byte(`{"data":{"payment_id":"chrg_1","purpose":"credits","user_id":"u1","credits":50}}`)

	g := &fakeGranter{}
	ack, _ := newConsumer(g).Handle(ctx, mq.RKPaymentPaid, credits)
	assert.True(t, ack)
	assert.Equal(t, []string{"u1:chrg_1"}, g.calls)

	g = &fakeGranter{}
	ack, _ = newConsumer(g).Handle(ctx, mq.RKPaymentPaid, []byte(`{"data":{"payment_id":"chrg_2","purpose":"booking","booking_id":"b"}}`))
	assert.True(t, ack)
	assert.Empty(t, g.calls)

	ack, requeue := newConsumer(g).Handle(ctx, mq.RKPaymentPaid, []byte(`not json`))
	assert.False(t, ack)
	assert.False(t, requeue)

	ack, requeue = newConsumer(&fakeGranter{err: errors.New("db locked")}).Handle(ctx, mq.RKPaymentPaid, credits)
	assert.False(t, ack)
	assert.True(t, requeue)

	ack, _ = newConsumer(g).Handle(ctx, mq.RKPaymentPaid, []byte(`{"data":{"payment_id":"chrg_3","purpose":"credits","user_id":"u1"}}`))
	assert.True(t, ack, "zero credit payloads are dropped")

	ack, _ = newConsumer(g).Handle(ctx, mq.RKPaymentFailed, credits)
	assert.True(t, ack)
}

func TestHandle_BookingCompleted(t *testing.T) {
	ctx := context.Background()
	body := []byte(`{"event":"booking.completed","data":{"booking_id":"b-1","client_id":"c-1","status":"completed"}}`)

	g := &fakeGranter{}
	ack, _ := newConsumer(g).Handle(ctx, mq.RKBookingCompleted, body)
	assert.True(t, ack)
	assert.Equal(t, []string{"c-1:booking_completion:b-1"}, g.calls)

	g = &fakeGranter{}
	ack, _ = NewEventConsumer(g, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), 0).Handle(ctx, mq.RKBookingCompleted, body)
	assert.True(t, ack)
	assert.Empty(t, g.calls, "bonus disabled")

	ack, _ = newConsumer(g).Handle(ctx, mq.RKBookingCompleted, []byte(`{"data":{"booking_id":"b-2"}}`))
	assert.True(t, ack)
	assert.Empty(t, g.calls)

	ack, requeue := newConsumer(&fakeGranter{err: errors.New("db locked")}).Handle(ctx, mq.RKBookingCompleted, body)
	assert.False(t, ack)
	assert.True(t, requeue)
}
