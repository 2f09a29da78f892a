package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/pkg/payments"
)

type fakeGateway struct {
	charge   *payments.Charge
	event    *payments.Event
	eventErr error
	last     payments.ChargeRequest
}

func (f *fakeGateway) CreateCardCharge(_ context.Context, in payments.ChargeRequest) (*payments.Charge, error) {
	f.last = in
	if !in.Amount.IsPositive() {
		return nil, payments.ErrInvalidParams
	}
	ch := *f.charge
	return &ch, nil
}

func (f *fakeGateway) GetCharge(_ context.Context, id string) (*payments.Charge, error) {
	return &payments.Charge{ID: id, Status: payments.StatusPending, UserID: "u-1"}, nil
}

func (f *fakeGateway) RetrieveEvent(_ context.Context, _ string) (*payments.Event, error) {
	return f.event, f.eventErr
}

type published struct {
	key  string
	body []byte
}

type recordingPub struct{ msgs []published }

func (p *recordingPub) PublishJSON(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.msgs = append(p.msgs, published{key: key, body: b})
	return nil
}

func newSvc(gw *fakeGateway, opts ...Option) (*PaymentSvc, *recordingPub) {
	pub := &recordingPub{}
	return NewPaymentSvc(gw, pub, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...), pub
}

func TestCreateCardCharge_BookingPaid(t *testing.T) {
	gw := &fakeGateway{charge: &payments.Charge{ID: "chrg_1", Status: payments.StatusSuccessful, Amount: 12000, Currency: "usd", Method: "card"}}
	svc, pub := newSvc(gw)

	ch, err := svc.CreateCardCharge(context.Background(), "u-1", auth.RoleClient, CardChargeInput{
		Purpose: mq.PurposeBooking, BookingID: "b-1", Amount: decimal.NewFromInt(120), CardToken: "tokn_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "chrg_1", ch.ID)
	assert.Equal(t, "b-1", gw.last.BookingID)
	assert.Equal(t, "u-1", gw.last.UserID)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, mq.RKPaymentPaid, pub.msgs[0].key)
	evt, err := mq.Decode[mq.PaymentPaid](pub.msgs[0].body)
	require.NoError(t, err)
	assert.Equal(t, "b-1", evt.Data.BookingID)
	assert.Equal(t, mq.PurposeBooking, evt.Data.Purpose)
	assert.EqualValues(t, 12000, evt.Data.Amount)
}

func TestCreateCardCharge_CreditsPendingPublishesNothing(t *testing.T) {
	gw := &fakeGateway{charge: &payments.Charge{ID: "chrg_2", Status: payments.StatusPending, AuthorizeURI: "https://3ds"}}
	svc, pub := newSvc(gw)

	ch, err := svc.CreateCardCharge(context.Background(), "u-1", auth.RoleClient, CardChargeInput{
		Purpose: mq.PurposeCredits, Credits: 50, Amount: decimal.NewFromInt(45), CardToken: "tokn_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://3ds", ch.AuthorizeURI)
	assert.EqualValues(t, 50, gw.last.Credits)
	assert.True(t, decimal.NewFromInt(50).Equal(gw.last.Amount), "priced at the default unit, not the client amount")
	assert.Empty(t, pub.msgs)
}

func TestCreateCardCharge_CreditsPricedByServer(t *testing.T) {
	gw := &fakeGateway{charge: &payments.Charge{ID: "chrg_4", Status: payments.StatusPending}}
	svc, _ := newSvc(gw, WithCreditUnitPrice(decimal.RequireFromString("0.25")))
	ctx := context.Background()

	_, err := svc.CreateCardCharge(ctx, "u-1", auth.RoleClient, CardChargeInput{
		Purpose: mq.PurposeCredits, Credits: 10000, Amount: decimal.RequireFromString("0.01"), CardToken: "tokn_1",
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2500).Equal(gw.last.Amount), gw.last.Amount.String())
	assert.True(t, decimal.RequireFromString("2.50").Equal(svc.CreditPrice(10)))

	_, err = svc.CreateCardCharge(ctx, "u-1", auth.RoleClient, CardChargeInput{
		Purpose: mq.PurposeCredits, Credits: MaxCreditsPerCharge + 1, CardToken: "tokn_1",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateCardCharge_Failed(t *testing.T) {
	gw := &fakeGateway{charge: &payments.Charge{ID: "chrg_3", Status: payments.StatusFailed, FailureCode: "insufficient_fund"}}
	svc, pub := newSvc(gw)

	_, err := svc.CreateCardCharge(context.Background(), "u-1", auth.RoleClient, CardChargeInput{
		Purpose: mq.PurposeBooking, BookingID: "b-2", Amount: decimal.NewFromInt(10), CardToken: "tokn_1",
	})
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, mq.RKPaymentFailed, pub.msgs[0].key)
	evt, err := mq.Decode[mq.PaymentFailed](pub.msgs[0].body)
	require.NoError(t, err)
	assert.Equal(t, "insufficient_fund", evt.Data.Reason)
	assert.Equal(t, "b-2", evt.Data.BookingID)
}

func TestCreateCardCharge_Validation(t *testing.T) {
	svc, _ := newSvc(&fakeGateway{charge: &payments.Charge{}})
	ctx := context.Background()

	_, err := svc.CreateCardCharge(ctx, "u-1", auth.RoleClient, CardChargeInput{Purpose: "tips", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateCardCharge(ctx, "u-1", auth.RoleClient, CardChargeInput{Purpose: mq.PurposeBooking, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateCardCharge(ctx, "u-1", auth.RoleClient, CardChargeInput{Purpose: mq.PurposeCredits, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateCardCharge(ctx, "u-1", auth.RoleClient, CardChargeInput{Purpose: mq.PurposeBooking, BookingID: "b", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateCardCharge(ctx, "ag-1", auth.RoleServiceAgent, CardChargeInput{Purpose: mq.PurposeBooking, BookingID: "b", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGetCharge_Ownership(t *testing.T) {
	svc, _ := newSvc(&fakeGateway{})
	ctx := context.Background()

	ch, err := svc.GetCharge(ctx, "u-1", auth.RoleClient, "chrg_1")
	require.NoError(t, err)
	assert.Equal(t, "chrg_1", ch.ID)

	_, err = svc.GetCharge(ctx, "u-2", auth.RoleClient, "chrg_1")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.GetCharge(ctx, "", "", "chrg_1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetCharge(ctx, "adm-1", auth.RoleAdmin, "chrg_1")
	assert.NoError(t, err)
}

func TestHandleWebhook_Reversed(t *testing.T) {
	gw := &fakeGateway{event: &payments.Event{ID: "evnt_3", Key: "charge.complete", Charge: &payments.Charge{
		ID: "chrg_r", Status: payments.StatusReversed, Purpose: mq.PurposeBooking, BookingID: "b-7",
	}}}
	svc, pub := newSvc(gw)
	require.NoError(t, svc.HandleWebhook(context.Background(), "evnt_3"))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, mq.RKPaymentFailed, pub.msgs[0].key)
	evt, err := mq.Decode[mq.PaymentFailed](pub.msgs[0].body)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusReversed, evt.Data.Reason)
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	gw := &fakeGateway{event: &payments.Event{ID: "evnt_1", Key: "charge.complete", Charge: &payments.Charge{
		ID: "chrg_9", Status: payments.StatusSuccessful, Purpose: mq.PurposeCredits, UserID: "u-3", Credits: 25, Amount: 2500, Currency: "usd",
	}}}
	svc, pub := newSvc(gw)
	require.NoError(t, svc.HandleWebhook(ctx, "evnt_1"))
	require.Len(t, pub.msgs, 1)
	evt, err := mq.Decode[mq.PaymentPaid](pub.msgs[0].body)
	require.NoError(t, err)
	assert.Equal(t, "u-3", evt.Data.UserID)
	assert.EqualValues(t, 25, evt.Data.Credits)

	gw = &fakeGateway{event: &payments.Event{ID: "evnt_2", Key: "customer.create"}}
	svc, pub = newSvc(gw)
	require.NoError(t, svc.HandleWebhook(ctx, "evnt_2"))
	assert.Empty(t, pub.msgs)

	gw = &fakeGateway{eventErr: errors.New("not found")}
	svc, _ = newSvc(gw)
	assert.ErrorIs(t, svc.HandleWebhook(ctx, "evnt_forged"), ErrUnverified)
	assert.ErrorIs(t, svc.HandleWebhook(ctx, ""), ErrInvalidInput)
}
