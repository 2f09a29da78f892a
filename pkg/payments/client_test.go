package payments

import (
	"context"
	"testing"

	"github.com/omise/omise-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCreateCardCharge_InvalidParams(t *testing.T) {
	c := &Client{currency: "usd"}
	ctx := context.Background()

	_, err := c.CreateCardCharge(ctx, ChargeRequest{Purpose: "booking", Amount: decimal.Zero, CardToken: "tokn_1"})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = c.CreateCardCharge(ctx, ChargeRequest{Purpose: "booking", Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestRefund_InvalidParams(t *testing.T) {
	c := &Client{currency: "usd"}

	_, err := c.Refund(context.Background(), "", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = c.Refund(context.Background(), "chrg_1", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestToCharge_FailureFields(t *testing.T) {
	code, msg := "insufficient_fund", "card declined"
	ch := &omise.Charge{Amount: 4999, Currency: "usd", Status: omise.ChargeStatus(StatusFailed), FailureCode: &code, FailureMessage: &msg}
	ch.ID = "chrg_test"

	got := toCharge(ch)
	assert.Equal(t, "chrg_test", got.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "insufficient_fund", got.FailureCode)
	assert.Equal(t, "card declined", got.FailureMessage)
	assert.EqualValues(t, 4999, got.Amount)
}

func TestToCharge_Metadata(t *testing.T) {
	ch := &omise.Charge{Amount: 2000, Currency: "usd", Status: omise.ChargeStatus(StatusSuccessful), Metadata: map[string]interface{}{
		MetaPurpose: "credits", MetaUserID: "u-1", MetaCredits: "20",
	}}
	got := toCharge(ch)
	assert.Equal(t, "credits", got.Purpose)
	assert.Equal(t, "u-1", got.UserID)
	assert.EqualValues(t, 20, got.Credits)
	assert.Equal(t, "card", got.Method)
}

func TestChargeFromData(t *testing.T) {
	data := map[string]any{
		"object":   "charge",
		"id":       "chrg_evt",
		"amount":   12000,
		"currency": "usd",
		"status":   "successful",
		"metadata": map[string]any{"booking_id": "b-9"},
	}
	got, err := chargeFromData(data)
	assert.NoError(t, err)
	assert.Equal(t, "chrg_evt", got.ID)
	assert.Equal(t, StatusSuccessful, got.Status)
	assert.Equal(t, "b-9", got.BookingID)
	assert.Equal(t, "booking", got.Purpose, "legacy charges default to booking")
	assert.EqualValues(t, 12000, got.Amount)
}
