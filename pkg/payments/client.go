// Package payments wraps the omise API for charges, refunds and webhook event
// verification. Amounts cross this boundary as decimals and are converted to
// minor units here.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/shopspring/decimal"

	"github.com/Faitltd/FAIT-sub003/pkg/money"
)

// Charge statuses reported by omise.
const (
	StatusSuccessful = "successful"
	StatusPending    = "pending"
	StatusFailed     = "failed"
	StatusExpired    = "expired"
	StatusReversed   = "reversed"
)

// Metadata keys stamped on every charge so webhooks can route the outcome.
const (
	MetaPurpose   = "purpose"
	MetaBookingID = "booking_id"
	MetaUserID    = "user_id"
	MetaCredits   = "credits"
)

var ErrInvalidParams = errors.New("invalid params")

type ChargeRequest struct {
	Purpose     string
	BookingID   string
	UserID      string
	Credits     int64
	Amount      decimal.Decimal
	CardToken   string
	Description string
}

type Charge struct {
	ID             string `json:"charge_id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Method         string `json:"method"`
	AuthorizeURI   string `json:"authorize_uri,omitempty"`
	FailureCode    string `json:"failure_code,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`

	// routing metadata stamped at creation
	Purpose   string `json:"purpose,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Credits   int64  `json:"credits,omitempty"`
}

// Event is a verified webhook event. Charge is set for charge.* keys.
type Event struct {
	ID     string
	Key    string
	Charge *Charge
}

type Refund struct {
	ID       string          `json:"refund_id"`
	ChargeID string          `json:"charge_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type Client struct {
	omc      *omise.Client
	currency string
}

func NewClient(pub, sec, currency string) (*Client, error) {
	c, err := omise.NewClient(pub, sec)
	if err != nil {
		return nil, err
	}
	return &Client{omc: c, currency: currency}, nil
}

func (c *Client) Currency() string { return c.currency }

func (c *Client) CreateCardCharge(ctx context.Context, in ChargeRequest) (*Charge, error) {
	if !in.Amount.IsPositive() || in.CardToken == "" || in.Purpose == "" {
		return nil, ErrInvalidParams
	}
	amount, err := money.ToMinor(in.Amount, c.currency)
	if err != nil {
		return nil, err
	}
	meta := map[string]any{MetaPurpose: in.Purpose}
	if in.BookingID != "" {
		meta[MetaBookingID] = in.BookingID
	}
	if in.UserID != "" {
		meta[MetaUserID] = in.UserID
	}
	if in.Credits != 0 {
		meta[MetaCredits] = strconv.FormatInt(in.Credits, 10)
	}

	ch := &omise.Charge{}
	req := &operations.CreateCharge{
		Amount:      amount,
		Currency:    c.currency,
		Card:        in.CardToken,
		Description: in.Description,
		Metadata:    meta,
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.omc.Do(ch, req); err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	return toCharge(ch), nil
}

// Refund asks omise to return amount of a captured charge. It only returns
// nil error once omise has accepted the refund.
func (c *Client) Refund(ctx context.Context, chargeID string, amount decimal.Decimal) (*Refund, error) {
	if chargeID == "" || !amount.IsPositive() {
		return nil, ErrInvalidParams
	}
	minor, err := money.ToMinor(amount, c.currency)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref := &omise.Refund{}
	if err := c.omc.Do(ref, &operations.CreateRefund{ChargeID: chargeID, Amount: minor}); err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}
	refunded, err := money.FromMinor(ref.Amount, c.currency)
	if err != nil {
		return nil, err
	}
	return &Refund{ID: ref.ID, ChargeID: chargeID, Amount: refunded}, nil
}

func (c *Client) GetCharge(ctx context.Context, id string) (*Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := &omise.Charge{}
	if err := c.omc.Do(ch, &operations.RetrieveCharge{ChargeID: id}); err != nil {
		return nil, err
	}
	return toCharge(ch), nil
}

// RetrieveEvent re-fetches a webhook event so its payload can be trusted.
func (c *Client) RetrieveEvent(ctx context.Context, id string) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ev := &omise.Event{}
	if err := c.omc.Do(ev, &operations.RetrieveEvent{EventID: id}); err != nil {
		return nil, err
	}
	out := &Event{ID: ev.ID, Key: ev.Key}
	if strings.HasPrefix(ev.Key, "charge.") {
		ch, err := chargeFromData(ev.Data)
		if err != nil {
			return nil, err
		}
		out.Charge = ch
	}
	return out, nil
}

// chargeFromData decodes the loosely typed event payload into a charge.
func chargeFromData(data any) (*Charge, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, fmt.Errorf("unmarshal charge: %w", err)
	}
	return toCharge(&ch), nil
}

func toCharge(ch *omise.Charge) *Charge {
	out := &Charge{
		ID:           ch.ID,
		Status:       string(ch.Status),
		Amount:       ch.Amount,
		Currency:     ch.Currency,
		AuthorizeURI: ch.AuthorizeURI,
	}
	if ch.FailureCode != nil {
		out.FailureCode = *ch.FailureCode
	}
	if ch.FailureMessage != nil {
		out.FailureMessage = *ch.FailureMessage
	}
	if ch.Source != nil && ch.Source.Type != "" {
		out.Method = ch.Source.Type
	} else {
		out.Method = "card"
	}
	out.Purpose = metaString(ch.Metadata, MetaPurpose)
	out.BookingID = metaString(ch.Metadata, MetaBookingID)
	out.UserID = metaString(ch.Metadata, MetaUserID)
	if n, err := strconv.ParseInt(metaString(ch.Metadata, MetaCredits), 10, 64); err == nil {
		out.Credits = n
	}
	// charges created before purposes existed only carried a booking id
	if out.Purpose == "" && out.BookingID != "" {
		out.Purpose = "booking"
	}
	return out
}

func metaString(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
