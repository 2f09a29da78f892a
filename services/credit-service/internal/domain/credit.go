package domain

import (
	"errors"
	"time"
)

type TxType string

const (
	TxPurchase TxType = "purchase"
	TxUsage    TxType = "usage"
	TxReward   TxType = "reward"
	TxAdmin    TxType = "admin"
)

func (t TxType) Valid() bool {
	switch t {
	case TxPurchase, TxUsage, TxReward, TxAdmin:
		return true
	}
	return false
}

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// CreditAccount carries the running balance. It is written together with
// every CreditTransaction and never recomputed from the log.
type CreditAccount struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreditTransaction is an immutable ledger entry. Amount is signed: grants are
// positive, spending negative.
type CreditTransaction struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id" db:"id"`
	UserID      string    `gorm:"index;uniqueIndex:idx_credit_user_ref,priority:1;not null" json:"user_id" db:"user_id"`
	Amount      int64     `gorm:"not null" json:"amount" db:"amount"`
	Type        TxType    `gorm:"type:varchar(16);not null" json:"type" db:"type"`
	Description string    `json:"description" db:"description"`
	ExternalRef *string   `gorm:"uniqueIndex:idx_credit_user_ref,priority:2" json:"external_ref,omitempty" db:"external_ref"`
	CreatedAt   time.Time `gorm:"index" json:"created_at" db:"created_at"`
}

type Totals struct {
	LifetimeEarned int64 `json:"lifetime_earned"`
	LifetimeSpent  int64 `json:"lifetime_spent"`
}

// Summary pairs the stored balance with totals derived from the log.
// LedgerNet is earned minus spent; it differs from Balance only if the two
// drifted apart.
type Summary struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
	Totals
	LedgerNet int64 `json:"ledger_net"`
}
