package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/domain"
)

type CreditRepo struct{ db *gorm.DB }

func NewCreditRepo(db *gorm.DB) *CreditRepo {
	return &CreditRepo{db: db}
}

func (r *CreditRepo) Migrate() error {
	if err := r.db.AutoMigrate(&domain.CreditAccount{}, &domain.CreditTransaction{}); err != nil {
		return err
	}
	// references used to be unique across all users
	m := r.db.Migrator()
	if m.HasIndex(&domain.CreditTransaction{}, "idx_credit_transactions_external_ref") {
		return m.DropIndex(&domain.CreditTransaction{}, "idx_credit_transactions_external_ref")
	}
	return nil
}

// Entry is one ledger write request.
type Entry struct {
	UserID      string
	Amount      int64
	Type        domain.TxType
	Description string
	ExternalRef string
}

// Result is the outcome of Add. Applied is false when ExternalRef had already
// been recorded; Tx is then the earlier entry.
type Result struct {
	Tx      domain.CreditTransaction
	Balance int64
	Applied bool
}

// Add inserts the ledger row and moves the account balance in one
// transaction. The account row is locked for the duration, and a write that
// would take the balance below zero is rejected.
func (r *CreditRepo) Add(ctx context.Context, e Entry) (*Result, error) {
	if e.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	var res Result
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc domain.CreditAccount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&acc, "user_id = ?", e.UserID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			acc = domain.CreditAccount{UserID: e.UserID}
			if err := tx.Create(&acc).Error; err != nil {
				return fmt.Errorf("open account: %w", err)
			}
		case err != nil:
			return err
		}

		if e.ExternalRef != "" {
			var prev domain.CreditTransaction
			err := tx.First(&prev, "user_id = ? AND external_ref = ?", e.UserID, e.ExternalRef).Error
			if err == nil {
				res = Result{Tx: prev, Balance: acc.Balance}
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		next := acc.Balance + e.Amount
		if next < 0 {
			return fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientCredits, acc.Balance, -e.Amount)
		}
		row := domain.CreditTransaction{
			ID:          uuid.NewString(),
			UserID:      e.UserID,
			Amount:      e.Amount,
			Type:        e.Type,
			Description: e.Description,
		}
		if e.ExternalRef != "" {
			ref := e.ExternalRef
			row.ExternalRef = &ref
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if err := tx.Model(&acc).Update("balance", next).Error; err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		res = Result{Tx: row, Balance: next, Applied: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Account returns the stored account, or a zero balance for users who never
// held credits.
func (r *CreditRepo) Account(ctx context.Context, userID string) (*domain.CreditAccount, error) {
	var acc domain.CreditAccount
	err := r.db.WithContext(ctx).First(&acc, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.CreditAccount{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *CreditRepo) Amounts(ctx context.Context, userID string) ([]int64, error) {
	var out []int64
	err := r.db.WithContext(ctx).Model(&domain.CreditTransaction{}).
		Where("user_id = ?", userID).
		Pluck("amount", &out).Error
	return out, err
}

// Transactions lists the newest entries first.
func (r *CreditRepo) Transactions(ctx context.Context, userID string, limit int) ([]domain.CreditTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []domain.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
