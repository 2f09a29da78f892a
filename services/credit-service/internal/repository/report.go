package repository

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/domain"
)

// Report runs read-only export queries with plain SQL.
type Report struct {
	db *sqlx.DB
}

func NewReport(db *sqlx.DB) *Report {
	return &Report{db: db}
}

var csvHeader = []string{"ID", "User ID", "Amount", "Type", "Description", "External Ref", "Created At"}

// History returns a user's entries oldest first.
func (r *Report) History(ctx context.Context, userID string) ([]domain.CreditTransaction, error) {
	q := r.db.Rebind(`SELECT id, user_id, amount, type, description, external_ref, created_at
		FROM credit_transactions WHERE user_id = ? ORDER BY created_at ASC, id ASC`)
	var out []domain.CreditTransaction
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteCSV streams a user's history in the admin export layout.
func (r *Report) WriteCSV(ctx context.Context, userID string, w io.Writer) (int, error) {
	rows, err := r.History(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(rows), WriteCSV(w, rows)
}

func WriteCSV(w io.Writer, rows []domain.CreditTransaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, tx := range rows {
		ref := ""
		if tx.ExternalRef != nil {
			ref = *tx.ExternalRef
		}
		rec := []string{
			tx.ID,
			tx.UserID,
			strconv.FormatInt(tx.Amount, 10),
			string(tx.Type),
			tx.Description,
			ref,
			tx.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
