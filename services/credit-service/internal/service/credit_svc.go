package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/domain"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/ledger"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/repository"
)

var tracer = otel.Tracer("credit-service")

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == auth.RoleAdmin }

type CreditSvc struct {
	repo   *repository.CreditRepo
	report *repository.Report
	pub    mq.EventPublisher
	log    *slog.Logger
}

func NewCreditSvc(repo *repository.CreditRepo, report *repository.Report, pub mq.EventPublisher, log *slog.Logger) *CreditSvc {
	if pub == nil {
		pub = mq.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &CreditSvc{repo: repo, report: report, pub: pub, log: log}
}

func (s *CreditSvc) add(ctx context.Context, e repository.Entry) (*repository.Result, error) {
	ctx, span := tracer.Start(ctx, "credits."+string(e.Type))
	defer span.End()
	span.SetAttributes(attribute.String("credits.user_id", e.UserID), attribute.Int64("credits.amount", e.Amount))

	if e.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidInput)
	}
	res, err := s.repo.Add(ctx, e)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !res.Applied {
		s.log.InfoContext(ctx, "duplicate credit reference ignored", "user_id", e.UserID, "external_ref", e.ExternalRef)
		return res, nil
	}
	s.log.InfoContext(ctx, "credits changed", "user_id", e.UserID, "type", e.Type, "amount", e.Amount, "balance", res.Balance)

	evt := mq.CreditsChanged{Event: mq.RKCreditsChanged, Version: 1, OccurredAt: time.Now().UTC().Format(time.RFC3339)}
	evt.Data.UserID = e.UserID
	evt.Data.TransactionID = res.Tx.ID
	evt.Data.Type = string(e.Type)
	evt.Data.Amount = e.Amount
	evt.Data.Balance = res.Balance
	if err := s.pub.PublishJSON(ctx, mq.RKCreditsChanged, evt); err != nil {
		s.log.WarnContext(ctx, "publish failed", "routing_key", mq.RKCreditsChanged, "error", err)
	}
	return res, nil
}

// UsageRefPrefix namespaces client-supplied spend references away from the
// payment and booking references the consumers write.
const UsageRefPrefix = "usage:"

// Spend consumes credits for the actor. amount is the positive number of
// credits to take.
func (s *CreditSvc) Spend(ctx context.Context, actor Actor, amount int64, description, ref string) (*repository.Result, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: spend must be positive", domain.ErrInvalidAmount)
	}
	if description == "" {
		description = fmt.Sprintf("Used %d credits", amount)
	}
	if ref != "" {
		ref = UsageRefPrefix + ref
	}
	return s.add(ctx, repository.Entry{UserID: actor.ID, Amount: -amount, Type: domain.TxUsage, Description: description, ExternalRef: ref})
}

func (s *CreditSvc) Reward(ctx context.Context, userID string, amount int64, description, ref string) (*repository.Result, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: reward must be positive", domain.ErrInvalidAmount)
	}
	return s.add(ctx, repository.Entry{UserID: userID, Amount: amount, Type: domain.TxReward, Description: description, ExternalRef: ref})
}

// Purchase grants credits bought through the payments provider. paymentID
// makes redelivered payment events harmless.
func (s *CreditSvc) Purchase(ctx context.Context, userID string, credits int64, paymentID string) (*repository.Result, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("%w: purchase must be positive", domain.ErrInvalidAmount)
	}
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id required", domain.ErrInvalidInput)
	}
	return s.add(ctx, repository.Entry{
		UserID:      userID,
		Amount:      credits,
		Type:        domain.TxPurchase,
		Description: fmt.Sprintf("Purchased %d credits", credits),
		ExternalRef: paymentID,
	})
}

// Adjust is an admin correction in either direction.
func (s *CreditSvc) Adjust(ctx context.Context, actor Actor, userID string, amount int64, reason string) (*repository.Result, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason required", domain.ErrInvalidInput)
	}
	return s.add(ctx, repository.Entry{
		UserID:      userID,
		Amount:      amount,
		Type:        domain.TxAdmin,
		Description: fmt.Sprintf("Admin adjustment by %s: %s", actor.ID, reason),
	})
}

func (s *CreditSvc) Summary(ctx context.Context, userID string) (*domain.Summary, error) {
	acc, err := s.repo.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	amounts, err := s.repo.Amounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	t := ledger.Reduce(amounts)
	sum := &domain.Summary{UserID: userID, Balance: acc.Balance, Totals: t, LedgerNet: t.LifetimeEarned - t.LifetimeSpent}
	if sum.LedgerNet != sum.Balance {
		s.log.WarnContext(ctx, "credit balance drift", "user_id", userID, "balance", sum.Balance, "ledger_net", sum.LedgerNet)
	}
	return sum, nil
}

func (s *CreditSvc) Transactions(ctx context.Context, userID string, limit int) ([]domain.CreditTransaction, error) {
	return s.repo.Transactions(ctx, userID, limit)
}

// ExportCSV writes the user's full history; admin only.
func (s *CreditSvc) ExportCSV(ctx context.Context, actor Actor, userID string, w io.Writer) (int, error) {
	if !actor.IsAdmin() {
		return 0, domain.ErrForbidden
	}
	return s.report.WriteCSV(ctx, userID, w)
}
