package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/db"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/domain"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/repository"
)

type recordingPub struct{ keys []string }

func (p *recordingPub) PublishJSON(_ context.Context, key string, _ any) error {
	p.keys = append(p.keys, key)
	return nil
}

var (
	user  = Actor{ID: "u1", Role: auth.RoleClient}
	admin = Actor{ID: "a1", Role: auth.RoleAdmin}
)

func newSvc(t *testing.T) (*CreditSvc, *recordingPub) {
	t.Helper()
	gdb, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "credits.db"))
	require.NoError(t, err)
	repo := repository.NewCreditRepo(gdb)
	require.NoError(t, repo.Migrate())
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	report := repository.NewReport(sqlx.NewDb(sqlDB, db.SQLDialect(db.DriverSQLite)))
	pub := &recordingPub{}
	return NewCreditSvc(repo, report, pub, slog.New(slog.NewTextHandler(io.Discard, nil))), pub
}

func TestSummary(t *testing.T) {
	svc, pub := newSvc(t)
	ctx := context.Background()

	sum, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{UserID: "u1"}, *sum)

	_, err = svc.Purchase(ctx, "u1", 100, "chrg_1")
	require.NoError(t, err)
	_, err = svc.Reward(ctx, "u1", 25, "referral", "")
	require.NoError(t, err)
	_, err = svc.Spend(ctx, user, 40, "", "")
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, admin, "u1", -5, "goodwill reversal")
	require.NoError(t, err)

	sum, err = svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 80, sum.Balance)
	assert.EqualValues(t, 125, sum.LifetimeEarned)
	assert.EqualValues(t, 45, sum.LifetimeSpent)
	assert.EqualValues(t, 80, sum.LedgerNet)
	assert.Len(t, pub.keys, 4)
}

func TestPurchase_Idempotent(t *testing.T) {
	svc, pub := newSvc(t)
	ctx := context.Background()

	_, err := svc.Purchase(ctx, "u1", 60, "chrg_same")
	require.NoError(t, err)
	res, err := svc.Purchase(ctx, "u1", 60, "chrg_same")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Len(t, pub.keys, 1)

	sum, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 60, sum.Balance)

	_, err = svc.Purchase(ctx, "u1", 60, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSpend_Guards(t *testing.T) {
	svc, _ := newSvc(t)
	ctx := context.Background()

	_, err := svc.Spend(ctx, user, 0, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = svc.Spend(ctx, user, -3, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = svc.Spend(ctx, user, 1, "", "")
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
}

func TestSpend_RefCannotShadowReward(t *testing.T) {
	svc, _ := newSvc(t)
	ctx := context.Background()
	other := Actor{ID: "u2", Role: auth.RoleClient}

	_, err := svc.Reward(ctx, "u2", 5, "welcome", "welcome:u2")
	require.NoError(t, err)
	spent, err := svc.Spend(ctx, other, 1, "", "booking_completion:b-victim")
	require.NoError(t, err)
	require.NotNil(t, spent.Tx.ExternalRef)
	assert.Equal(t, "usage:booking_completion:b-victim", *spent.Tx.ExternalRef)

	res, err := svc.Reward(ctx, "u1", 50, "Booking completed", "booking_completion:b-victim")
	require.NoError(t, err)
	assert.True(t, res.Applied)

	sum, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 50, sum.Balance)
}

func TestAdjust_Guards(t *testing.T) {
	svc, _ := newSvc(t)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, user, "u1", 10, "self service")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.Adjust(ctx, admin, "u1", 10, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Adjust(ctx, admin, "u1", 0, "nothing")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	res, err := svc.Adjust(ctx, admin, "u1", 10, "migration")
	require.NoError(t, err)
	assert.Equal(t, domain.TxAdmin, res.Tx.Type)
	assert.Contains(t, res.Tx.Description, "migration")
}

func TestExportCSV(t *testing.T) {
	svc, _ := newSvc(t)
	ctx := context.Background()
	_, err := svc.Reward(ctx, "u1", 5, "welcome", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = svc.ExportCSV(ctx, user, "u1", &buf)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	n, err := svc.ExportCSV(ctx, admin, "u1", &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,User ID,Amount,Type,Description,External Ref,Created At", lines[0])
	assert.Contains(t, lines[1], ",u1,5,reward,welcome,,")
}

func TestTransactions(t *testing.T) {
	svc, _ := newSvc(t)
	ctx := context.Background()
	_, err := svc.Reward(ctx, "u1", 5, "a", "")
	require.NoError(t, err)

	list, err := svc.Transactions(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 5, list[0].Amount)
}

var _ mq.EventPublisher = (*recordingPub)(nil)
