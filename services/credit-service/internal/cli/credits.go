package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/Faitltd/FAIT-sub003/pkg/auth"
	"github.com/Faitltd/FAIT-sub003/pkg/db"
	"github.com/Faitltd/FAIT-sub003/pkg/mq"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/repository"
	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/service"
)

// operator is the identity credit writes from faitctl are recorded under.
var operator = service.Actor{ID: "faitctl", Role: auth.RoleAdmin}

type creditSummary struct {
	UserID         string `json:"user_id" yaml:"user_id"`
	Balance        int64  `json:"balance" yaml:"balance"`
	LifetimeEarned int64  `json:"lifetime_earned" yaml:"lifetime_earned"`
	LifetimeSpent  int64  `json:"lifetime_spent" yaml:"lifetime_spent"`
	LedgerNet      int64  `json:"ledger_net" yaml:"ledger_net"`
}

type creditAdjustment struct {
	UserID        string `json:"user_id" yaml:"user_id"`
	TransactionID string `json:"transaction_id" yaml:"transaction_id"`
	Amount        int64  `json:"amount" yaml:"amount"`
	Balance       int64  `json:"balance" yaml:"balance"`
}

func NewCreditsCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and correct credit accounts",
	}
	cmd.AddCommand(newCreditsSummaryCommand(root))
	cmd.AddCommand(newCreditsAdjustCommand(root))
	cmd.AddCommand(newCreditsExportCommand(root))
	return cmd
}

// openCredits connects to the credit database. The caller must run the
// returned close func.
func openCredits(root *RootOptions, cmd *cobra.Command) (*service.CreditSvc, func() error, error) {
	if root.DSN == "" {
		return nil, nil, errors.New("credit database DSN not set (--dsn or PG_CREDIT_DSN)")
	}
	gdb, err := db.Open(root.Driver, root.DSN)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewCreditRepo(gdb)
	if err := repo.Migrate(); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, err
	}
	report := repository.NewReport(sqlx.NewDb(sqlDB, db.SQLDialect(root.Driver)))
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	return service.NewCreditSvc(repo, report, mq.Nop{}, log), sqlDB.Close, nil
}

func newCreditsSummaryCommand(root *RootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a user's balance and lifetime totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := openCredits(root, cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			sum, err := svc.Summary(cmd.Context(), user)
			if err != nil {
				return err
			}
			out := creditSummary{
				UserID:         sum.UserID,
				Balance:        sum.Balance,
				LifetimeEarned: sum.LifetimeEarned,
				LifetimeSpent:  sum.LifetimeSpent,
				LedgerNet:      sum.LedgerNet,
			}
			return render(cmd.OutOrStdout(), root.Format, out, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "user:     %s\nbalance:  %d\nearned:   %d\nspent:    %d\n",
					out.UserID, out.Balance, out.LifetimeEarned, out.LifetimeSpent)
				if err == nil && out.LedgerNet != out.Balance {
					_, err = fmt.Fprintf(w, "warning:  ledger net %d does not match balance\n", out.LedgerNet)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newCreditsAdjustCommand(root *RootOptions) *cobra.Command {
	var (
		user   string
		amount int64
		reason string
	)
	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Add or remove credits with an admin entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := openCredits(root, cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			res, err := svc.Adjust(cmd.Context(), operator, user, amount, reason)
			if err != nil {
				return err
			}
			out := creditAdjustment{UserID: user, TransactionID: res.Tx.ID, Amount: amount, Balance: res.Balance}
			return render(cmd.OutOrStdout(), root.Format, out, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "adjusted %s by %+d, balance now %d\n", user, amount, res.Balance)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().Int64Var(&amount, "amount", 0, "signed credit amount")
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded on the entry")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newCreditsExportCommand(root *RootOptions) *cobra.Command {
	var (
		user string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's transaction history as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := openCredits(root, cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := svc.ExportCSV(cmd.Context(), operator, user, w)
			if err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", n, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
