package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Faitltd/FAIT-sub003/pkg/money"
	"github.com/Faitltd/FAIT-sub003/pkg/refund"
)

type refundQuote struct {
	Price       string  `json:"price" yaml:"price"`
	Currency    string  `json:"currency" yaml:"currency"`
	Now         string  `json:"now" yaml:"now"`
	Appointment string  `json:"appointment" yaml:"appointment"`
	HoursUntil  float64 `json:"hours_until" yaml:"hours_until"`
	Fraction    float64 `json:"fraction" yaml:"fraction"`
	Refund      string  `json:"refund" yaml:"refund"`
}

func NewRefundCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refund",
		Short: "Cancellation refund tools",
	}
	cmd.AddCommand(newRefundQuoteCommand(root))
	return cmd
}

func newRefundQuoteCommand(root *RootOptions) *cobra.Command {
	var (
		price       string
		appointment string
		now         string
		cur         string
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Show the refund a client would get for cancelling now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := decimal.NewFromString(price)
			if err != nil || p.IsNegative() {
				return fmt.Errorf("--price must be a non-negative amount")
			}
			at, err := time.Parse(time.RFC3339, appointment)
			if err != nil {
				return fmt.Errorf("--appointment: %w", err)
			}
			ref := time.Now()
			if now != "" {
				if ref, err = time.Parse(time.RFC3339, now); err != nil {
					return fmt.Errorf("--now: %w", err)
				}
			}
			cur = strings.ToUpper(cur)
			d := refund.Decide(p, ref, at)
			out := refundQuote{
				Price:       p.StringFixed(2),
				Currency:    cur,
				Now:         ref.UTC().Format(time.RFC3339),
				Appointment: at.UTC().Format(time.RFC3339),
				HoursUntil:  d.HoursUntil,
				Fraction:    d.Fraction,
				Refund:      d.Amount.StringFixed(2),
			}
			return render(cmd.OutOrStdout(), root.Format, out, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "hours until: %.1f\nrefund:      %d%% (%s of %s)\n",
					d.HoursUntil, int(d.Fraction*100), money.Format(d.Amount, cur), money.Format(p, cur))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&price, "price", "", "booking price")
	cmd.Flags().StringVar(&appointment, "appointment", "", "appointment time (RFC3339)")
	cmd.Flags().StringVar(&now, "now", "", "cancellation time (RFC3339), defaults to the current time")
	cmd.Flags().StringVar(&cur, "currency", "USD", "ISO currency code")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("appointment")
	return cmd
}
