// Package cli implements faitctl, the operator command line for schedules,
// refund quotes and credit accounts.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Faitltd/FAIT-sub003/pkg/db"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // text | json | yaml
	Driver string
	DSN    string
}

var ValidFormats = []string{"text", "json", "yaml"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "faitctl",
		Short:         "Operator tooling for FAIT bookings and credits",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = db.DriverPostgres
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", driver, "database driver for credit commands (postgres|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", os.Getenv("PG_CREDIT_DSN"), "credit database DSN")

	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewRefundCommand(opts))
	cmd.AddCommand(NewCreditsCommand(opts))
	return cmd
}

// render writes v as json or yaml, or calls text for the text format.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

// Execute runs faitctl and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "faitctl:", err)
		return 1
	}
	return 0
}
