package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Faitltd/FAIT-sub003/pkg/schedule"
)

const dateLayout = "2006-01-02"

type schedulePreview struct {
	Start   string   `json:"start" yaml:"start"`
	Cadence string   `json:"cadence" yaml:"cadence"`
	Count   int      `json:"count" yaml:"count"`
	Dates   []string `json:"dates" yaml:"dates"`
}

func NewScheduleCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Recurring schedule tools",
	}
	cmd.AddCommand(newSchedulePreviewCommand(root))
	return cmd
}

func newSchedulePreviewCommand(root *RootOptions) *cobra.Command {
	var (
		start   string
		cadence string
		count   int
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "List the dates a recurring booking would occupy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := time.Parse(dateLayout, start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			c, err := schedule.ParseCadence(cadence)
			if err != nil {
				return err
			}
			if err := schedule.ValidateOccurrences(count); err != nil {
				return err
			}
			out := schedulePreview{Start: day.Format(dateLayout), Cadence: string(c), Count: count}
			dates := schedule.Dates(day, c, count)
			for _, d := range dates {
				out.Dates = append(out.Dates, d.Format(dateLayout))
			}
			return render(cmd.OutOrStdout(), root.Format, out, func(w io.Writer) error {
				for i, d := range dates {
					if _, err := fmt.Fprintf(w, "%2d  %s  %s\n", i+1, d.Format(dateLayout), d.Format("Mon")); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cadence, "cadence", "weekly", "weekly|biweekly|monthly")
	cmd.Flags().IntVar(&count, "count", 4, "number of occurrences")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}
