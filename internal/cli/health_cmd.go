package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/modelbake/health"
)

// ErrUnhealthy is returned by the health command when any check fails.
var ErrUnhealthy = errors.New("modelbake: unhealthy")

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run the health checks and print a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close(ctx) }()

			report := app.Health().CheckAll(ctx)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "CHECK\tSTATUS\tMESSAGE\n")
			for _, r := range report.Results {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Status, r.Message)
			}
			fmt.Fprintf(tw, "overall\t%s\t\n", report.Status)
			if err := tw.Flush(); err != nil {
				return err
			}

			if report.Status == health.StatusUnhealthy {
				return ErrUnhealthy
			}
			return nil
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
}
