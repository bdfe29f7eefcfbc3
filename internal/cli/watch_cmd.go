package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/modelbake/resource"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the cache warm and drop stale artifacts as pack files change",
		Long: `Watch runs the cache janitor and the pack watcher until interrupted.
Keys given as arguments are resolved once at startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Pack.Watch = true

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close(cmd.Context()) }()

			for _, arg := range args {
				key, err := resource.ParseKey(arg)
				if err != nil {
					return err
				}
				app.Store().Get(ctx, key)
			}
			return app.Run(ctx)
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
}
