// Package cli implements the modelbake command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/modelbake/config"
)

// Flag names shared by subcommands.
const (
	FlagConfig  = "config"
	FlagPack    = "pack"
	FlagVerbose = "verbose"
	FlagOutput  = "output"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := New().Execute(); err != nil {
		os.Exit(1)
	}
}

// New builds the command tree.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modelbake [sub-command]",
		Short: "Resolve and bake model artifacts from a descriptor pack",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().String(FlagConfig, "", "path to a modelbake YAML config file")
	cmd.PersistentFlags().String(FlagPack, "", "pack root directory, overriding the config file")
	cmd.PersistentFlags().Bool(FlagVerbose, false, "log every failed probe of a resolution")

	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

// loadConfig reads --config and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	path, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return cfg, err
	}
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if cmd.Flags().Changed(FlagPack) {
		if cfg.Pack.Root, err = cmd.Flags().GetString(FlagPack); err != nil {
			return cfg, err
		}
	}
	if cmd.Flags().Changed(FlagVerbose) {
		if cfg.Resolve.Verbose, err = cmd.Flags().GetBool(FlagVerbose); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}
