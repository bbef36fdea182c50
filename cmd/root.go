package cmd

import (
	"log/slog"

	"github.com/estatehub/seeder/internal/config"
	"github.com/estatehub/seeder/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	verbose    bool
}

func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "seeder",
		Short: "Seed a real-estate backend with owners, properties and images",
		Long: `Seeder populates a real-estate REST backend with generated owners,
their properties and remote images, uploading everything through the
backend's own API with bounded concurrency.

It also ships a stub backend (seeder serve) for local runs.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

func (o *globalOptions) newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, func() error, error) {
	lo := cfg.LoggingOptions()
	lo.Writer = cmd.ErrOrStderr()
	if o.verbose {
		lo.Level = slog.LevelDebug
	}
	return logging.New(lo)
}
