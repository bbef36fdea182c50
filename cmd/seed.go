package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/estatehub/seeder/internal/backend"
	"github.com/estatehub/seeder/internal/config"
	"github.com/estatehub/seeder/internal/fixtures"
	"github.com/estatehub/seeder/internal/images"
	"github.com/estatehub/seeder/internal/seeding"
	"github.com/estatehub/seeder/internal/shutdown"
	"github.com/estatehub/seeder/internal/upload"
	"github.com/spf13/cobra"
)

// ErrInterrupted is returned when a signal ended the run and the exit func
// returned instead of terminating the process.
var ErrInterrupted = errors.New("seed run interrupted")

func newSeedCmd(global *globalOptions, shutdownOpts ...shutdown.Option) *cobra.Command {
	var (
		owners              int
		apiURL              string
		concurrency         int
		propertyConcurrency int
		strict              bool
		reportPath          string
		seed                uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create owners with properties and images",
		Long: `Creates the requested number of owners against the backend. Each owner
gets a profile photo and 1-5 properties, each property gets 2-5 gallery
images. At most --concurrency owners are processed at once.

A failed owner never stops the others. The command exits non-zero when
any owner failed (or, with --strict, when any property failed).`,
		Example: `  # Seed 20 owners against the default backend
  seeder seed --owners=20

  # Seed against a custom backend and keep a report
  seeder seed --owners=5 --api-url http://localhost:3000/api --report seed-report.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if owners < 0 {
				return fmt.Errorf("--owners must be a non-negative integer, got %d", owners)
			}

			cfg, err := config.Load(global.configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("api-url") {
				cfg.APIURL = apiURL
			}
			if flags.Changed("concurrency") {
				cfg.Concurrency = concurrency
			}
			if flags.Changed("property-concurrency") {
				cfg.PropertyConcurrency = propertyConcurrency
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closeLog, err := global.newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			s := newSeeder(cfg, seed, logger)

			opts := append([]shutdown.Option{shutdown.WithLogger(logger)}, shutdownOpts...)
			coord := shutdown.New(cfg.ShutdownTimeout, opts...)
			stop := coord.Watch(os.Interrupt, syscall.SIGTERM)
			defer stop()

			var report *seeding.Report
			err = coord.Track(cmd.Context(), "seed", func(ctx context.Context) error {
				report = s.Run(ctx, owners)
				return nil
			})
			if err != nil {
				return err
			}

			report.PrintSummary(cmd.OutOrStdout())
			if reportPath != "" {
				if err := report.WriteYAML(reportPath); err != nil {
					return err
				}
				logger.Info("Report written", "path", reportPath)
			}

			if coord.ShuttingDown() {
				// The coordinator exits with shutdown.ExitCode once it sees the run settle.
				<-coord.Exited()
				return fmt.Errorf("%w: exit code %d", ErrInterrupted, shutdown.ExitCode)
			}
			return report.Err(strict)
		},
	}

	cmd.Flags().IntVar(&owners, "owners", 0, "Number of owners to create (required)")
	cmd.Flags().StringVar(&apiURL, "api-url", config.DefaultAPIURL, "Backend base URL")
	cmd.Flags().IntVar(&concurrency, "concurrency", seeding.DefaultConcurrency, "Owners processed at once")
	cmd.Flags().IntVar(&propertyConcurrency, "property-concurrency", 0, "Properties processed at once per owner (0 for unbounded)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat owners with failed properties as failures")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a YAML report to this path")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Fixture seed for reproducible data (0 for random)")
	_ = cmd.MarkFlagRequired("owners")

	return cmd
}

func newSeeder(cfg config.Config, seed uint64, logger *slog.Logger) *seeding.Seeder {
	fetcher := images.NewFetcher(cfg.FetchTimeout, logger)
	uploader := upload.NewClient(fetcher,
		upload.WithPolicy(upload.DefaultRetryPolicy(cfg.FallbackImageURL)),
		upload.WithRequestTimeout(cfg.UploadTimeout),
		upload.WithLogger(logger))
	api := backend.NewClient(cfg.APIURL, cfg.UploadTimeout, logger)
	gen := fixtures.New(seed, cfg.PhotoBaseURL, cfg.ImageBaseURL)

	return seeding.New(api, uploader, gen, seeding.Config{
		Concurrency:         cfg.Concurrency,
		PropertyConcurrency: cfg.PropertyConcurrency,
		UploadField:         cfg.UploadField,
	}, logger)
}
