package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/estatehub/seeder/internal/config"
	"github.com/estatehub/seeder/internal/store"
	"github.com/estatehub/seeder/internal/stubapi"
	"github.com/spf13/cobra"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	var (
		port           string
		dbPath         string
		failOwnerEvery int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a stub real-estate backend",
		Long: `Starts a local stand-in for the real-estate REST backend on the
specified port. It accepts the owner, property and upload endpoints the
seed command uses, validates payloads and records what it receives in
memory or, with --db, in a SQLite file.`,
		Example: `  # Start the stub on default port 8080
  seeder serve

  # Persist to SQLite and fail every third owner creation
  seeder serve --db seed.db --fail-owner-every 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.configPath)
			if err != nil {
				return err
			}
			logger, closeLog, err := global.newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var st store.Store = store.NewMemory()
			if dbPath != "" {
				st, err = store.OpenSQLite(ctx, dbPath)
				if err != nil {
					return err
				}
			}
			defer st.Close()

			router, err := stubapi.NewRouter(st, stubapi.Options{
				FailOwnerEvery: failOwnerEvery,
				UploadField:    cfg.UploadField,
			}, logger)
			if err != nil {
				return err
			}

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				logger.Info("Stub backend available", "addr", addr, "url", "http://localhost"+addr, "db", dbPath)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				logger.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("Server shutdown failed", "err", err)
					return err
				}
				logger.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to persist to (in-memory when empty)")
	cmd.Flags().IntVar(&failOwnerEvery, "fail-owner-every", 0, "Answer 500 to every Nth owner creation (0 disables)")

	return cmd
}
