// Package main provides the entry point for the UTM link tracker
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirphl/utm-tracker/config"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "utm-tracker",
	Short: "UTM link builder, shortener and click tracker",
	Example: `utm-tracker serve
utm-tracker migrate
utm-tracker reconcile
utm-tracker fix-bulk-links`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd(), migrateCmd(), reconcileCmd(), fixBulkLinksCmd())
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger every command starts from
func bootstrap() (*config.ProductionConfig, *zap.Logger, error) {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	logger = logger.With(
		zap.String("env", cfg.Deployment.Environment),
		zap.String("version", cfg.Deployment.Version),
	)
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the tracker and the provisioning reconciler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app, err := initializeApplication(cfg, logger)
			if err != nil {
				logger.Error("Failed to initialize application", zap.Error(err))
				return err
			}
			defer app.Close()

			r, err := app.buildRouter()
			if err != nil {
				return err
			}
			r.SetupRoutes()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Scheduler.ReconcileEnabled {
				stopReconciler, err := app.reconciler.Start(ctx)
				if err != nil {
					return err
				}
				app.stopFuncs = append(app.stopFuncs, stopReconciler)
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
				serverErr <- r.Start(address)
			}()

			// Wait for shutdown signal
			select {
			case err := <-serverErr:
				if err != nil {
					logger.Error("Server stopped unexpectedly", zap.Error(err))
				}
				return err
			case <-ctx.Done():
			}
			logger.Info("Shutting down gracefully")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := r.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", zap.Error(err))
			}

			logger.Info("Server stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the link tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := initializeDatabase(cfg.Database, logger)
			if err != nil {
				return err
			}
			if err := migrateDatabase(db); err != nil {
				return err
			}
			logger.Info("Database migrated")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Complete link records stuck in provisioning, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app, err := initializeApplication(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.reconciler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d completed=%d failed=%d short_links=%d\n",
				result.Scanned, result.Completed, result.Failed, result.ShortLinks)
			return nil
		},
	}
}

func fixBulkLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-bulk-links",
		Short: "Re-point bulk imported short links at the click tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app, err := initializeApplication(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			resp, err := app.bulkFlow.FixBulkLinks(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range resp.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", e.ID, e.Email, e.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d fixed=%d already_tracking=%d failed=%d\n",
				resp.Summary.TotalLinks, resp.Summary.Fixed, resp.Summary.AlreadyTracking, resp.Summary.Failed)
			if resp.Summary.Failed > 0 {
				return errors.New("some bulk links could not be fixed")
			}
			return nil
		},
	}
}
