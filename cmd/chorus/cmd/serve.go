package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/verity-labs/chorus/internal/api"
	"github.com/verity-labs/chorus/internal/config"
	"github.com/verity-labs/chorus/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the report-generation API. Sessions survive restarts through the
configured checkpoint backend; a session waiting at the review gate can
be resumed by any later process.

While running, edits to the config file are picked up live for the
reloadable settings (feedback vocabulary, log level).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	svc, closeStore, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	handler := api.NewHandler(svc, logger, api.Limits{
		DefaultMaxAnalysts: cfg.Workflow.DefaultMaxAnalysts,
		MaxAnalystsLimit:   cfg.Workflow.MaxAnalystsLimit,
	})
	server := web.NewServer(cfg.Server, handler, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Live-reload the reloadable settings while serving. An invalid
	// edit is logged and ignored; the running config stays in effect.
	if path := loader.ConfigFileUsed(); path != "" {
		watcher := config.NewWatcher(path, func(next *config.Config) {
			logger.SetLevel(next.Log.Level)
			svc.UpdateFeedbackVocabulary(next.Workflow.AffirmativeTerms)
			logger.Info("config file reloaded", "path", path, "log_level", next.Log.Level)
		})
		go func() {
			if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	logger.Info("chorus starting",
		"version", appVersion,
		"checkpoint_backend", cfg.Checkpoint.Backend,
		"model_provider", cfg.Model.Provider)
	return server.Run(ctx)
}
