package cmd

import (
	"fmt"

	"github.com/verity-labs/chorus/internal/checkpoint"
	"github.com/verity-labs/chorus/internal/config"
	"github.com/verity-labs/chorus/internal/core"
	"github.com/verity-labs/chorus/internal/export"
	"github.com/verity-labs/chorus/internal/logging"
	"github.com/verity-labs/chorus/internal/model"
	"github.com/verity-labs/chorus/internal/service"
	"github.com/verity-labs/chorus/internal/workflow"
)

// loadConfig builds the effective configuration from flags, env and
// config file.
func loadConfig() (*config.Config, *config.Loader, error) {
	loader := config.NewLoaderWithViper(flagViper)
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

func buildLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// demoScript backs the scripted provider so the pipeline can be
// exercised without an API key.
var demoScript = []string{
	`[
  {"name": "Dr. Maya Chen", "role": "Domain Researcher", "affiliation": "Independent", "focus": "state of the art"},
  {"name": "Tom Alvarez", "role": "Industry Analyst", "affiliation": "Market Desk", "focus": "adoption and economics"},
  {"name": "Priya Nair", "role": "Risk Analyst", "affiliation": "Independent", "focus": "open problems and risks"}
]`,
	"## State of the Art\n\nScripted findings from the first analyst.",
	"## Adoption and Economics\n\nScripted findings from the second analyst.",
	"## Open Problems\n\nScripted findings from the third analyst.",
	"# Report\n\n## Introduction\n\nScripted synthesis of the panel's contributions.\n\n## Conclusion\n\nEnd of scripted report.",
}

func buildBackend(cfg *config.Config, logger *logging.Logger) (core.ModelBackend, error) {
	var backend core.ModelBackend
	switch cfg.Model.Provider {
	case "openai":
		backend = model.NewOpenAIBackend(model.OpenAIConfig{
			BaseURL:     cfg.Model.BaseURL,
			APIKey:      cfg.Model.APIKey,
			Model:       cfg.Model.Model,
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxTokens,
			Timeout:     cfg.Model.Timeout,
		})
	case "scripted":
		backend = model.NewScriptedBackend(demoScript...)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}

	policy := model.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Model.MaxRetries
	return model.NewRetryBackend(backend, policy, logger), nil
}

// buildService assembles the full stack. The returned close function
// releases the checkpoint store.
func buildService(cfg *config.Config, logger *logging.Logger) (*service.ReportService, func() error, error) {
	store, err := checkpoint.New(cfg.Checkpoint.Backend, cfg.Checkpoint.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening checkpoint store: %w", err)
	}

	backend, err := buildBackend(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	runner, err := workflow.NewRunner(store, backend, workflow.Options{
		Classifier: workflow.NewClassifier(cfg.Workflow.AffirmativeTerms),
		Logger:     logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	compiler := export.NewCompiler(cfg.Export.Dir, logger)
	return service.NewReportService(runner, compiler, logger), store.Close, nil
}
