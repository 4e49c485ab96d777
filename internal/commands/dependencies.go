package commands

import (
	"go.uber.org/zap"

	"madipath/internal/config"
	"madipath/internal/core"
	"madipath/internal/credentials"
	"madipath/internal/llm"
	"madipath/internal/logger"
	"madipath/internal/view"
)

// deps is the object graph shared by every command.
type deps struct {
	cfg    *config.Config
	log    *zap.Logger
	keys   *credentials.Store
	gate   *core.Gate
	triage *core.TriageService
	links  view.Links
}

func loadDeps() (*deps, error) {
	cfg, err := config.Load(configFlag, config.WithProvider(providerFlag))
	if err != nil {
		return nil, err
	}
	return newDeps(cfg, logger.New(cfg.Logging.Level, cfg.Logging.Format)), nil
}

func newDeps(cfg *config.Config, log *zap.Logger) *deps {
	keys := credentials.NewStore(credentials.Sources{
		KeyFile:    cfg.Credentials.KeyFile,
		EnvFile:    cfg.Credentials.EnvFile,
		EnvVar:     cfg.Credentials.EnvVar,
		Configured: cfg.APIKey(),
	})
	triage := core.NewTriageService(newClient(cfg, keys), keys, log)
	triage.Timeout = config.GetDuration(cfg.Triage.Timeout)

	return &deps{
		cfg:    cfg,
		log:    log,
		keys:   keys,
		gate:   core.NewGate(keys, log),
		triage: triage,
		links: view.Links{
			MapsSearchURL:    cfg.Links.MapsSearchURL,
			DoctorBookingURL: cfg.Links.DoctorBookingURL,
		},
	}
}

// newClient returns the model client for the configured provider.
func newClient(cfg *config.Config, keys llm.KeySource) llm.Client {
	if cfg.Triage.Provider == config.ProviderOpenAI {
		return llm.NewOpenAIClient(keys, llm.OpenAIConfig{
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		})
	}
	return llm.NewGeminiClient(keys, llm.GeminiConfig{
		Model:          cfg.Gemini.Model,
		ThinkingBudget: int32(cfg.Gemini.ThinkingBudget),
		BaseURL:        cfg.Gemini.BaseURL,
	})
}
