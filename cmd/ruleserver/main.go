package main

import (
	"context"
	"os"
	"strings"

	"github.com/fox-gonic/fox"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/config"
	"github.com/pipeops/ruleaudit/internal/registry"
	"github.com/pipeops/ruleaudit/internal/rule"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	log.Info().Msg("Starting rule registry server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setLogLevel(cfg.Logging.Level)

	ctx := context.Background()
	store, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize rule store")
	}

	router := fox.New()
	registry.NewApi(router, store)

	log.Info().Msgf("Starting rule registry on %s", cfg.Registry.BindAddr)
	if err := router.Run(cfg.Registry.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start rule registry failed")
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (registry.Store, error) {
	var bootstrap []*rule.Rule
	if cfg.Registry.RulesFile != "" {
		rules, err := rule.LoadRulesFile(cfg.Registry.RulesFile)
		if err != nil {
			return nil, err
		}
		log.Info().Int("rules", len(rules)).Str("file", cfg.Registry.RulesFile).Msg("loaded rules file")
		bootstrap = rules
	}

	if !cfg.Registry.UseDB {
		return registry.NewMemoryStore(bootstrap), nil
	}

	store, err := registry.NewPgStore(cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if len(bootstrap) > 0 {
		if err := store.UpsertRules(ctx, bootstrap); err != nil {
			return nil, err
		}
		log.Info().Int("rules", len(bootstrap)).Msg("bootstrapped rules into database")
	}
	return store, nil
}

func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
