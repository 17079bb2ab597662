package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/db"
	"github.com/video-stream/subtrans/internal/history"
	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/retry"
	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

// app holds the services shared by every command.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	database   *db.Database
	history    *history.Store
	translator *translate.Service
	cooldown   retry.Cooldown
	closers    []io.Closer
}

// newApp loads configuration and opens storage. Interactive commands log
// human-readable lines to stderr so stdout stays clean.
func newApp(ctx context.Context, interactive, verbose bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput}
	if interactive {
		logCfg.Format = "console"
		if logCfg.Output == "" || logCfg.Output == "stdout" {
			logCfg.Output = "stderr"
		}
		if !verbose {
			logCfg.Level = "warn"
		}
	}
	if verbose {
		logCfg.Level = "debug"
	}
	logger, logCloser, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
		a.Close()
		return nil, fmt.Errorf("create data path: %w", err)
	}

	a.database, err = db.NewSQLite(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, a.database)

	a.history, err = history.NewStore(ctx, a.database)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.translator = translate.NewService(a.serviceConfig(a.database.APIKeys(translate.KnownProviders)))

	if cfg.RedisAddr != "" {
		rc, err := retry.NewRedisCooldown(cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.cooldown = rc
		a.closers = append(a.closers, rc)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("sharing rate-limit cooldown through redis")
	} else {
		a.cooldown = retry.NewMemoryCooldown()
	}

	return a, nil
}

func (a *app) serviceConfig(keys map[string]string) translate.ServiceConfig {
	return translate.ServiceConfig{
		Keys:              keys,
		Timeout:           a.cfg.ProviderTimeout,
		OpenRouterReferer: a.cfg.OpenRouterReferer,
		OpenRouterTitle:   a.cfg.OpenRouterTitle,
	}
}

// reloadKeys rebuilds the providers after API keys change.
func (a *app) reloadKeys(keys map[string]string) {
	a.translator.Configure(a.serviceConfig(keys))
	a.logger.Info().Strs("providers", a.translator.Names()).Msg("providers reconfigured")
}

func (a *app) defaultSettings() (config.TranslationSettings, error) {
	return a.database.TranslationSettings(config.DefaultTranslationSettings(translate.DefaultPromptTemplate))
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}
