package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port          int      `envconfig:"PORT" default:"8080"`
	DataPath      string   `envconfig:"DATA_PATH" default:"/data"`
	DBPath        string   `envconfig:"DB_PATH"`
	JWTSecret     string   `envconfig:"JWT_SECRET"`
	AdminUsername string   `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPassword string   `envconfig:"ADMIN_PASSWORD" default:"admin"`
	SubtitlePath  string   `envconfig:"SUBTITLE_PATH"`
	CORSOrigins   []string `envconfig:"CORS_ORIGINS" default:"*"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogOutput string `envconfig:"LOG_OUTPUT" default:"stdout"`

	// RedisAddr enables the shared rate-limit cooldown when set.
	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	ProviderTimeout   time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"60s"`
	OpenRouterReferer string        `envconfig:"OPENROUTER_REFERER"`
	OpenRouterTitle   string        `envconfig:"OPENROUTER_TITLE" default:"Subtitle Translator"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataPath, "subtrans.db")
	}
	if cfg.SubtitlePath == "" {
		cfg.SubtitlePath = filepath.Join(cfg.DataPath, "subtitles")
	}

	origins := make([]string, 0, len(cfg.CORSOrigins))
	for _, o := range cfg.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cfg.CORSOrigins = origins

	// JWT secret: require explicit setting or generate random
	if cfg.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate JWT secret: %w", err)
		}
		cfg.JWTSecret = hex.EncodeToString(b)
		log.Warn().Msg("JWT_SECRET not set, using random secret. Sessions will not survive restarts.")
	}

	return &cfg, nil
}

// LockPath is the file guarding CLI batch runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataPath, "translate.lock")
}
