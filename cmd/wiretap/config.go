package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/supergoodsystems/wiretap/pkg/store"
	"github.com/supergoodsystems/wiretap/pkg/store/redis"
	"github.com/supergoodsystems/wiretap/pkg/store/sqlite"
)

const defaultStore = "sqlite://wiretap.db"

// config is the YAML file given with --config. Flags win over it.
type config struct {
	Store      string `yaml:"store"`
	LogLevel   string `yaml:"logLevel"`
	LogFile    string `yaml:"logFile"`
	MaxRecords int    `yaml:"maxRecords"`

	RedactHeaders          []string `yaml:"redactHeaders"`
	RedactRequestBodyKeys  []string `yaml:"redactRequestBodyKeys"`
	RedactResponseBodyKeys []string `yaml:"redactResponseBodyKeys"`
	AllowedDomains         []string `yaml:"allowedDomains"`
	IgnorePaths            []string `yaml:"ignorePaths"`

	// Settings, when present, are used instead of those in the store.
	Settings *store.Settings `yaml:"settings"`
}

func loadConfig(path string) (*config, error) {
	c := &config{}
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// historyStore is a store the CLI can review and must close.
type historyStore interface {
	store.History
	Close() error
}

// openStore opens sqlite://path or redis://host:port/db.
func openStore(ctx context.Context, uri string, maxRecords int, log *zerolog.Logger) (historyStore, error) {
	switch {
	case strings.HasPrefix(uri, "sqlite://"):
		s, err := sqlite.Open(strings.TrimPrefix(uri, "sqlite://"), sqlite.Options{Logger: log, MaxRecords: maxRecords})
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(uri, "redis://"), strings.HasPrefix(uri, "rediss://"):
		s, err := redis.Open(ctx, uri, redis.Options{MaxRecords: int64(maxRecords)})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store %q, expected sqlite://path or redis://host:port", uri)
	}
}
