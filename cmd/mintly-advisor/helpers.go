package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/umutugur/mintly-advisor/internal/advisor"
	"github.com/umutugur/mintly-advisor/internal/llm"
	"github.com/umutugur/mintly-advisor/internal/storage"
)

// databasePath resolves the configured database location, defaulting to
// the XDG data directory.
func databasePath() (string, error) {
	dbPath := viper.GetString("database.path")
	if dbPath != "" {
		return os.ExpandEnv(dbPath), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "mintly-advisor", "mintly.db"), nil
}

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initProvider builds the configured insight provider. Returns nil when
// AI is disabled, which serves fallback advice.
func initProvider() (llm.Provider, error) {
	switch mode := viper.GetString("llm.mode"); mode {
	case "", "off":
		return nil, nil
	case "manual":
		return advisor.NewManualTemplateProvider(), nil
	case "http":
		cfg := llm.Config{
			Endpoint:    viper.GetString("llm.endpoint"),
			APIKey:      viper.GetString("llm.api_key"),
			Model:       viper.GetString("llm.model"),
			Timeout:     viper.GetDuration("llm.timeout"),
			MaxAttempts: viper.GetInt("llm.max_attempts"),
			MaxTokens:   viper.GetInt("llm.max_tokens"),
			Temperature: viper.GetFloat64("llm.temperature"),
		}
		return llm.NewHTTPProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown llm.mode %q (expected off, manual, or http)", mode)
	}
}

// initService wires storage, provider, and cache into the insight service.
func initService(store *storage.SQLiteStorage, policy string) (*advisor.Service, error) {
	provider, err := initProvider()
	if err != nil {
		return nil, err
	}

	mergePolicy := advisor.PolicyMerge
	if policy == string(advisor.PolicyStrict) {
		mergePolicy = advisor.PolicyStrict
	}

	var ttl time.Duration
	if v := viper.GetDuration("advisor.cache_ttl"); v > 0 {
		ttl = v
	}

	return advisor.NewService(store, nil, advisor.ServiceConfig{
		Provider: provider,
		Cache:    advisor.NewInsightCache(),
		Policy:   mergePolicy,
		CacheTTL: ttl,
	}), nil
}
