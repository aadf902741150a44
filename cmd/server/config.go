package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setupAppLogger installs the JSON logger for cfg and records which settings
// the process started with. Secrets are reported by presence only.
func setupAppLogger(cfg *config.Config) (*slog.Logger, error) {
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"redis_addr", cfg.Redis.Addr,
		"max_tracked_operations", cfg.Bulk.MaxTrackedOperations,
		"undo_stack_size", cfg.Bulk.UndoStackSize)
	l.Debug("secrets",
		"database_url_present", cfg.Database.URL != "",
		"redis_password_present", cfg.Redis.Password != "",
		"jwt_secret_present", cfg.Auth.JWTSecret != "")
	return l, nil
}
