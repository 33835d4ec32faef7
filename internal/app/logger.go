package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. Production deployments get
// JSON regardless of LOG_FORMAT so log shipping never depends on an env
// override; elsewhere the format follows the config, defaulting to text.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	useJSON := cfg.IsProduction()
	if cfg != nil && cfg.LogFormat == "json" {
		useJSON = true
	}
	if useJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
