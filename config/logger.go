package config

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the process-wide zerolog logger. Console output in
// development, JSON elsewhere.
func NewLogger() zerolog.Logger {
	env := os.Getenv("ENV")

	level := zerolog.InfoLevel
	if lvlStr := os.Getenv("LOG_LEVEL"); lvlStr != "" {
		if lvl, err := zerolog.ParseLevel(lvlStr); err == nil {
			level = lvl
		}
	}

	var logger zerolog.Logger
	if env == "development" || env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
