package logging

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// New builds the service logger. Production gets JSON lines; everything
// else gets the console writer.
func New(appName, env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if env == "production" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339Nano,
		})
	}
	return logger.Level(lvl).With().
		Timestamp().
		Str("app", appName).
		Str("env", env).
		Logger()
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return zerolog.Nop()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// IntoContext injects a logger into context for downstream use.
func IntoContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
