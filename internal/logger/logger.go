// Package logger builds the zap logger used across docket.
// Console output is used for interactive terminals and development,
// JSON for production. --verbose forces debug level.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Environments accepted by New.
const (
	EnvDev  = "dev"
	EnvProd = "prod"
	EnvAuto = "auto"
)

// New creates a zap logger for the given environment.
// "auto" selects dev when stderr is a terminal and prod otherwise.
// level (if non-empty) overrides the default level: debug, info, warn, error.
// Logs always go to stderr; stdout is reserved for command output and
// the MCP stdio transport.
func New(env, level string, verbose bool) (*zap.Logger, error) {
	if env == "" || env == EnvAuto {
		env = EnvProd
		if term.IsTerminal(int(os.Stderr.Fd())) {
			env = EnvDev
		}
	}

	var cfg zap.Config
	switch env {
	case EnvProd:
		cfg = zap.NewProductionConfig()
	case EnvDev, "local":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
