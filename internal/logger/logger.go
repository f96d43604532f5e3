package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide structured logger. It defaults to a no-op so
// packages and tests can log without calling Init first.
var Log = zap.NewNop()

// Init replaces the global logger. The level and encoder are taken from
// LOG_LEVEL and LOG_MODE (console|json) so deployments can tune output
// without a rebuild.
func Init() error {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(os.Getenv("LOG_MODE"), "console") {
		cfg = zap.NewDevelopmentConfig()
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn", "warning":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// Sync flushes buffered entries, typically deferred from main.
func Sync() {
	_ = Log.Sync()
}
