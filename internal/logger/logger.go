// Package logger builds the zap loggers used across the server.
//
// Loggers are injected, usually Named per component:
//
//	log := logger.Must("info").Named("catalog")
//
// Tests use the loggertest subpackage, which writes through testing.TB.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production logger at level ("debug", "info", "warn", "error").
func New(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level.SetLevel(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Must is New that falls back to info level on a bad level string.
func Must(level string) *zap.SugaredLogger {
	l, err := New(level)
	if err != nil {
		l, _ = New("info")
		l.Warnw("invalid log level, using info", "level", level, "err", err)
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
