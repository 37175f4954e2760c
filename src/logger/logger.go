package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging throughout the application.
// User-facing output does not go through a Logger; see package ui.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// SilentLogger discards all log messages.
// Used by tests and by the MCP server, whose stdout carries the protocol.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

// ZapLogger adapts a zap sugared logger to Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: l.Sugar()}
}

// NewFileLogger builds a production zap logger writing JSON lines to
// <dir>/cameio.log, or a development logger on stderr when debug is set.
func NewFileLogger(dir string, debug bool) (*ZapLogger, error) {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{filepath.Join(dir, "cameio.log")}
		config.ErrorOutputPaths = []string{filepath.Join(dir, "cameio.log")}
	}

	l, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return NewZapLogger(l), nil
}

func (z *ZapLogger) Info(msg string, args ...interface{}) {
	z.sugar.Infof(msg, args...)
}

func (z *ZapLogger) Error(msg string, args ...interface{}) {
	z.sugar.Errorf(msg, args...)
}

func (z *ZapLogger) Debug(msg string, args ...interface{}) {
	z.sugar.Debugf(msg, args...)
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.sugar.Sync()
}
