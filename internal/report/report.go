// Package report provides the sinks that receive heal events.
package report

import (
	"go.uber.org/zap"

	"locator-healing/internal/ports"
	"locator-healing/pkg/logg"
)

const reporterName = "HealReport"

var (
	_ ports.Reporter = (*Logger)(nil)
	_ ports.Reporter = Nop{}
)

// Logger writes heal events as structured log lines. Successes are logged at
// info level with outcome=success so they can be filtered from plain info.
type Logger struct {
	logger *zap.Logger
}

func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{
		logger: logger.With(zap.String(logg.Layer, reporterName)),
	}
}

func (l *Logger) Info(message string) {
	l.logger.Info(message, zap.String("outcome", "info"))
}

func (l *Logger) Warning(message string) {
	l.logger.Warn(message, zap.String("outcome", "warning"))
}

func (l *Logger) Success(message string) {
	l.logger.Info(message, zap.String("outcome", "success"))
}

// Nop discards every event.
type Nop struct{}

func (Nop) Info(string)    {}
func (Nop) Warning(string) {}
func (Nop) Success(string) {}
