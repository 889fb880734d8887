// Package logging wraps a zap.SugaredLogger behind the small call shape the
// run loop and its domain packages use throughout: Debugf/Infof/Warnf/Errorf.
package logging

import "go.uber.org/zap"

// Logger is the logger used across this module, a thin wrapper over a
// *zap.SugaredLogger. Tests and embedders pass their own zap logger to New,
// or use NewNop.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New wraps an existing *zap.SugaredLogger.
func New(sugar *zap.SugaredLogger) *Logger {
	if sugar == nil {
		sugar = zap.NewNop().Sugar()
	}
	return &Logger{sugar: sugar}
}

// NewProduction builds a Logger on top of zap's production configuration.
func NewProduction() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(z.Sugar()), nil
}

// NewNop returns a Logger that discards everything, for tests and examples
// that don't care about log output.
func NewNop() *Logger {
	return New(zap.NewNop().Sugar())
}

func (l *Logger) Debugf(template string, args ...any) {
	l.sugar.Debugf(template, args...)
}

func (l *Logger) Infof(template string, args ...any) {
	l.sugar.Infof(template, args...)
}

func (l *Logger) Warnf(template string, args ...any) {
	l.sugar.Warnf(template, args...)
}

func (l *Logger) Errorf(template string, args ...any) {
	l.sugar.Errorf(template, args...)
}

// Sync flushes any buffered log entries. Callers should defer Sync at
// process exit, per zap convention.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
