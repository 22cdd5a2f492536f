package telemetry

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/wheresmywater/backend/internal/setup/config"
	"go.uber.org/zap/zapcore"
)

// SetupSentry initializes the global Sentry client. The returned function
// flushes buffered events. Reporting stays disabled when no DSN is configured.
func SetupSentry(cfg *config.Sentry, component string) (func(time.Duration) bool, error) {
	if cfg.DSN == "" {
		return func(time.Duration) bool { return true }, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     "wheresmywater@" + ServiceVersion,
		ServerName:  component,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	return sentry.Flush, nil
}

// SentryCore implements zapcore.Core to forward errors to Sentry.
type SentryCore struct {
	zapcore.LevelEnabler
	hub *sentry.Hub
}

// NewSentryCore creates a Core that reports entries through hub.
func NewSentryCore(enab zapcore.LevelEnabler, hub *sentry.Hub) *SentryCore {
	return &SentryCore{LevelEnabler: enab, hub: hub}
}

// With adds structured context to the Core.
func (c *SentryCore) With(_ []zapcore.Field) zapcore.Core {
	return c
}

// Check determines whether the supplied Entry should be logged.
func (c *SentryCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// Write reports error and fatal entries as Sentry exception events.
func (c *SentryCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if ent.Level < zapcore.ErrorLevel || c.hub.Client() == nil {
		return nil
	}

	c.hub.WithScope(func(scope *sentry.Scope) {
		enc := zapcore.NewMapObjectEncoder()

		var errorValues []string
		for i := range fields {
			if fields[i].Type == zapcore.ErrorType {
				if err, ok := fields[i].Interface.(error); ok {
					errorValues = append(errorValues, err.Error())
				}
			}
			fields[i].AddTo(enc)
		}

		for k, v := range enc.Fields {
			if k != "error" {
				scope.SetExtra(k, v)
			}
		}

		level := sentryLevel(ent.Level)
		scope.SetLevel(level)

		value := ent.Message
		if len(errorValues) > 0 {
			value = fmt.Sprintf("%s: %s", ent.Message, strings.Join(errorValues, "; "))
		}

		event := sentry.NewEvent()
		event.Level = level
		event.Message = ent.Message
		event.Exception = []sentry.Exception{{
			Value:      value,
			Type:       callerFunc(ent.Caller.Function),
			Module:     filepath.Dir(ent.Caller.File),
			Stacktrace: sentry.NewStacktrace(),
		}}

		c.hub.CaptureEvent(event)
	})

	return nil
}

// Sync implements zapcore.Core.
func (c *SentryCore) Sync() error {
	return nil
}

func sentryLevel(lvl zapcore.Level) sentry.Level {
	switch lvl {
	case zapcore.ErrorLevel:
		return sentry.LevelError
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return sentry.LevelFatal
	default:
		return sentry.LevelInfo
	}
}

// callerFunc strips the package path from a fully qualified function name.
func callerFunc(function string) string {
	if i := strings.LastIndexByte(function, '.'); i > -1 {
		return function[i+1:]
	}
	return function
}
