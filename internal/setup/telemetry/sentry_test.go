package telemetry_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheresmywater/backend/internal/setup/config"
	"github.com/wheresmywater/backend/internal/setup/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newCapturingHub returns a hub whose events are collected instead of sent.
func newCapturingHub(t *testing.T) (*sentry.Hub, func() []*sentry.Event) {
	t.Helper()

	var (
		mu     sync.Mutex
		events []*sentry.Event
	)

	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, event)
			return nil
		},
	})
	require.NoError(t, err)

	return sentry.NewHub(client, sentry.NewScope()), func() []*sentry.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]*sentry.Event(nil), events...)
	}
}

func TestSentryCoreForwardsErrors(t *testing.T) {
	t.Parallel()

	hub, captured := newCapturingHub(t)
	logger := zap.New(telemetry.NewSentryCore(zapcore.DebugLevel, hub), zap.AddCaller())

	logger.Info("Vote recorded")
	logger.Warn("Slow query")
	logger.Error("Failed to update fountain filter",
		zap.Error(errors.New("conflict")),
		zap.String("fountainId", "f-1"),
	)

	events := captured()
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, sentry.LevelError, event.Level)
	assert.Equal(t, "Failed to update fountain filter", event.Message)
	require.Len(t, event.Exception, 1)
	assert.Equal(t, "Failed to update fountain filter: conflict", event.Exception[0].Value)
	assert.Equal(t, "TestSentryCoreForwardsErrors", event.Exception[0].Type)
	assert.Equal(t, "f-1", event.Extra["fountainId"])
	assert.NotContains(t, event.Extra, "error")
}

func TestSentryCoreRespectsLevelEnabler(t *testing.T) {
	t.Parallel()

	hub, captured := newCapturingHub(t)
	logger := zap.New(telemetry.NewSentryCore(zapcore.FatalLevel, hub))

	logger.Error("Ignored")
	assert.Empty(t, captured())
}

func TestSetupSentryDisabledWithoutDSN(t *testing.T) {
	t.Parallel()

	flush, err := telemetry.SetupSentry(&config.Sentry{}, "rest")
	require.NoError(t, err)
	assert.True(t, flush(0))
}
