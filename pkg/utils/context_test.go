package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wheresmywater/backend/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextSleep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		duration    time.Duration
		cancelAfter time.Duration
		expected    utils.SleepResult
	}{
		{
			name:     "sleep completes normally",
			duration: 10 * time.Millisecond,
			expected: utils.SleepCompleted,
		},
		{
			name:        "context cancelled before sleep completes",
			duration:    time.Second,
			cancelAfter: 10 * time.Millisecond,
			expected:    utils.SleepCancelled,
		},
		{
			name:     "zero duration sleep",
			expected: utils.SleepCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			if tt.cancelAfter > 0 {
				time.AfterFunc(tt.cancelAfter, cancel)
			}

			assert.Equal(t, tt.expected, utils.ContextSleep(ctx, tt.duration))
		})
	}
}

func TestContextSleepWithLog(t *testing.T) {
	t.Parallel()

	t.Run("logs on cancel", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zap.InfoLevel)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		result := utils.ContextSleepWithLog(ctx, time.Second, zap.New(core), "stopping")
		assert.Equal(t, utils.SleepCancelled, result)
		assert.Equal(t, 1, logs.FilterMessage("stopping").Len())
	})

	t.Run("silent on completion", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zap.InfoLevel)
		result := utils.ContextSleepWithLog(t.Context(), time.Millisecond, zap.New(core), "stopping")
		assert.Equal(t, utils.SleepCompleted, result)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("empty message is not logged", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zap.InfoLevel)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		utils.ContextSleepWithLog(ctx, time.Second, zap.New(core), "")
		assert.Equal(t, 0, logs.Len())
	})
}

func TestContextGuard(t *testing.T) {
	t.Parallel()

	assert.False(t, utils.ContextGuard(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.True(t, utils.ContextGuard(ctx))
}

func TestIntervalSleep(t *testing.T) {
	t.Parallel()

	assert.True(t, utils.IntervalSleep(t.Context(), time.Millisecond, zap.NewNop(), "purge"))

	core, logs := observer.New(zap.InfoLevel)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	assert.False(t, utils.IntervalSleep(ctx, time.Second, zap.New(core), "purge"))
	assert.Equal(t, 1, logs.FilterMessage("Context cancelled during pause, stopping purge").Len())
}
