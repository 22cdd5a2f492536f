package utils_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wheresmywater/backend/pkg/utils"
)

func TestTTLMap(t *testing.T) {
	t.Parallel()

	ttl := 100 * time.Millisecond

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()

		m := utils.NewTTLMap[string, int](ttl)
		defer m.Close()

		m.Set("a", 1)
		value, ok := m.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, value)
	})

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()

		m := utils.NewTTLMap[string, int](ttl)
		defer m.Close()

		m.Set("a", 1)
		time.Sleep(ttl + 50*time.Millisecond)

		_, ok := m.Get("a")
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		m := utils.NewTTLMap[string, int](ttl)
		defer m.Close()

		m.Set("a", 1)
		m.Delete("a")

		_, ok := m.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		m := utils.NewTTLMap[string, int](ttl)
		defer m.Close()

		value, ok := m.Get("missing")
		assert.False(t, ok)
		assert.Zero(t, value)
	})

	t.Run("overwrite", func(t *testing.T) {
		t.Parallel()

		m := utils.NewTTLMap[string, int](ttl)
		defer m.Close()

		m.Set("a", 1)
		m.Set("a", 2)
		value, ok := m.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, value)
	})

	t.Run("sweeper drops expired entries", func(t *testing.T) {
		t.Parallel()

		m := utils.NewTTLMap[string, int](ttl)
		defer m.Close()

		m.Set("a", 1)
		assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 20*time.Millisecond)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()

		m := utils.NewTTLMap[string, int](ttl)
		m.Close()
		m.Close()
	})
}

func TestTTLMapGetOrSet(t *testing.T) {
	t.Parallel()

	t.Run("creates once", func(t *testing.T) {
		t.Parallel()

		m := utils.NewTTLMap[string, *int](time.Minute)
		defer m.Close()

		var calls atomic.Int32
		create := func() *int {
			calls.Add(1)
			v := 7
			return &v
		}

		first := m.GetOrSet("k", create)
		second := m.GetOrSet("k", create)

		assert.Same(t, first, second)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("recreates after expiry", func(t *testing.T) {
		t.Parallel()

		ttl := 50 * time.Millisecond
		m := utils.NewTTLMap[string, int](ttl)
		defer m.Close()

		assert.Equal(t, 1, m.GetOrSet("k", func() int { return 1 }))
		time.Sleep(ttl + 30*time.Millisecond)
		assert.Equal(t, 2, m.GetOrSet("k", func() int { return 2 }))
	})

	t.Run("concurrent callers share one value", func(t *testing.T) {
		t.Parallel()

		m := utils.NewTTLMap[string, *int](time.Minute)
		defer m.Close()

		var (
			wg    sync.WaitGroup
			calls atomic.Int32
			seen  sync.Map
		)
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v := m.GetOrSet("shared", func() *int {
					calls.Add(1)
					n := i
					return &n
				})
				seen.Store(v, struct{}{})
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())

		distinct := 0
		seen.Range(func(_, _ any) bool {
			distinct++
			return true
		})
		assert.Equal(t, 1, distinct)
	})
}
