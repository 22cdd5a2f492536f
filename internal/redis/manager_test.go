package redis_test

import (
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheresmywater/backend/internal/redis"
	"github.com/wheresmywater/backend/internal/setup/config"
	"go.uber.org/zap"
)

func TestManagerGetClient(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	manager := redis.NewManager(&config.Redis{Host: mr.Host(), Port: port}, zap.NewNop())
	defer manager.Close()

	client, err := manager.GetClient(redis.WorkerStatusDBIndex)
	require.NoError(t, err)

	again, err := manager.GetClient(redis.WorkerStatusDBIndex)
	require.NoError(t, err)
	assert.Same(t, client, again)

	err = client.Do(t.Context(), client.B().Set().Key("k").Value("v").Build()).Error()
	require.NoError(t, err)

	mr.Select(redis.WorkerStatusDBIndex)
	mr.CheckGet(t, "k", "v")
}
