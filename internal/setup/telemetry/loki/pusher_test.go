package loki_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheresmywater/backend/internal/setup/config"
	"github.com/wheresmywater/backend/internal/setup/telemetry/loki"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type pushed struct {
	Streams []struct {
		Stream map[string]string `json:"stream"`
		Values [][2]string       `json:"values"`
	} `json:"streams"`
}

type lokiServer struct {
	mu       sync.Mutex
	requests []pushed
	users    []string
}

func (s *lokiServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gz, err := gzip.NewReader(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(gz)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req pushed
	if err := sonic.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, _, _ := r.BasicAuth()

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.users = append(s.users, user)
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *lokiServer) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lines []string
	for _, req := range s.requests {
		for _, st := range req.Streams {
			for _, v := range st.Values {
				lines = append(lines, v[1])
			}
		}
	}
	return lines
}

func TestPusherShipsOnStop(t *testing.T) {
	t.Parallel()

	srv := &lokiServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	pusher := loki.NewPusher(context.Background(), config.Loki{
		Enabled:        true,
		URL:            ts.URL,
		BatchMaxSize:   100,
		BatchMaxWaitMS: 60000,
		Labels:         map[string]string{"app": "wheresmywater"},
		Username:       "user",
		Password:       "pass",
	})

	logger := zap.New(loki.NewCore(zapcore.InfoLevel, pusher)).With(zap.String("component", "test"))
	logger.Info("Fountain filter changed", zap.String("to", "green"))
	logger.Debug("not shipped")

	pusher.Stop()

	lines := srv.lines()
	require.Len(t, lines, 1)

	var line map[string]any
	require.NoError(t, sonic.UnmarshalString(lines[0], &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "Fountain filter changed", line["msg"])

	fields, ok := line["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "green", fields["to"])
	assert.Equal(t, "test", fields["component"])

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "wheresmywater", srv.requests[0].Streams[0].Stream["app"])
	assert.Equal(t, "user", srv.users[0])
}

func TestPusherFlushesFullBatch(t *testing.T) {
	t.Parallel()

	srv := &lokiServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	pusher := loki.NewPusher(context.Background(), config.Loki{
		URL:            ts.URL,
		BatchMaxSize:   2,
		BatchMaxWaitMS: 60000,
	})
	defer pusher.Stop()

	logger := zap.New(loki.NewCore(zapcore.InfoLevel, pusher))
	logger.Info("one")
	logger.Info("two")

	assert.Eventually(t, func() bool {
		return len(srv.lines()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPusherCountsFailures(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	pusher := loki.NewPusher(context.Background(), config.Loki{URL: ts.URL, BatchMaxSize: 1})

	zap.New(loki.NewCore(zapcore.InfoLevel, pusher)).Info("lost")
	pusher.Stop()

	assert.Equal(t, int64(1), pusher.Failed())
}
