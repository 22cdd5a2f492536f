package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// HeartbeatInterval is how often workers report their status.
	HeartbeatInterval = 10 * time.Second

	// HeartbeatTTL is how long a worker's status remains stored.
	HeartbeatTTL = 10 * time.Minute

	// StaleThreshold is how long before a silent worker is considered offline.
	StaleThreshold = 1 * time.Minute

	statusKeyPrefix = "worker:"
	scanCount       = 100
)

// Status represents a worker's current state.
type Status struct {
	WorkerID    string    `json:"workerId"`
	WorkerType  string    `json:"workerType"`
	LastSeen    time.Time `json:"lastSeen"`
	CurrentTask string    `json:"currentTask,omitempty"`
	Progress    int       `json:"progress"`
	IsHealthy   bool      `json:"isHealthy"`
}

// Online reports whether the worker sent a heartbeat recently.
func (s Status) Online(now time.Time) bool {
	return now.Sub(s.LastSeen) < StaleThreshold
}

// key returns the Redis key holding the status.
func (s Status) key() string {
	return fmt.Sprintf("%s%s:%s", statusKeyPrefix, s.WorkerType, s.WorkerID)
}

// Monitor stores and lists worker heartbeats in Redis.
type Monitor struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewMonitor creates a new worker status monitor.
func NewMonitor(client rueidis.Client, logger *zap.Logger) *Monitor {
	return &Monitor{
		client: client,
		logger: logger.Named("worker_monitor"),
	}
}

// ReportStatus stores a worker's status with a fresh LastSeen.
func (m *Monitor) ReportStatus(ctx context.Context, status Status) error {
	status.LastSeen = time.Now()

	data, err := sonic.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	err = m.client.Do(ctx, m.client.B().Set().Key(status.key()).Value(string(data)).Ex(HeartbeatTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to store status: %w", err)
	}

	return nil
}

// RemoveStatus deletes a worker's status, used on clean shutdown.
func (m *Monitor) RemoveStatus(ctx context.Context, status Status) error {
	if err := m.client.Do(ctx, m.client.B().Del().Key(status.key()).Build()).Error(); err != nil {
		return fmt.Errorf("failed to remove status: %w", err)
	}
	return nil
}

// GetAllStatuses returns every stored worker status ordered by type and id.
func (m *Monitor) GetAllStatuses(ctx context.Context) ([]Status, error) {
	var keys []string

	var cursor uint64
	for {
		entry, err := m.client.Do(ctx, m.client.B().Scan().Cursor(cursor).
			Match(statusKeyPrefix+"*").Count(scanCount).Build()).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker keys: %w", err)
		}

		keys = append(keys, entry.Elements...)

		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make(rueidis.Commands, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, m.client.B().Get().Key(key).Build())
	}

	statuses := make([]Status, 0, len(keys))

	for i, resp := range m.client.DoMulti(ctx, cmds...) {
		data, err := resp.AsBytes()
		if rueidis.IsRedisNil(err) {
			continue // expired between scan and get
		}
		if err != nil {
			m.logger.Error("Failed to get worker status", zap.String("key", keys[i]), zap.Error(err))
			continue
		}

		var status Status
		if err := sonic.Unmarshal(data, &status); err != nil {
			m.logger.Error("Failed to unmarshal worker status", zap.String("key", keys[i]), zap.Error(err))
			continue
		}

		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].WorkerType != statuses[j].WorkerType {
			return statuses[i].WorkerType < statuses[j].WorkerType
		}
		return statuses[i].WorkerID < statuses[j].WorkerID
	})

	return statuses, nil
}
