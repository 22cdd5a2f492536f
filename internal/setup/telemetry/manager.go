package telemetry

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/wheresmywater/backend/internal/setup/config"
	"github.com/wheresmywater/backend/internal/setup/telemetry/logger"
	"github.com/wheresmywater/backend/internal/setup/telemetry/loki"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceType represents the type of service being initialized.
type ServiceType int

const (
	ServiceREST ServiceType = iota
	ServiceWorker
	ServiceDB
)

// String returns the component name of the service.
func (s ServiceType) String() string {
	switch s {
	case ServiceREST:
		return "rest"
	case ServiceWorker:
		return "worker"
	case ServiceDB:
		return "db"
	default:
		return "unknown"
	}
}

// Manager handles the creation and management of log files and directories.
// Each run writes to its own timestamped session directory.
type Manager struct {
	lokiPusher        *loki.Pusher
	instanceID        string
	componentName     string
	currentSessionDir string
	logDir            string
	level             string
	maxLogsToKeep     int
	maxLogLines       int
	writers           []*logger.LogRotator
}

// NewManager creates a new Manager instance.
func NewManager(
	ctx context.Context, serviceType ServiceType, logDir string,
	debugCfg *config.Debug, lokiCfg *config.Loki, workerType string,
) *Manager {
	instanceID := uuid.New().String()

	componentName := serviceType.String()
	if serviceType == ServiceWorker && workerType != "" {
		componentName = workerType + "_worker"
	}

	manager := &Manager{
		instanceID:    instanceID,
		componentName: componentName,
		logDir:        logDir,
		level:         debugCfg.LogLevel,
		maxLogsToKeep: max(debugCfg.MaxLogsToKeep, 1),
		maxLogLines:   debugCfg.MaxLogLines,
	}

	if manager.level == "" {
		manager.level = "info"
	}
	if manager.maxLogLines <= 0 {
		manager.maxLogLines = 100000
	}

	if lokiCfg != nil && lokiCfg.Enabled && lokiCfg.URL != "" {
		labels := make(map[string]string, len(lokiCfg.Labels)+2)
		maps.Copy(labels, lokiCfg.Labels)
		labels["component"] = componentName
		labels["instance_id"] = instanceID

		withLabels := *lokiCfg
		withLabels.Labels = labels
		manager.lokiPusher = loki.NewPusher(ctx, withLabels)
	}

	return manager
}

// Stop flushes pending Loki batches and closes log files.
func (lm *Manager) Stop() {
	if lm.lokiPusher != nil {
		lm.lokiPusher.Stop()
	}

	for _, w := range lm.writers {
		_ = w.Sync()
		_ = w.Close()
	}
}

// GetLoggers initializes the main and database loggers.
func (lm *Manager) GetLoggers() (*zap.Logger, *zap.Logger, error) {
	if err := lm.setupLogDirectories(); err != nil {
		return nil, nil, err
	}

	warnLevel := zapcore.WarnLevel

	mainLogger, err := lm.initLogger(filepath.Join(lm.currentSessionDir, "main.log"), &warnLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize main logger: %w", err)
	}

	dbLogger, err := lm.initLogger(filepath.Join(lm.currentSessionDir, "database.log"), &warnLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database logger: %w", err)
	}

	return mainLogger.Named(lm.componentName), dbLogger.Named(lm.componentName), nil
}

// GetWorkerLogger creates a logger writing to its own file in the session directory.
func (lm *Manager) GetWorkerLogger(name string) *zap.Logger {
	sessionDir := lm.getOrCreateSessionDir()

	workerLogger, err := lm.initLogger(filepath.Join(sessionDir, name+".log"), nil)
	if err != nil {
		return zap.NewNop()
	}

	return workerLogger.Named(name)
}

// GetCurrentSessionDir returns the current session directory.
func (lm *Manager) GetCurrentSessionDir() string {
	return lm.getOrCreateSessionDir()
}

// GetInstanceID returns the unique instance identifier for this program run.
func (lm *Manager) GetInstanceID() string {
	return lm.instanceID
}

// setupLogDirectories rotates old sessions and creates a new session directory.
func (lm *Manager) setupLogDirectories() error {
	if err := os.MkdirAll(lm.logDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	if err := lm.rotateLogSessions(); err != nil {
		return fmt.Errorf("failed to rotate log sessions: %w", err)
	}

	lm.currentSessionDir = filepath.Join(lm.logDir, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(lm.currentSessionDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	return nil
}

// getOrCreateSessionDir returns the current session directory, creating one if needed.
func (lm *Manager) getOrCreateSessionDir() string {
	if lm.currentSessionDir != "" {
		return lm.currentSessionDir
	}

	if err := lm.setupLogDirectories(); err != nil {
		return lm.logDir
	}

	return lm.currentSessionDir
}

// initLogger creates a zap logger writing to path, plus Loki and OpenTelemetry
// when available. lokiMinLevel overrides the level shipped to Loki.
func (lm *Manager) initLogger(path string, lokiMinLevel *zapcore.Level) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(lm.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	rotator, err := logger.OpenLogRotator(path, lm.maxLogLines)
	if err != nil {
		return nil, err
	}
	lm.writers = append(lm.writers, rotator)

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), rotator, zapLevel),
		NewCore(zapLevel),
	}

	if lm.lokiPusher != nil {
		lokiLevel := zapLevel
		if lokiMinLevel != nil {
			lokiLevel = *lokiMinLevel
		}

		cores = append(cores, loki.NewCore(lokiLevel, lm.lokiPusher))
	}

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		cores = append(cores, NewSentryCore(zapcore.ErrorLevel, hub))
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Development(),
	), nil
}

// rotateLogSessions removes the oldest sessions beyond maxLogsToKeep,
// leaving room for the session about to be created.
func (lm *Manager) rotateLogSessions() error {
	sessions, err := filepath.Glob(filepath.Join(lm.logDir, "*"))
	if err != nil {
		return err
	}

	keep := lm.maxLogsToKeep - 1
	if len(sessions) <= keep {
		return nil
	}

	modTimes := make(map[string]time.Time, len(sessions))
	for _, session := range sessions {
		if info, err := os.Stat(session); err == nil {
			modTimes[session] = info.ModTime()
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return modTimes[sessions[i]].Before(modTimes[sessions[j]])
	})

	for _, session := range sessions[:len(sessions)-keep] {
		if err := os.RemoveAll(session); err != nil {
			return err
		}
	}

	return nil
}
