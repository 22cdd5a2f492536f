package telemetry

import (
	"context"

	"github.com/uptrace/uptrace-go/uptrace"
	"github.com/wheresmywater/backend/internal/setup/config"
	"go.uber.org/zap"
)

// ServiceVersion is reported with every trace.
const ServiceVersion = "1.0.0"

// SetupTracing configures the OpenTelemetry SDK to export to Uptrace.
// The returned function flushes and stops the exporters. Tracing stays
// disabled when no DSN is configured.
func SetupTracing(cfg *config.Telemetry, component string, logger *zap.Logger) func(context.Context) error {
	if cfg.DSN == "" {
		logger.Debug("Tracing disabled, no DSN configured")
		return func(context.Context) error { return nil }
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "wheresmywater"
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.DSN),
		uptrace.WithServiceName(serviceName+"-"+component),
		uptrace.WithServiceVersion(ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.Environment),
	)

	logger.Info("Tracing enabled", zap.String("service", serviceName+"-"+component))

	return uptrace.Shutdown
}
