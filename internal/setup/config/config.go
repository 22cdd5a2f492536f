package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v1.0.0"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentAPIVersion    = 1
)

// Default voting values in seconds.
const (
	DefaultRevoteWindowSeconds = 7200
	DefaultRetentionSeconds    = 172800
	DefaultPurgeIntervalSecs   = 300
	DefaultPurgeBatchSize      = 1000
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	API    APIConfig
}

// CommonConfig contains configuration shared between the API, workers and tools.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Loki       Loki       `koanf:"loki"`
	Telemetry  Telemetry  `koanf:"telemetry"`
	Sentry     Sentry     `koanf:"sentry"`
	Voting     Voting     `koanf:"voting"`
}

// APIConfig contains REST API specific configuration.
type APIConfig struct {
	// Version of the api config.
	Version   int       `koanf:"version"`
	Server    Server    `koanf:"server"`
	Auth      Auth      `koanf:"auth"`
	IP        IP        `koanf:"ip"`
	RateLimit RateLimit `koanf:"rate_limit"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
	// Enable pprof debugging.
	EnablePprof bool `koanf:"enable_pprof"`
	// pprof server port.
	PprofPort int `koanf:"pprof_port"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Use TLS for the connection.
	SSL bool `koanf:"ssl"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
	// Apply pending migrations on startup instead of refusing to start.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Loki contains Loki logging configuration.
type Loki struct {
	// Enable Loki integration
	Enabled bool `koanf:"enabled"`
	// Loki server URL (without /loki/api/v1/push suffix)
	URL string `koanf:"url"`
	// Maximum number of log entries per batch
	BatchMaxSize int `koanf:"batch_max_size"`
	// Maximum time to wait before sending a batch (in milliseconds)
	BatchMaxWaitMS int `koanf:"batch_max_wait_ms"`
	// Labels added to all log streams
	Labels map[string]string `koanf:"labels"`
	// Basic authentication username (optional)
	Username string `koanf:"username"`
	// Basic authentication password (optional)
	Password string `koanf:"password"`
}

// Telemetry contains tracing configuration.
type Telemetry struct {
	// Uptrace DSN. Tracing is disabled when empty.
	DSN string `koanf:"dsn"`
	// Service name reported with traces.
	ServiceName string `koanf:"service_name"`
	// Deployment environment reported with traces.
	Environment string `koanf:"environment"`
}

// Sentry contains Sentry error tracking configuration.
type Sentry struct {
	// Sentry DSN for error reporting. Reporting is disabled when empty.
	DSN string `koanf:"dsn"`
	// Environment tag attached to events.
	Environment string `koanf:"environment"`
}

// Voting contains vote merging and retention configuration.
type Voting struct {
	// Seconds during which a repeated vote replaces the previous one.
	RevoteWindowSeconds int `koanf:"revote_window_seconds"`
	// Seconds a vote counts toward consensus before it expires.
	RetentionSeconds int `koanf:"retention_seconds"`
	// Seconds between purge runs.
	PurgeIntervalSeconds int `koanf:"purge_interval_seconds"`
	// Maximum votes deleted per purge batch.
	PurgeBatchSize int `koanf:"purge_batch_size"`
	// Maximum fountains resynced in parallel after a purge.
	ResyncConcurrency int `koanf:"resync_concurrency"`
}

// RevoteWindow returns the revote window as a duration.
func (v *Voting) RevoteWindow() time.Duration {
	return secondsOr(v.RevoteWindowSeconds, DefaultRevoteWindowSeconds)
}

// Retention returns the vote retention window as a duration.
func (v *Voting) Retention() time.Duration {
	return secondsOr(v.RetentionSeconds, DefaultRetentionSeconds)
}

// PurgeInterval returns the time between purge runs.
func (v *Voting) PurgeInterval() time.Duration {
	return secondsOr(v.PurgeIntervalSeconds, DefaultPurgeIntervalSecs)
}

// BatchSize returns the purge batch size.
func (v *Voting) BatchSize() int {
	if v.PurgeBatchSize <= 0 {
		return DefaultPurgeBatchSize
	}
	return v.PurgeBatchSize
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

// Server contains HTTP listener configuration.
type Server struct {
	// Host to listen on.
	Host string `koanf:"host"`
	// Port to listen on.
	Port int `koanf:"port"`
	// Read timeout in seconds.
	ReadTimeout int `koanf:"read_timeout"`
	// Write timeout in seconds.
	WriteTimeout int `koanf:"write_timeout"`
}

// Auth contains bearer token configuration.
type Auth struct {
	// HMAC secret used to verify access tokens.
	AccessTokenSecret string `koanf:"access_token_secret"`
	// Expected token issuer. Not checked when empty.
	Issuer string `koanf:"issuer"`
}

// IP contains client IP detection configuration.
type IP struct {
	// Enable checking of forwarded headers.
	EnableHeaderValidation bool `koanf:"enable_header_validation"`
	// Proxies whose forwarded headers are trusted (IPs or CIDRs).
	TrustedProxies []string `koanf:"trusted_proxies"`
	// Additional headers to check for the client IP.
	CustomHeaders []string `koanf:"custom_headers"`
}

// RateLimit contains per-IP rate limiting configuration.
type RateLimit struct {
	// Requests allowed per second.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	// Burst size.
	BurstSize int `koanf:"burst_size"`
	// Violations before an IP is blocked.
	StrikeLimit int `koanf:"strike_limit"`
	// Block duration in seconds.
	BlockSeconds int `koanf:"block_seconds"`
}

// DefaultConfigPaths returns the directories searched for config files.
func DefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return []string{
		".wheresmywater",
		homeDir + "/.wheresmywater/config",
		"/etc/wheresmywater/config",
		"/app/config",
		"config",
		".",
	}, nil
}

// LoadConfig loads the configuration from the default config paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	paths, err := DefaultConfigPaths()
	if err != nil {
		return nil, "", err
	}

	return LoadConfigFrom(paths)
}

// LoadConfigFrom loads every config file from the first path that has it.
func LoadConfigFrom(configPaths []string) (*Config, string, error) {
	var (
		config         Config
		usedConfigPath string
	)

	configFiles := []struct {
		name     string
		target   any
		version  func() int
		expected int
	}{
		{"common", &config.Common, func() int { return config.Common.Version }, CurrentCommonVersion},
		{"api", &config.API, func() int { return config.API.Version }, CurrentAPIVersion},
	}

	for _, cf := range configFiles {
		k := koanf.New(".")
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, cf.name)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, cf.name)
		}

		if err := k.Unmarshal("", cf.target); err != nil {
			return nil, "", fmt.Errorf("error unmarshaling %s config: %w", cf.name, err)
		}

		if err := checkConfigVersion(cf.name, cf.version(), cf.expected); err != nil {
			return nil, "", err
		}
	}

	return &config, usedConfigPath, nil
}

// checkConfigVersion validates the version of a config file.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/wheresmywater/backend/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
