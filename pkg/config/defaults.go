package config

import (
	"strings"
	"time"

	"github.com/module/nfsclient/internal/bytesize"
)

// ApplyDefaults fills any zero-valued field with its documented default.
// Explicit values (from file or environment) are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyClientDefaults(&cfg.Client)
	applyPoolDefaults(&cfg.Pool)
	applyHealthDefaults(&cfg.Health)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyClientDefaults(cfg *ClientConfig) {
	if cfg.Version == 0 {
		cfg.Version = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.CharacterEncoding == "" {
		cfg.CharacterEncoding = "ASCII"
	}
	if cfg.MaxTransferSize == 0 {
		cfg.MaxTransferSize = 64 * bytesize.KiB
	}
}

func applyPoolDefaults(cfg *PoolConfig) {
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 8
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 60 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyHealthDefaults(cfg *HealthConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
}

// GetDefaultConfig returns a Config with every field set to its
// documented default except Server/Export, which the caller must
// supply (they have no sensible default).
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
