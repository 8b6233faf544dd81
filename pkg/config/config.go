// Package config loads nfsclient's connect, pool, and health settings
// from a YAML file, environment variables, and documented defaults.
// Environment variables override the file, which overrides the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/module/nfsclient/internal/bytesize"
	"github.com/module/nfsclient/pkg/client"
	"github.com/module/nfsclient/pkg/pool"
)

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR. Default: INFO.
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is "text" or "json". Default: text.
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output is "stdout", "stderr", or a file path. Default: stdout.
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ClientConfig mirrors pkg/client.Options, decoded from file/env so a
// connection's shape can be described declaratively instead of built in
// code.
type ClientConfig struct {
	// Version is 3 (NFSv3) or 4 (NFSv4.1). Default: 3.
	Version int `mapstructure:"version" yaml:"version" validate:"omitempty,oneof=3 4"`

	// UserID is the uid presented in credentials. Default: 0.
	UserID uint32 `mapstructure:"user_id" yaml:"user_id"`

	// GroupID is the gid presented alongside UserID. Default: 0.
	GroupID uint32 `mapstructure:"group_id" yaml:"group_id"`

	// Timeout bounds every RPC round trip absent a caller deadline.
	// Default: 60s.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// CharacterEncoding names the on-the-wire file name encoding.
	// Default: ASCII.
	CharacterEncoding string `mapstructure:"character_encoding" yaml:"character_encoding"`

	// UseSecurePort requests a privileged source port. Default: false;
	// ApplyDefaults leaves it as read, so it takes effect only when set
	// to true in the file or environment.
	UseSecurePort bool `mapstructure:"use_secure_port" yaml:"use_secure_port"`

	// UseHandleCache enables the file-handle/attribute cache. Default: false.
	UseHandleCache bool `mapstructure:"use_handle_cache" yaml:"use_handle_cache"`

	// NFSPort fixes the file-protocol port. 0 resolves it via the
	// Portmapper (v3) or uses 2049 directly (v4). Default: 0.
	NFSPort uint16 `mapstructure:"nfs_port" yaml:"nfs_port"`

	// MountPort fixes the v3 Mount service port. Ignored for v4.
	// Default: 0.
	MountPort uint16 `mapstructure:"mount_port" yaml:"mount_port"`

	// MaxTransferSize caps the count/data length Read and Write will hand
	// the wire in a single call. Accepts human-readable forms like "64Ki"
	// or "1Mi". Default: 64Ki.
	MaxTransferSize bytesize.ByteSize `mapstructure:"max_transfer_size" yaml:"max_transfer_size"`
}

// ToOptions converts a ClientConfig into pkg/client.Options.
func (c ClientConfig) ToOptions() client.Options {
	v := client.VersionV3
	if c.Version == int(client.VersionV4) {
		v = client.VersionV4
	}
	return client.Options{
		Version:           v,
		UserID:            c.UserID,
		GroupID:           c.GroupID,
		TimeoutMs:         uint32(c.Timeout / time.Millisecond),
		CharacterEncoding: c.CharacterEncoding,
		UseSecurePort:     c.UseSecurePort,
		UseHandleCache:    c.UseHandleCache,
		NFSPort:           c.NFSPort,
		MountPort:         c.MountPort,
		MaxTransferSize:   uint32(c.MaxTransferSize),
	}
}

// PoolConfig mirrors pkg/pool.Options.
type PoolConfig struct {
	// MaxPoolSize caps connections (idle + leased) per key. Default: 8.
	MaxPoolSize int `mapstructure:"max_pool_size" yaml:"max_pool_size" validate:"omitempty,gt=0"`

	// IdleTimeout is how long an idle connection survives before the
	// maintenance sweep retires it. Default: 5m.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// SweepInterval is how often the maintenance sweep runs. Default: 60s.
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// ToOptions converts a PoolConfig into pkg/pool.Options.
func (c PoolConfig) ToOptions() pool.Options {
	return pool.Options{
		MaxPoolSize:   c.MaxPoolSize,
		IdleTimeout:   c.IdleTimeout,
		SweepInterval: c.SweepInterval,
	}
}

// MetricsConfig controls whether pkg/metrics is enabled and where its
// Prometheus scrape endpoint listens.
type MetricsConfig struct {
	// Enabled controls whether metrics.InitRegistry is called at
	// startup. Default: false.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port serving /metrics. Default: 9090.
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// HealthConfig configures pkg/pool's HealthChecker.
type HealthConfig struct {
	// Interval is how often a pooled key is probed. Default: 30s.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// FailureThreshold is the number of consecutive failed probes that
	// flip a key from Degraded to Unhealthy. Default: 3.
	FailureThreshold int `mapstructure:"failure_threshold" yaml:"failure_threshold" validate:"omitempty,gt=0"`
}

// Config is the top-level nfsclient configuration: a target server and
// export plus the option groups each pooled connection is built from.
type Config struct {
	// Server is the NFS server's host[:port]. Required.
	Server string `mapstructure:"server" yaml:"server" validate:"required"`

	// Export is the export path to mount. Required.
	Export string `mapstructure:"export" yaml:"export" validate:"required"`

	// ShutdownTimeout bounds how long Disconnect/pool.Close are given to
	// drain outstanding leases. Default: 30s.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Client  ClientConfig  `mapstructure:"client" yaml:"client"`
	Pool    PoolConfig    `mapstructure:"pool" yaml:"pool"`
	Health  HealthConfig  `mapstructure:"health" yaml:"health"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (NFSCLIENT_*)
//  2. Configuration file
//  3. Default values
//
// When no configuration file is found, Load returns GetDefaultConfig()
// unchanged; environment variables are not read in that case.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(durationDecodeHook(), byteSizeDecodeHook())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when no file
// exists at the given (or default) path.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"create one, or pass an explicit path to Load", GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML, creating parent directories as
// needed.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper's environment and config-file search.
func setupViper(v *viper.Viper, configPath string) {
	// NFSCLIENT_CLIENT_USE_HANDLE_CACHE=true, NFSCLIENT_POOL_MAX_POOL_SIZE=16, ...
	v.SetEnvPrefix("NFSCLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind every key explicitly so Unmarshal sees env values for keys the
	// file does not mention.
	var bind func(t reflect.Type, prefix string)
	bind = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			key := prefix + f.Tag.Get("mapstructure")
			if f.Type.Kind() == reflect.Struct {
				bind(f.Type, key+".")
			} else {
				_ = v.BindEnv(key)
			}
		}
	}
	bind(reflect.TypeOf(Config{}), "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// durationDecodeHook converts strings like "30s" and raw numbers
// (nanoseconds) into time.Duration during mapstructure decoding.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// byteSizeDecodeHook converts strings like "64Ki" and raw numbers (bytes)
// into bytesize.ByteSize during mapstructure decoding.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/nfsclient, falling back to
// ~/.config/nfsclient, or "." if the home directory can't be determined.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nfsclient")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "nfsclient")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

var structValidator = validator.New()

// Validate runs struct-tag validation plus the cross-field checks tags
// alone can't express.
func Validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return err
	}
	if cfg.Pool.MaxPoolSize > 0 && cfg.Health.FailureThreshold > cfg.Pool.MaxPoolSize*10 {
		return fmt.Errorf("health.failure_threshold (%d) is unreasonably large relative to pool.max_pool_size (%d)",
			cfg.Health.FailureThreshold, cfg.Pool.MaxPoolSize)
	}
	return nil
}
