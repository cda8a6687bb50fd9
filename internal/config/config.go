package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goodtune/timekeeper/internal/storage"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	User     string        `mapstructure:"user"`
	Disabled bool          `mapstructure:"disabled"`
	Storage  StorageConfig `mapstructure:"storage"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Logout   LogoutConfig  `mapstructure:"logout"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type     string      `mapstructure:"type" validate:"oneof=file bolt redis"`
	DataDir  string      `mapstructure:"data_dir"`
	BoltPath string      `mapstructure:"bolt_path"`
	Redis    RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines the Redis backend connection. The default network is
// a unix socket so no traffic leaves the host.
type RedisConfig struct {
	Network      string `mapstructure:"network" validate:"omitempty,oneof=unix tcp"`
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db" validate:"gte=0"`
	PoolSize     int    `mapstructure:"pool_size" validate:"gte=0"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	JournalTTL   string `mapstructure:"journal_ttl"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// MetricsConfig defines where metrics are written. An empty textfile path
// disables the exporter.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
	Interval string `mapstructure:"interval"`
}

// LogoutConfig defines how a user's desktop session is ended once the
// daily budget is exhausted.
type LogoutConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	UseLogind   bool     `mapstructure:"use_logind"`
	GracePeriod string   `mapstructure:"grace_period"`
	Commands    []string `mapstructure:"commands"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TIMEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The kill switch of earlier installs is still honored
	if os.Getenv("COMPUTER_SAFETY_DISABLED") == "1" {
		config.Disabled = true
	}

	if err := resolve(&config); err != nil {
		return nil, err
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("user", "")
	v.SetDefault("disabled", false)

	// Storage defaults
	v.SetDefault("storage.type", "file")
	v.SetDefault("storage.data_dir", "")
	v.SetDefault("storage.bolt_path", "")
	v.SetDefault("storage.redis.network", "unix")
	v.SetDefault("storage.redis.address", "/run/redis/redis.sock")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.journal_ttl", "9600h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Metrics defaults
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.interval", "30s")

	// Logout defaults
	v.SetDefault("logout.enabled", true)
	v.SetDefault("logout.use_logind", true)
	v.SetDefault("logout.grace_period", "4s")
	v.SetDefault("logout.commands", []string{
		"loginctl terminate-user {user}",
		"pkill -KILL -u {user}",
	})
}

// Defaults returns the configuration produced by defaults alone, resolved
// against the host environment.
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal defaults: %w", err)
	}
	if err := resolve(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Keys returns every configuration key Load understands.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	return v.AllKeys()
}

// resolve fills values that depend on the host environment
func resolve(cfg *Config) error {
	if cfg.User == "" {
		cfg.User = CurrentUser()
	}

	if cfg.Storage.DataDir == "" {
		dir, err := storage.DefaultDataDir()
		if err != nil {
			return err
		}
		cfg.Storage.DataDir = dir
	}

	if cfg.Storage.BoltPath == "" {
		cfg.Storage.BoltPath = filepath.Join(cfg.Storage.DataDir, "timekeeper.bolt")
	}

	return nil
}

// CurrentUser returns the name of the user running the process, falling
// back to the environment and finally to "unknown".
func CurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		// Windows reports DOMAIN\user
		if i := strings.LastIndex(u.Username, `\`); i >= 0 {
			return u.Username[i+1:]
		}
		return u.Username
	}
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if name := os.Getenv(key); name != "" {
			return name
		}
	}
	return "unknown"
}

// validate validates the configuration
func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if err := storage.ValidateUser(cfg.User); err != nil {
		return err
	}

	if cfg.Storage.Type == "redis" && cfg.Storage.Redis.Address == "" {
		return fmt.Errorf("storage.redis.address is required for the redis backend")
	}

	return nil
}
