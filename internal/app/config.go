package app

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix префикс переменных окружения сервиса.
const EnvPrefix = "TRADING"

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Log форматы.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const (
	keyHTTPAddr            = "http_addr"
	keyGRPCAddr            = "grpc_addr"
	keyMetricsAddr         = "metrics_addr"
	keyStorageDriver       = "storage_driver"
	keyPostgresDSN         = "postgres_dsn"
	keyPostgresAutoMigrate = "postgres_auto_migrate"
	keyLogLevel            = "log_level"
	keyLogFormat           = "log_format"
	keyShutdownTimeout     = "shutdown_timeout"
	keyHealthTimeout       = "health_timeout"
	keyBcryptCost          = "bcrypt_cost"
	keyConfigFile          = "config_file"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr            string
	GRPCAddr            string
	MetricsAddr         string
	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool
	LogLevel            string
	LogFormat           string
	ShutdownTimeout     time.Duration
	HealthTimeout       time.Duration
	BcryptCost          int
}

// DefaultConfig возвращает настройки для локального запуска на in-memory хранилище.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		LogLevel:            "info",
		LogFormat:           LogFormatText,
		ShutdownTimeout:     5 * time.Second,
		HealthTimeout:       2 * time.Second,
		BcryptCost:          bcrypt.DefaultCost,
	}
}

// LoadConfig читает настройки из переменных окружения TRADING_* и,
// если задан TRADING_CONFIG_FILE, из файла. Окружение имеет приоритет над файлом.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if path := strings.TrimSpace(v.GetString(keyConfigFile)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		HTTPAddr:            strings.TrimSpace(v.GetString(keyHTTPAddr)),
		GRPCAddr:            strings.TrimSpace(v.GetString(keyGRPCAddr)),
		MetricsAddr:         strings.TrimSpace(v.GetString(keyMetricsAddr)),
		StorageDriver:       StorageDriver(strings.ToLower(strings.TrimSpace(v.GetString(keyStorageDriver)))),
		PostgresDSN:         strings.TrimSpace(v.GetString(keyPostgresDSN)),
		PostgresAutoMigrate: v.GetBool(keyPostgresAutoMigrate),
		LogLevel:            strings.ToLower(strings.TrimSpace(v.GetString(keyLogLevel))),
		LogFormat:           strings.ToLower(strings.TrimSpace(v.GetString(keyLogFormat))),
		ShutdownTimeout:     v.GetDuration(keyShutdownTimeout),
		HealthTimeout:       v.GetDuration(keyHealthTimeout),
		BcryptCost:          v.GetInt(keyBcryptCost),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault(keyHTTPAddr, def.HTTPAddr)
	v.SetDefault(keyGRPCAddr, def.GRPCAddr)
	v.SetDefault(keyMetricsAddr, def.MetricsAddr)
	v.SetDefault(keyStorageDriver, string(def.StorageDriver))
	v.SetDefault(keyPostgresDSN, def.PostgresDSN)
	v.SetDefault(keyPostgresAutoMigrate, def.PostgresAutoMigrate)
	v.SetDefault(keyLogLevel, def.LogLevel)
	v.SetDefault(keyLogFormat, def.LogFormat)
	v.SetDefault(keyShutdownTimeout, def.ShutdownTimeout)
	v.SetDefault(keyHealthTimeout, def.HealthTimeout)
	v.SetDefault(keyBcryptCost, def.BcryptCost)
	v.SetDefault(keyConfigFile, "")
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http address is required")
	}
	if c.GRPCAddr == "" {
		return fmt.Errorf("grpc address is required")
	}
	if c.MetricsAddr == "" {
		return fmt.Errorf("metrics address is required")
	}
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.HealthTimeout <= 0 {
		return fmt.Errorf("health timeout must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	return nil
}
