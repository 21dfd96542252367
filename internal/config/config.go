package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	FMP       FMPConfig       `mapstructure:"fmp"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Email     EmailConfig     `mapstructure:"email"`
	Log       LogConfig       `mapstructure:"log"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// StorageConfig selects the backing store
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DBName         string `mapstructure:"dbname"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// RedisConfig holds the quote cache configuration. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	QuoteTTL time.Duration `mapstructure:"quote_ttl"`
}

// KafkaConfig holds Kafka configuration. Empty Brokers disables events.
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	EventsTopic   string   `mapstructure:"events_topic"`
	RearmTopic    string   `mapstructure:"rearm_topic"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
}

// Enabled reports whether any brokers are configured
func (k KafkaConfig) Enabled() bool {
	for _, b := range k.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// FMPConfig holds Financial Modeling Prep client configuration
type FMPConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Exchanges         []string      `mapstructure:"exchanges"`
}

// SchedulerConfig holds refresh scheduler configuration
type SchedulerConfig struct {
	Cron           string `mapstructure:"cron"`
	RunOnStart     bool   `mapstructure:"run_on_start"`
	MaxCallsPerDay int    `mapstructure:"max_calls_per_day"`
	FetchBatchSize int    `mapstructure:"fetch_batch_size"`
}

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// LogConfig defines the logger configuration options
type LogConfig struct {
	Level       string `mapstructure:"level"`       // debug, info, warn, error
	Format      string `mapstructure:"format"`      // json or console
	OutputFile  string `mapstructure:"output_file"` // optional rotated log file
	Environment string `mapstructure:"environment"` // dev or prod
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")

	v.SetDefault("storage.driver", DriverPostgres)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "stockwatch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_path", "db/migrations")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "stockpikr")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.quote_ttl", 10*time.Minute)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.events_topic", "scheduler-events")
	v.SetDefault("kafka.rearm_topic", "alert-edits")
	v.SetDefault("kafka.consumer_group", "quote-refresh-service")

	v.SetDefault("fmp.base_url", "https://financialmodelingprep.com/api")
	v.SetDefault("fmp.api_key", "")
	v.SetDefault("fmp.timeout", 10*time.Second)
	v.SetDefault("fmp.requests_per_second", 5)
	v.SetDefault("fmp.exchanges", []string{"NASDAQ", "NYSE", "TSE", "SSE", "HKEX", "LSE"})

	v.SetDefault("scheduler.cron", "*/5 * * * *")
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("scheduler.max_calls_per_day", 102)
	v.SetDefault("scheduler.fetch_batch_size", 1)

	v.SetDefault("email.host", "smtp.gmail.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "StockPikr Alerts")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "prod")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("secrets.provider", SecretsProviderEnv)
	v.SetDefault("secrets.region", "us-east-1")
	v.SetDefault("secrets.prefix", "/stockpikr/")
}

// Load reads configuration from an optional YAML file, a local .env file
// and environment variables (e.g. SCHEDULER_MAX_CALLS_PER_DAY).
// An empty path searches for config.yaml in . and ./config.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the scheduler cannot run without
func (c *Config) Validate() error {
	var errs []error

	if c.Scheduler.MaxCallsPerDay <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.max_calls_per_day must be positive, got %d", c.Scheduler.MaxCallsPerDay))
	}
	if c.Scheduler.FetchBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.fetch_batch_size must be positive, got %d", c.Scheduler.FetchBatchSize))
	}
	if c.Scheduler.Cron == "" {
		errs = append(errs, errors.New("scheduler.cron is required"))
	}
	if c.Storage.Driver != DriverPostgres && c.Storage.Driver != DriverMongo {
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.FMP.APIKey == "" {
		errs = append(errs, errors.New("fmp.api_key is required"))
	}
	if c.Secrets.Provider != SecretsProviderEnv && c.Secrets.Provider != SecretsProviderSSM {
		errs = append(errs, fmt.Errorf("unknown secrets.provider %q", c.Secrets.Provider))
	}

	return errors.Join(errs...)
}
