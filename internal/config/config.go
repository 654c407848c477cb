package config

import (
	"errors"
	"fmt"
	"log/slog"
	"opsengine/internal/domain"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig             `mapstructure:"app"`
	Server    ServerConfig          `mapstructure:"server"`
	Logger    LoggerConfig          `mapstructure:"logger"`
	Risk      domain.RiskThresholds `mapstructure:"risk"`
	Kafka     KafkaConfig           `mapstructure:"kafka"`
	Signing   SigningConfig         `mapstructure:"signing"`
	Dispatch  DispatchConfig        `mapstructure:"dispatch"`
	CORS      CORSConfig            `mapstructure:"cors"`
	Scenarios ScenariosConfig       `mapstructure:"scenarios"`
	Replies   RepliesConfig         `mapstructure:"replies"`
}

type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `mapstructure:"topic" validate:"required_if=Enabled true"`
}

type SigningConfig struct {
	Secret string `mapstructure:"secret"`
}

type DispatchConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	Workers   int  `mapstructure:"workers" validate:"gte=1"`
	QueueSize int  `mapstructure:"queue_size" validate:"gte=1"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ScenariosConfig struct {
	File string `mapstructure:"file"`
}

type RepliesConfig struct {
	ApprovalSignature string `mapstructure:"approval_signature"`
	SecuritySignature string `mapstructure:"security_signature"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "opsengine")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	defaults := domain.DefaultRiskThresholds()
	v.SetDefault("risk.auto_approve_limit", defaults.AutoApproveLimit)
	v.SetDefault("risk.min_cash_balance", defaults.MinCashBalance)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "opsengine-decisions")

	v.SetDefault("signing.secret", "")

	v.SetDefault("dispatch.enabled", true)
	v.SetDefault("dispatch.workers", 3)
	v.SetDefault("dispatch.queue_size", 100)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("scenarios.file", "")

	v.SetDefault("replies.approval_signature", "OpsEngine AI")
	v.SetDefault("replies.security_signature", "Pliant Security")
}

// Load reads configuration from an optional YAML file and OPSENGINE_*
// environment variables. An explicit configPath must exist; without one,
// a missing config.yaml is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("OPSENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c LoggerConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
