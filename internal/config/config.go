package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"clubvault/internal/service/s3"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	S3       s3.Config      `mapstructure:"S3"`
	Auth     AuthConfig     `mapstructure:"Auth"`
	Export   ExportConfig   `mapstructure:"Export"`
	Log      LogConfig      `mapstructure:"Log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"Port"`
	MetricsPath     string        `mapstructure:"MetricsPath"`
	ShutdownTimeout time.Duration `mapstructure:"ShutdownTimeout"`
	SessionIdleTTL  time.Duration `mapstructure:"SessionIdleTTL"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"Host"`
	Port           string `mapstructure:"Port"`
	User           string `mapstructure:"User"`
	Password       string `mapstructure:"Password"`
	Name           string `mapstructure:"Name"`
	SSLMode        string `mapstructure:"SSLMode"`
	MigrationsPath string `mapstructure:"MigrationsPath"`
}

type AuthConfig struct {
	// CapabilityAddr - адрес gRPC сервиса прав
	CapabilityAddr string `mapstructure:"CapabilityAddr"`
	JWTSecret      string `mapstructure:"JWTSecret"`
}

type ExportConfig struct {
	Concurrency     int           `mapstructure:"Concurrency"`
	IndividualDelay time.Duration `mapstructure:"IndividualDelay"`
}

type LogConfig struct {
	Level  string `mapstructure:"Level"`
	Pretty bool   `mapstructure:"Pretty"`
}

var envBindings = map[string]string{
	"Server.Port":         "HTTP_PORT",
	"Database.Host":       "DATABASE_HOST",
	"Database.Port":       "DATABASE_PORT",
	"Database.User":       "DATABASE_USER",
	"Database.Password":   "DATABASE_PASSWORD",
	"Database.Name":       "DATABASE_NAME",
	"Database.SSLMode":    "DATABASE_SSLMODE",
	"S3.Endpoint":         "S3_ENDPOINT",
	"S3.Region":           "S3_REGION",
	"S3.AccessKeyID":      "S3_ACCESS_KEY_ID",
	"S3.SecretAccessKey":  "S3_SECRET_ACCESS_KEY",
	"S3.Bucket":           "S3_BUCKET",
	"Auth.CapabilityAddr": "AUTH_CAPABILITY_ADDR",
	"Auth.JWTSecret":      "AUTH_JWT_SECRET",
	"Log.Level":           "LOG_LEVEL",
	"Export.Concurrency":  "EXPORT_CONCURRENCY",
}

// NewConfig читает файл конфигурации; переменные окружения имеют приоритет
func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Server.MetricsPath", "/metrics")
	v.SetDefault("Server.ShutdownTimeout", 30*time.Second)
	v.SetDefault("Server.SessionIdleTTL", 12*time.Hour)
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Database.MigrationsPath", "file://migrations")
	v.SetDefault("Export.Concurrency", 4)
	v.SetDefault("Export.IndividualDelay", 300*time.Millisecond)
	v.SetDefault("Log.Level", "info")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("using only environment variables")
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

// Validate проверяет, что все необходимые поля заполнены
func (c *Config) Validate() error {
	if c.Database.Host == "" ||
		c.Database.Port == "" ||
		c.Database.User == "" ||
		c.Database.Password == "" ||
		c.Database.Name == "" {
		return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth configuration is incomplete: JWTSecret is required")
	}
	if c.Auth.CapabilityAddr == "" {
		return fmt.Errorf("auth configuration is incomplete: CapabilityAddr is required")
	}
	if err := c.S3.Validate(); err != nil {
		return fmt.Errorf("invalid S3 configuration: %w", err)
	}
	if c.Export.Concurrency <= 0 {
		return fmt.Errorf("export concurrency must be positive, got %d", c.Export.Concurrency)
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// GetURL возвращает адрес базы для golang-migrate
func (c *DatabaseConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}
