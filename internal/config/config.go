package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type StoreConfig struct {
	Driver string      `mapstructure:"driver"`
	Mongo  MongoConfig `mapstructure:"mongo"`
	// PostgresDSN is used by the postgres driver.
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type WebhookConfig struct {
	DiscordURL string        `mapstructure:"discord_url"`
	PanelURL   string        `mapstructure:"panel_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type SMTPConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CacheConfig struct {
	DoctorTTL  time.Duration `mapstructure:"doctor_ttl"`
	AccountTTL time.Duration `mapstructure:"account_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// secrets are read from plain environment variables, the names operators
// already export for the deployed service.
type secrets struct {
	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`
	JWTSecret         string `envconfig:"JWT_SECRET"`
	SMTPPassword      string `envconfig:"SMTP_PASSWORD"`
	SentryDSN         string `envconfig:"SENTRY_DSN"`
	MongoURI          string `envconfig:"MONGO_URI"`
}

var drivers = map[string]bool{"memory": true, "mongo": true, "postgres": true}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "sigma")
	v.SetDefault("store.mongo.connect_timeout", 10*time.Second)
	v.SetDefault("store.postgres_dsn", "")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "sigma.events")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "sigma")
	v.SetDefault("jwt.ttl", 12*time.Hour)

	v.SetDefault("webhook.discord_url", "")
	v.SetDefault("webhook.panel_url", "")
	v.SetDefault("webhook.timeout", 10*time.Second)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.to", []string{})

	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cache.doctor_ttl", 5*time.Minute)
	v.SetDefault("cache.account_ttl", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
}

// LoadConfig reads config.yaml from the given path, or from ".",
// "./config" and "/app/config" when path is empty. A missing file is not an
// error. SIGMA_* variables override file values (SIGMA_STORE_DRIVER sets
// store.driver).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvPrefix("SIGMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("failed to read secrets from environment: %w", err)
	}
	cfg.applySecrets(s)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets(s secrets) {
	if s.DiscordWebhookURL != "" {
		c.Webhook.DiscordURL = s.DiscordWebhookURL
	}
	if s.JWTSecret != "" {
		c.JWT.Secret = s.JWTSecret
	}
	if s.SMTPPassword != "" {
		c.SMTP.Password = s.SMTPPassword
	}
	if s.SentryDSN != "" {
		c.Sentry.DSN = s.SentryDSN
	}
	if s.MongoURI != "" {
		c.Store.Mongo.URI = s.MongoURI
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if !drivers[c.Store.Driver] {
		errs = append(errs, fmt.Errorf("store.driver %q must be one of memory, mongo, postgres", c.Store.Driver))
	}
	if c.Store.Driver == "mongo" && c.Store.Mongo.URI == "" {
		errs = append(errs, errors.New("store.mongo.uri is required for the mongo driver"))
	}
	if c.Store.Driver == "postgres" && c.Store.PostgresDSN == "" {
		errs = append(errs, errors.New("store.postgres_dsn is required for the postgres driver"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required (or JWT_SECRET)"))
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		errs = append(errs, errors.New("smtp.from is required when smtp.host is set"))
	}
	return errors.Join(errs...)
}
