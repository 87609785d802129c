package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Mail      MailConfig      `mapstructure:"mail"`
	Review    ReviewConfig    `mapstructure:"review"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	ListTTL  time.Duration `mapstructure:"list_ttl"`
}

type StorageConfig struct {
	Path         string   `mapstructure:"path"`
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedMimes []string `mapstructure:"allowed_mimes"`
}

type MailConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	From        string        `mapstructure:"from"`
	SSL         bool          `mapstructure:"ssl"`
	Subject     string        `mapstructure:"subject"`
	MaxParallel int           `mapstructure:"max_parallel"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// Enabled reports whether an SMTP relay is configured. Without one,
// notifications are only logged.
func (c MailConfig) Enabled() bool {
	return c.Host != ""
}

type ReviewConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Match is "exact" or "case_insensitive".
	Match     string           `mapstructure:"match"`
	Reviewers []ReviewerConfig `mapstructure:"reviewers"`
}

type ReviewerConfig struct {
	Slot  string `mapstructure:"slot"`
	Email string `mapstructure:"email"`
	Name  string `mapstructure:"name"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.list_ttl", "1m")
	v.SetDefault("storage.path", "./uploads")
	v.SetDefault("storage.max_size", 15<<20) // 15MB
	v.SetDefault("storage.allowed_mimes", []string{"application/pdf"})
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", `"Translation System" <notifications@example.com>`)
	v.SetDefault("mail.subject", "Translation Approval Request")
	v.SetDefault("mail.max_parallel", 8)
	v.SetDefault("mail.send_timeout", "30s")
	v.SetDefault("review.base_url", "http://localhost:5173")
	v.SetDefault("review.match", "exact")
	v.SetDefault("rate_limit.rps", 1)
	v.SetDefault("rate_limit.burst", 10)
}

// Load reads config.yaml from ./config or the working directory. Every key
// can be overridden from the environment, e.g. REVIEW_DATABASE_PASSWORD.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("review")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Review.BaseURL = strings.TrimRight(cfg.Review.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Review.Match {
	case "exact", "case_insensitive":
	default:
		return fmt.Errorf("unknown reviewer match mode %q", c.Review.Match)
	}

	if c.Review.BaseURL == "" {
		return errors.New("review.base_url is required")
	}
	if len(c.Review.Reviewers) == 0 {
		return errors.New("at least one reviewer must be configured")
	}

	if c.Storage.MaxSize <= 0 {
		return errors.New("storage.max_size must be positive")
	}

	return nil
}
