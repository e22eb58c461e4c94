// Package config loads the tracker configuration.
//
// Load order, later sources win:
//  1. Defaults
//  2. {dir}/common.yaml
//  3. {dir}/{APP_ENV}.yaml
//  4. TRACKER_* environment variables, after loading .env
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRACKER_"

type Config struct {
	Env      string         `yaml:"-" json:"env"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Mail     MailConfig     `yaml:"mail" json:"mail"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" json:"addr"`
	APIPrefix    string        `yaml:"api_prefix" json:"api_prefix"`
	PageSize     int           `yaml:"page_size" json:"page_size"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	Debug        bool          `yaml:"debug" json:"debug"`
}

type AuthConfig struct {
	SigningKey   string            `yaml:"signing_key" json:"-"`
	SigningKeyID string            `yaml:"signing_key_id" json:"signing_key_id"`
	PreviousKeys map[string]string `yaml:"previous_keys" json:"-"`
	Issuer       string            `yaml:"issuer" json:"issuer"`
	Audience     []string          `yaml:"audience" json:"audience"`
	TokenTTL     time.Duration     `yaml:"token_ttl" json:"token_ttl"`
	HashCost     int               `yaml:"hash_cost" json:"hash_cost"`
	TokenLookup  string            `yaml:"token_lookup" json:"token_lookup"`
	AuthScheme   string            `yaml:"auth_scheme" json:"auth_scheme"`
	ContextKey   string            `yaml:"context_key" json:"context_key"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"-"`
	Debug  bool   `yaml:"debug" json:"debug"`
}

type MailConfig struct {
	Transport string     `yaml:"transport" json:"transport"`
	From      string     `yaml:"from" json:"from"`
	SMTP      SMTPConfig `yaml:"smtp" json:"smtp"`
	Redis     RedisMail  `yaml:"redis" json:"redis"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

type RedisMail struct {
	URL    string `yaml:"url" json:"-"`
	Stream string `yaml:"stream" json:"stream"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Addr      string `yaml:"addr" json:"addr"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Defaults returns a development ready configuration. The signing key is
// left empty and must be provided.
func Defaults() *Config {
	return &Config{
		Env: "dev",
		Server: ServerConfig{
			Addr:         ":8080",
			APIPrefix:    "/api/v1",
			PageSize:     10,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			SigningKeyID: "default",
			Issuer:       "go-tracker",
			Audience:     []string{"go-tracker"},
			TokenTTL:     24 * time.Hour,
			HashCost:     10,
			TokenLookup:  "header:Authorization",
			AuthScheme:   "Bearer",
			ContextKey:   "user",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:tracker.db?cache=shared",
		},
		Mail: MailConfig{
			Transport: "log",
			From:      "no-reply@tracker.local",
			SMTP:      SMTPConfig{Host: "localhost", Port: 25},
			Redis:     RedisMail{URL: "redis://localhost:6379/0", Stream: "tracker:mail"},
		},
		Metrics: MetricsConfig{
			Addr:      ":9090",
			Namespace: "tracker",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Options controls where Load looks for files.
type Options struct {
	// Dir holds common.yaml and {env}.yaml. Defaults to "configs".
	Dir string
	// Env overrides APP_ENV.
	Env string
	// EnvFiles are loaded with godotenv before reading the environment.
	// Defaults to ".env". Missing files are ignored.
	EnvFiles []string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds the configuration and validates it.
func Load(opts Options) (*Config, error) {
	if opts.Dir == "" {
		opts.Dir = "configs"
	}
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{".env"}
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	for _, f := range opts.EnvFiles {
		// godotenv never overrides variables already set.
		_ = godotenv.Load(f)
	}

	cfg := Defaults()
	cfg.Env = opts.Env
	if cfg.Env == "" {
		if v, ok := opts.LookupEnv("APP_ENV"); ok && v != "" {
			cfg.Env = v
		} else {
			cfg.Env = "dev"
		}
	}

	for _, name := range []string{"common.yaml", cfg.Env + ".yaml"} {
		if err := mergeFile(cfg, filepath.Join(opts.Dir, name)); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, opts.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "read config file").
			WithMetadata(map[string]any{"path": path})
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "parse config file").
			WithMetadata(map[string]any{"path": path})
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return envError(key, v, err)
			}
			*dst = b
		}
		return nil
	}
	integer := func(key string, dst *int) error {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return envError(key, v, err)
			}
			*dst = n
		}
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return envError(key, v, err)
			}
			*dst = d
		}
		return nil
	}

	str("SERVER_ADDR", &cfg.Server.Addr)
	str("SERVER_API_PREFIX", &cfg.Server.APIPrefix)
	str("AUTH_SIGNING_KEY", &cfg.Auth.SigningKey)
	str("AUTH_SIGNING_KEY_ID", &cfg.Auth.SigningKeyID)
	str("AUTH_ISSUER", &cfg.Auth.Issuer)
	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_DSN", &cfg.Database.DSN)
	str("MAIL_TRANSPORT", &cfg.Mail.Transport)
	str("MAIL_FROM", &cfg.Mail.From)
	str("MAIL_SMTP_HOST", &cfg.Mail.SMTP.Host)
	str("MAIL_SMTP_USERNAME", &cfg.Mail.SMTP.Username)
	str("MAIL_SMTP_PASSWORD", &cfg.Mail.SMTP.Password)
	str("MAIL_REDIS_URL", &cfg.Mail.Redis.URL)
	str("MAIL_REDIS_STREAM", &cfg.Mail.Redis.Stream)
	str("METRICS_ADDR", &cfg.Metrics.Addr)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v, ok := lookup(EnvPrefix + "AUTH_AUDIENCE"); ok {
		cfg.Auth.Audience = splitList(v)
	}

	return errors.Join(
		boolean("SERVER_DEBUG", &cfg.Server.Debug),
		boolean("DATABASE_DEBUG", &cfg.Database.Debug),
		boolean("METRICS_ENABLED", &cfg.Metrics.Enabled),
		integer("SERVER_PAGE_SIZE", &cfg.Server.PageSize),
		integer("AUTH_HASH_COST", &cfg.Auth.HashCost),
		integer("MAIL_SMTP_PORT", &cfg.Mail.SMTP.Port),
		duration("AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL),
		duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout),
		duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout),
	)
}

func envError(key, value string, err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, fmt.Sprintf("invalid value for %s%s", EnvPrefix, key)).
		WithMetadata(map[string]any{"value": value})
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	err := validation.Errors{
		"server":   c.Server.Validate(),
		"auth":     c.Auth.Validate(),
		"database": c.Database.Validate(),
		"mail":     c.Mail.Validate(),
		"log":      c.Log.Validate(),
	}.Filter()
	if err == nil {
		return nil
	}
	return errors.FromOzzoValidation(err, "invalid configuration")
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.PageSize, validation.Required, validation.Min(1), validation.Max(1000)),
	)
}

func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&a.Issuer, validation.Required),
		validation.Field(&a.Audience, validation.Required),
		validation.Field(&a.TokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&a.HashCost, validation.Min(4), validation.Max(31)),
		validation.Field(&a.PreviousKeys, validation.Each(validation.Length(32, 0))),
	)
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&d.DSN, validation.Required),
	)
}

func (m MailConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Transport, validation.Required, validation.In("smtp", "redis", "log")),
		validation.Field(&m.From, validation.Required, is.EmailFormat),
		validation.Field(&m.SMTP, validation.When(m.Transport == "smtp", validation.By(func(any) error {
			return validation.ValidateStruct(&m.SMTP,
				validation.Field(&m.SMTP.Host, validation.Required),
				validation.Field(&m.SMTP.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			)
		}))),
		validation.Field(&m.Redis, validation.When(m.Transport == "redis", validation.By(func(any) error {
			return validation.ValidateStruct(&m.Redis,
				validation.Field(&m.Redis.URL, validation.Required),
				validation.Field(&m.Redis.Stream, validation.Required),
			)
		}))),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}
