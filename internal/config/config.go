// Package config loads streamlist configuration from defaults, an optional
// config file, a .env file and STREAMLIST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/streamlist/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of configuration environment variables, e.g.
// STREAMLIST_TWITCH_CLIENT_ID.
const EnvPrefix = "STREAMLIST"

// Config is the complete configuration.
type Config struct {
	Twitch   Twitch
	Redis    Redis
	Log      Log
	Server   Server
	List     List
	Prefetch Prefetch
}

// Twitch configures the API client.
type Twitch struct {
	BaseURL    string
	ClientID   string
	UserAgent  string
	Timeout    time.Duration
	Revalidate bool

	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Redis configures the shared cache. An empty Addr disables it.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address is configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Log configures logging.
type Log struct {
	Level  logging.LogLevel
	Pretty bool
}

// Server configures the HTTP API.
type Server struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// List configures the paginated lists.
type List struct {
	PageSize int
}

// Prefetch configures the cache warmer.
type Prefetch struct {
	Pages       int
	Concurrency int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("twitch.base_url", "https://api.twitch.tv/kraken")
	v.SetDefault("twitch.client_id", "")
	v.SetDefault("twitch.user_agent", "streamlist/1.0")
	v.SetDefault("twitch.timeout", "30s")
	v.SetDefault("twitch.revalidate", false)
	v.SetDefault("twitch.breaker_failures", 5)
	v.SetDefault("twitch.breaker_timeout", "30s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("list.page_size", 20)

	v.SetDefault("prefetch.pages", 3)
	v.SetDefault("prefetch.concurrency", 4)
}

// LoadDotEnv loads environment variables from .env files. Missing files are
// ignored; variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration. With an empty path it looks for an optional
// streamlist.{yaml,json,toml} in the working directory and $HOME/.streamlist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("streamlist")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.streamlist")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	level, err := logging.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Twitch: Twitch{
			BaseURL:         v.GetString("twitch.base_url"),
			ClientID:        v.GetString("twitch.client_id"),
			UserAgent:       v.GetString("twitch.user_agent"),
			Timeout:         v.GetDuration("twitch.timeout"),
			Revalidate:      v.GetBool("twitch.revalidate"),
			BreakerFailures: v.GetUint32("twitch.breaker_failures"),
			BreakerTimeout:  v.GetDuration("twitch.breaker_timeout"),
		},
		Redis: Redis{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: Log{
			Level:  level,
			Pretty: v.GetBool("log.pretty"),
		},
		Server: Server{
			Addr:            v.GetString("server.addr"),
			AllowedOrigins:  v.GetStringSlice("server.allowed_origins"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		List: List{
			PageSize: v.GetInt("list.page_size"),
		},
		Prefetch: Prefetch{
			Pages:       v.GetInt("prefetch.pages"),
			Concurrency: v.GetInt("prefetch.concurrency"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. The client id is checked when the client is
// created, so commands that need no API can run without one.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Twitch.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("twitch.base_url must be an http(s) URL (got %q)", c.Twitch.BaseURL)
	}
	if c.Twitch.Timeout <= 0 {
		return fmt.Errorf("twitch.timeout must be positive (got %s)", c.Twitch.Timeout)
	}
	if c.List.PageSize < 1 || c.List.PageSize > 100 {
		return fmt.Errorf("list.page_size must be between 1 and 100 (got %d)", c.List.PageSize)
	}
	if c.Prefetch.Pages < 0 {
		return fmt.Errorf("prefetch.pages must be >= 0 (got %d)", c.Prefetch.Pages)
	}
	if c.Prefetch.Concurrency < 1 {
		return fmt.Errorf("prefetch.concurrency must be >= 1 (got %d)", c.Prefetch.Concurrency)
	}
	return nil
}
