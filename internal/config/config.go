package config

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BaseURL string `yaml:"base_url"`

	HTTP struct {
		Address string `yaml:"address"`
	} `yaml:"http"`

	API APIConfig `yaml:"api"`

	Assets struct {
		BaseURL string `yaml:"base_url"` // prefixed onto relative image paths
	} `yaml:"assets"`

	Transfer TransferConfig `yaml:"transfer"`

	Redis RedisConfig `yaml:"redis"`

	Database DatabaseConfig `yaml:"database"`

	Logging struct {
		Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
		Format string `yaml:"format"` // "text" | "json"
	} `yaml:"logging"`

	Security struct {
		TicketSecret string        `yaml:"ticket_secret"`
		TicketTTL    time.Duration `yaml:"ticket_ttl"`
	} `yaml:"security"`

	Alerts struct {
		TelegramToken string `yaml:"telegram_token"`
		ChatID        string `yaml:"chat_id"`
	} `yaml:"alerts"`

	RateLimit struct {
		Limit  int           `yaml:"limit"`
		Window time.Duration `yaml:"window"`
	} `yaml:"ratelimit"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultTicketSecret is the fallback secret; Load callers should warn when
// it is still in effect.
const DefaultTicketSecret = "change-me"

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type TransferConfig struct {
	Backend string        `yaml:"backend"` // "memory" | "redis" | "postgres"
	TTL     time.Duration `yaml:"ttl"`
	Prefix  string        `yaml:"prefix"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"` // e.g. "disable" | "require"
}

func (c *Config) Defaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8081/api/catalog/"
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.Transfer.Backend == "" {
		c.Transfer.Backend = BackendMemory
	}
	if c.Transfer.TTL <= 0 {
		c.Transfer.TTL = 2 * time.Minute
	}
	if c.Transfer.Prefix == "" {
		c.Transfer.Prefix = "storefront:transfer:"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "redis:6379"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Database.Host == "" {
		c.Database.Host = "db"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "storefront"
	}
	if c.Database.Name == "" {
		c.Database.Name = "storefront"
	}
	if c.Database.Password == "" {
		c.Database.Password = "password"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Security.TicketSecret == "" {
		c.Security.TicketSecret = DefaultTicketSecret
	}
	if c.Security.TicketTTL <= 0 {
		c.Security.TicketTTL = c.Transfer.TTL
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = 120
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
}

// DefaultSecret reports whether tickets would be signed with the
// well-known fallback secret.
func (c *Config) DefaultSecret() bool {
	return c.Security.TicketSecret == DefaultTicketSecret
}

func (c *Config) Validate() error {
	var errs []string
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "api.base_url must be an absolute http(s) URL")
	}
	switch c.Transfer.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		errs = append(errs, "transfer.backend must be one of memory|redis|postgres")
	}
	if c.Transfer.Backend == BackendPostgres && c.Database.URL == "" {
		// DB must have either URL or (Host, User, Name)
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			errs = append(errs, "database.url or database.{host,user,name} must be set")
		}
	}
	if c.Transfer.Backend == BackendRedis && c.Redis.Addr == "" {
		errs = append(errs, "redis.addr must be set")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// AppURL returns a postgres connection URL for the application DB.
func (d *DatabaseConfig) AppURL() (string, error) {
	if d.URL != "" {
		return d.URL, nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return "", errors.New("database config incomplete: need host, user, name or set url")
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
