package config

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the yaml file at path, then applies STOREFRONT_* environment
// overrides. A missing file yields the defaults together with the open
// error, provided the environment overrides still validate.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		var cfg Config
		cfg.ApplyEnv(os.Getenv)
		cfg.Defaults()
		if verr := cfg.Validate(); verr != nil {
			return nil, verr
		}
		return &cfg, err
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return finish(cfg)
}

func FromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// LoadEnvFile loads a dotenv file into the process environment, overriding
// existing values. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Overload(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func decode(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("STOREFRONT_BASE_URL", &c.BaseURL)
	str("STOREFRONT_HTTP_ADDRESS", &c.HTTP.Address)
	str("STOREFRONT_API_BASE_URL", &c.API.BaseURL)
	dur("STOREFRONT_API_TIMEOUT", &c.API.Timeout)
	str("STOREFRONT_ASSETS_BASE_URL", &c.Assets.BaseURL)
	str("STOREFRONT_TRANSFER_BACKEND", &c.Transfer.Backend)
	dur("STOREFRONT_TRANSFER_TTL", &c.Transfer.TTL)
	str("STOREFRONT_REDIS_ADDR", &c.Redis.Addr)
	str("STOREFRONT_REDIS_PASSWORD", &c.Redis.Password)
	if v := strings.TrimSpace(getenv("STOREFRONT_REDIS_DB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
	str("STOREFRONT_DATABASE_URL", &c.Database.URL)
	str("STOREFRONT_LOG_LEVEL", &c.Logging.Level)
	str("STOREFRONT_LOG_FORMAT", &c.Logging.Format)
	str("STOREFRONT_TICKET_SECRET", &c.Security.TicketSecret)
	str("STOREFRONT_TELEGRAM_TOKEN", &c.Alerts.TelegramToken)
	str("STOREFRONT_TELEGRAM_CHAT_ID", &c.Alerts.ChatID)
}
