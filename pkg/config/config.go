package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PREDIFY_"

// Config is the full service configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Backend   Backend   `yaml:"backend"`
	Session   Session   `yaml:"session"`
	Assistant Assistant `yaml:"assistant"`
	Charts    Charts    `yaml:"charts"`
	Insights  Insights  `yaml:"insights"`
	Activity  Activity  `yaml:"activity"`
}

// Server controls the HTTP listener.
type Server struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	BasePath     string `yaml:"base_path"`
	Transport    string `yaml:"transport"`
	CookieSecret string `yaml:"cookie_secret"`
	SecureCookie bool   `yaml:"secure_cookie"`
}

// Addr is the listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Backend points at the analytics REST API.
type Backend struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Demo    bool          `yaml:"demo"`
}

// Session selects the token store.
type Session struct {
	Store     string        `yaml:"store"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	RedisPass string        `yaml:"redis_password"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// Assistant configures the language model.
type Assistant struct {
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	MaxHistory int    `yaml:"max_history"`
}

// Charts configures chart rendering.
type Charts struct {
	AssetsHost string        `yaml:"assets_host"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// Insights configures the insight loads.
type Insights struct {
	LoadTimeout time.Duration `yaml:"load_timeout"`
	ProductsTTL time.Duration `yaml:"products_ttl"`
	Locale      string        `yaml:"locale"`
}

// Activity configures the activity emitter.
type Activity struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: Server{
			Host:      "0.0.0.0",
			Port:      8080,
			BasePath:  "/",
			Transport: "fiber",
		},
		Backend: Backend{
			BaseURL: "http://localhost:8000/api",
			Timeout: 12 * time.Second,
		},
		Session: Session{
			Store:     "memory",
			RedisAddr: "localhost:6379",
			KeyPrefix: "predify:session:",
			TTL:       7 * 24 * time.Hour,
		},
		Assistant: Assistant{
			Model:      "gemini-2.5-flash",
			MaxHistory: 50,
		},
		Charts: Charts{
			AssetsHost: "https://go-echarts.github.io/go-echarts-assets/assets/",
			CacheTTL:   5 * time.Minute,
		},
		Insights: Insights{
			ProductsTTL: 2 * time.Minute,
			Locale:      "en",
		},
		Activity: Activity{
			Enabled: true,
			Channel: "dashboard",
		},
	}
}

// Load reads path (optional) over the defaults, then applies .env files and
// PREDIFY_* environment variables, and validates the result. A missing file
// at path is an error; an empty path skips the file.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := loadDotEnv(envFiles); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	// godotenv.Load never overrides variables already set in the process.
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("config: load env files: %w", err)
	}
	return nil
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays PREDIFY_* variables resolved by lookup.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("SERVER_HOST", &c.Server.Host)
	num("SERVER_PORT", &c.Server.Port)
	str("SERVER_BASE_PATH", &c.Server.BasePath)
	str("SERVER_TRANSPORT", &c.Server.Transport)
	str("SERVER_COOKIE_SECRET", &c.Server.CookieSecret)
	flag("SERVER_SECURE_COOKIE", &c.Server.SecureCookie)

	str("BACKEND_BASE_URL", &c.Backend.BaseURL)
	dur("BACKEND_TIMEOUT", &c.Backend.Timeout)
	flag("BACKEND_DEMO", &c.Backend.Demo)

	str("SESSION_STORE", &c.Session.Store)
	str("SESSION_REDIS_ADDR", &c.Session.RedisAddr)
	num("SESSION_REDIS_DB", &c.Session.RedisDB)
	str("SESSION_REDIS_PASSWORD", &c.Session.RedisPass)
	str("SESSION_KEY_PREFIX", &c.Session.KeyPrefix)
	dur("SESSION_TTL", &c.Session.TTL)

	str("ASSISTANT_API_KEY", &c.Assistant.APIKey)
	str("ASSISTANT_MODEL", &c.Assistant.Model)
	num("ASSISTANT_MAX_HISTORY", &c.Assistant.MaxHistory)

	str("CHARTS_ASSETS_HOST", &c.Charts.AssetsHost)
	dur("CHARTS_CACHE_TTL", &c.Charts.CacheTTL)

	dur("INSIGHTS_LOAD_TIMEOUT", &c.Insights.LoadTimeout)
	dur("INSIGHTS_PRODUCTS_TTL", &c.Insights.ProductsTTL)
	str("INSIGHTS_LOCALE", &c.Insights.Locale)

	flag("ACTIVITY_ENABLED", &c.Activity.Enabled)
	str("ACTIVITY_CHANNEL", &c.Activity.Channel)

	// Unprefixed GEMINI_API_KEY is accepted as a fallback.
	if c.Assistant.APIKey == "" {
		if v, ok := lookup("GEMINI_API_KEY"); ok {
			c.Assistant.APIKey = strings.TrimSpace(v)
		}
	}
	return errors.Join(errs...)
}

// Validate checks the values the service cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: server.port %d out of range", c.Server.Port))
	}
	switch c.Server.Transport {
	case "fiber", "chi":
	default:
		errs = append(errs, fmt.Errorf("config: server.transport must be fiber or chi, got %q", c.Server.Transport))
	}
	if !c.Backend.Demo {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: backend.base_url %q is not an absolute url", c.Backend.BaseURL))
		}
	}
	switch c.Session.Store {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Session.RedisAddr) == "" {
			errs = append(errs, errors.New("config: session.redis_addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: session.store must be memory or redis, got %q", c.Session.Store))
	}
	if c.Assistant.MaxHistory < 0 {
		errs = append(errs, errors.New("config: assistant.max_history must not be negative"))
	}
	switch c.Insights.Locale {
	case "", "en", "fa":
	default:
		errs = append(errs, fmt.Errorf("config: insights.locale must be en or fa, got %q", c.Insights.Locale))
	}
	return errors.Join(errs...)
}
