package mpconsole

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/mpconsole/apiclient"
	"github.com/MrEthical07/mpconsole/router"
	"github.com/caarlos0/env/v11"
)

// Config is the full console configuration. Build clones it, so later edits
// by the caller have no effect on a built Console.
type Config struct {
	API     APIConfig
	Route   RouteConfig
	Session SessionConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// APIConfig addresses the admin API.
type APIConfig struct {
	BaseURL   string        `env:"MPCONSOLE_API_BASE_URL"   envDefault:"http://localhost:8000/api"`
	Timeout   time.Duration `env:"MPCONSOLE_API_TIMEOUT"    envDefault:"15s"`
	UserAgent string        `env:"MPCONSOLE_API_USER_AGENT" envDefault:"mpconsole"`
}

// RouteConfig names the two pages the guard redirects to and how "/" is
// treated for authenticated sessions.
type RouteConfig struct {
	LoginPath   string `env:"MPCONSOLE_ROUTE_LOGIN_PATH"   envDefault:"/login"`
	LandingPath string `env:"MPCONSOLE_ROUTE_LANDING_PATH" envDefault:"/articles"`
	RootRule    string `env:"MPCONSOLE_ROUTE_ROOT_RULE"    envDefault:"guard"`
}

// StorageBackend selects the session persister.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageFile   StorageBackend = "file"
	StorageSQLite StorageBackend = "sqlite"
	StorageRedis  StorageBackend = "redis"
)

// SessionConfig picks where the credential survives restarts.
type SessionConfig struct {
	Backend     StorageBackend `env:"MPCONSOLE_SESSION_BACKEND"      envDefault:"file"`
	Path        string         `env:"MPCONSOLE_SESSION_PATH"`
	RedisAddr   string         `env:"MPCONSOLE_SESSION_REDIS_ADDR"   envDefault:"localhost:6379"`
	RedisPrefix string         `env:"MPCONSOLE_SESSION_REDIS_PREFIX" envDefault:"mpconsole:"`
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"MPCONSOLE_AUDIT_ENABLED"      envDefault:"false"`
	BufferSize int  `env:"MPCONSOLE_AUDIT_BUFFER_SIZE"  envDefault:"1024"`
	DropIfFull bool `env:"MPCONSOLE_AUDIT_DROP_IF_FULL" envDefault:"true"`
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"MPCONSOLE_METRICS_ENABLED"           envDefault:"false"`
	EnableLatencyHistograms bool `env:"MPCONSOLE_METRICS_LATENCY_HISTOGRAM" envDefault:"false"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:   apiclient.DefaultBaseURL,
			Timeout:   apiclient.DefaultTimeout,
			UserAgent: "mpconsole",
		},
		Route: RouteConfig{
			LoginPath:   router.LoginPath,
			LandingPath: router.ArticlesPath,
			RootRule:    router.RootRuleGuard.String(),
		},
		Session: SessionConfig{
			Backend:     StorageFile,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "mpconsole:",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

// LoadConfigFromEnv reads MPCONSOLE_* variables over the defaults.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API BaseURL %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}

	// Routes
	if !strings.HasPrefix(c.Route.LoginPath, "/") {
		return errors.New("Route LoginPath must start with /")
	}
	if !strings.HasPrefix(c.Route.LandingPath, "/") {
		return errors.New("Route LandingPath must start with /")
	}
	if router.Normalize(c.Route.LoginPath) == router.Normalize(c.Route.LandingPath) {
		return errors.New("Route LoginPath and LandingPath must differ")
	}
	if _, ok := router.ParseRootRule(c.Route.RootRule); !ok {
		return fmt.Errorf("unsupported Route RootRule %q", c.Route.RootRule)
	}

	// Session
	switch c.Session.Backend {
	case StorageMemory, StorageFile:
	case StorageSQLite:
		if strings.TrimSpace(c.Session.Path) == "" {
			return errors.New("Session Path is required for the sqlite backend")
		}
	case StorageRedis:
		if strings.TrimSpace(c.Session.RedisAddr) == "" {
			return errors.New("Session RedisAddr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported session backend %q", c.Session.Backend)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
