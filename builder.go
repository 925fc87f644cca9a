package mpconsole

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/mpconsole/apiclient"
	"github.com/MrEthical07/mpconsole/router"
	"github.com/MrEthical07/mpconsole/session"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// Builder assembles a [Console]. A Builder is single-use.
type Builder struct {
	config Config

	persister session.Persister
	redis     redis.UniversalClient
	logger    *slog.Logger
	auditSink AuditSink
	http      *http.Client
	tracer    trace.TracerProvider
	routes    *router.Table

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithPersister overrides the persister chosen by Config.Session.Backend.
// The console closes it on Close.
func (b *Builder) WithPersister(p session.Persister) *Builder {
	b.persister = p
	return b
}

// WithRedis selects the Redis backend on an existing client. The client is
// not closed by the console.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	b.config.Session.Backend = StorageRedis
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithHTTPClient sends API traffic through hc's transport.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.http = hc
	return b
}

func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracer = tp
	return b
}

// WithRoutes replaces [router.DefaultTable]. The table must contain the
// configured login and landing paths.
func (b *Builder) WithRoutes(table *router.Table) *Builder {
	b.routes = table
	return b
}

// Build validates the configuration and wires the console. It performs no
// I/O beyond opening the persister; call [Console.Start] to load the session.
func (b *Builder) Build() (*Console, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	table := b.routes
	if table == nil {
		table = router.DefaultTable()
	}
	for _, p := range []string{cfg.Route.LoginPath, cfg.Route.LandingPath} {
		if _, ok := table.Lookup(p); !ok {
			return nil, fmt.Errorf("%w: %s", ErrRouteUnavailable, p)
		}
	}
	rule, _ := router.ParseRootRule(cfg.Route.RootRule)

	persister, closers, err := b.openPersister(cfg.Session)
	if err != nil {
		return nil, err
	}

	c := &Console{
		config:  cfg,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink, logger),
		closers: closers,
	}
	c.session = session.NewStore(persister, logger)
	c.session.Subscribe(c.onSessionChange)

	guard := router.NewGuard(router.GuardConfig{
		LoginPath:   cfg.Route.LoginPath,
		LandingPath: cfg.Route.LandingPath,
		RootRule:    rule,
	}, c.session)
	c.nav = router.NewNavigator(guard, table)

	opts := []apiclient.Option{
		apiclient.WithUnauthorizedHandler(c.handleUnauthorized),
		apiclient.WithLogger(logger),
	}
	if b.http != nil {
		opts = append(opts, apiclient.WithHTTPClient(b.http))
	}
	if b.tracer != nil {
		opts = append(opts, apiclient.WithTracerProvider(b.tracer))
	}
	if c.metrics.Enabled() {
		opts = append(opts, apiclient.WithObserver(requestObserver{metrics: c.metrics}))
	}

	api, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	}, c.session, opts...)
	if err != nil {
		c.audit.Close()
		_ = c.session.Close()
		closeAll(closers)
		return nil, err
	}
	c.api = api

	b.built = true
	return c, nil
}

func (b *Builder) openPersister(cfg SessionConfig) (session.Persister, []io.Closer, error) {
	if b.persister != nil {
		return b.persister, nil, nil
	}

	switch cfg.Backend {
	case StorageMemory:
		return session.NewMemoryPersister(), nil, nil
	case StorageSQLite:
		p, err := session.OpenSQLitePersister(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	case StorageRedis:
		if b.redis != nil {
			return session.NewRedisPersister(b.redis, cfg.RedisPrefix), nil, nil
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return session.NewRedisPersister(client, cfg.RedisPrefix), []io.Closer{client}, nil
	default:
		path := cfg.Path
		if path == "" {
			path = session.DefaultFilePath()
		}
		p, err := session.NewFilePersister(path)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
