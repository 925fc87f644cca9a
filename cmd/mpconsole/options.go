package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/mpconsole"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New(`not logged in; run "mpconsole login"`)

type globalOptions struct {
	baseURL     string
	storage     string
	storagePath string
	redisAddr   string
	timeout     time.Duration
	logLevel    string
	jsonOutput  bool
}

func (o *globalOptions) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.baseURL, "base-url", "", "API base URL (env MPCONSOLE_API_BASE_URL)")
	f.StringVar(&o.storage, "storage", "", "session storage: memory, file, sqlite or redis (env MPCONSOLE_SESSION_BACKEND)")
	f.StringVar(&o.storagePath, "storage-path", "", "session file or sqlite database path (env MPCONSOLE_SESSION_PATH)")
	f.StringVar(&o.redisAddr, "redis-addr", "", "redis address for the redis storage (env MPCONSOLE_SESSION_REDIS_ADDR)")
	f.DurationVar(&o.timeout, "timeout", 0, "per-request timeout (env MPCONSOLE_API_TIMEOUT)")
	f.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	f.BoolVar(&o.jsonOutput, "json", false, "print results as JSON")
}

func (o *globalOptions) config(cmd *cobra.Command) (mpconsole.Config, error) {
	cfg, err := mpconsole.LoadConfigFromEnv()
	if err != nil {
		return mpconsole.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.API.BaseURL = o.baseURL
	}
	if flags.Changed("storage") {
		cfg.Session.Backend = mpconsole.StorageBackend(o.storage)
	}
	if flags.Changed("storage-path") {
		cfg.Session.Path = o.storagePath
	}
	if flags.Changed("redis-addr") {
		cfg.Session.RedisAddr = o.redisAddr
	}
	if flags.Changed("timeout") {
		cfg.API.Timeout = o.timeout
	}
	cfg.API.UserAgent = "mpconsole/" + version

	if err := cfg.Validate(); err != nil {
		return mpconsole.Config{}, err
	}
	return cfg, nil
}

func (o *globalOptions) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(o.logLevel))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", o.logLevel)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// open builds and starts a console. The returned console is already on its
// initial location; callers must Close it.
func (o *globalOptions) open(cmd *cobra.Command) (*mpconsole.Console, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := o.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	// MPCONSOLE_AUDIT_ENABLED=true logs session changes alongside the
	// diagnostic log.
	console, err := mpconsole.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithAuditSink(mpconsole.NewSlogSink(logger)).
		Build()
	if err != nil {
		return nil, err
	}

	stderr := cmd.ErrOrStderr()
	console.OnHardRedirect(func(path string) {
		fmt.Fprintf(stderr, "Session expired or revoked; stored credentials cleared (now at %s).\n", path)
	})

	if _, err := console.Start(cmd.Context()); err != nil {
		_ = console.Close()
		return nil, err
	}
	return console, nil
}

// withSession opens a console and fails early when no session is stored.
func (o *globalOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, c *mpconsole.Console) error) error {
	console, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer console.Close()

	if !console.Session().Authenticated() {
		return errNotLoggedIn
	}
	return fn(cmd.Context(), console)
}

func (o *globalOptions) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
