package mpconsole

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/mpconsole/apiclient"
	"github.com/MrEthical07/mpconsole/router"
	"github.com/MrEthical07/mpconsole/session"
)

// Console wires the session store, the API client and the navigator into one
// application shell. All methods are safe for concurrent use.
type Console struct {
	config  Config
	logger  *slog.Logger
	session *session.Store
	api     *apiclient.Client
	nav     *router.Navigator
	metrics *Metrics
	audit   *auditDispatcher
	closers []io.Closer

	hookMu        sync.RWMutex
	redirectHooks []func(path string)

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Start loads the persisted session and settles the initial location by
// navigating to the root path.
func (c *Console) Start(ctx context.Context) (router.Result, error) {
	if c.closed.Load() {
		return router.Result{}, ErrConsoleClosed
	}

	cred := c.session.Load(ctx)
	c.logger.Info("console: session loaded",
		slog.Bool("authenticated", cred.Authenticated()),
		slog.String("username", cred.Username),
	)
	return c.Navigate(router.RootPath)
}

// Login exchanges credentials with the API, stores the session and moves to
// the landing page. Rejected credentials return an error matching
// [ErrInvalidCredentials] and leave the session untouched.
func (c *Console) Login(ctx context.Context, username, password string) (router.Result, error) {
	if c.closed.Load() {
		return router.Result{}, ErrConsoleClosed
	}

	res, err := c.api.Login(ctx, username, password)
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
		c.audit.Emit(ctx, AuditEvent{
			EventType: AuditLoginFailure,
			Username:  username,
			Error:     loginFailureReason(err),
		})
		return router.Result{}, err
	}

	if err := c.session.Set(ctx, session.Credential{Token: res.Token, Username: res.Username}); err != nil {
		c.metrics.Inc(MetricLoginFailure)
		c.audit.Emit(ctx, AuditEvent{
			EventType: AuditLoginFailure,
			Username:  res.Username,
			Error:     "session_persist_failed",
		})
		return router.Result{}, fmt.Errorf("store session: %w", err)
	}

	c.metrics.Inc(MetricLoginSuccess)
	c.audit.Emit(ctx, AuditEvent{
		EventType: AuditLoginSuccess,
		Username:  res.Username,
		Success:   true,
	})
	c.logger.Info("console: logged in", slog.String("username", res.Username))

	return c.Navigate(c.nav.Guard().LandingPath())
}

// Logout clears the session and moves to the login page. The in-memory
// session is cleared even if the persister fails; that failure is returned
// after navigation completes.
func (c *Console) Logout(ctx context.Context) (router.Result, error) {
	if c.closed.Load() {
		return router.Result{}, ErrConsoleClosed
	}

	username := c.session.Current().Username
	clearErr := c.session.Clear(ctx)

	c.metrics.Inc(MetricLogout)
	c.audit.Emit(ctx, AuditEvent{
		EventType: AuditLogout,
		Username:  username,
		Success:   clearErr == nil,
		Error:     errorString(clearErr),
	})

	res, navErr := c.Navigate(c.nav.Guard().LoginPath())
	return res, errors.Join(clearErr, navErr)
}

// Navigate runs a guarded navigation to path.
func (c *Console) Navigate(path string) (router.Result, error) {
	res, err := c.nav.Navigate(path)
	if err != nil {
		c.logger.Warn("console: navigation failed", slog.String("to", path), slog.Any("error", err))
		return res, err
	}

	if !res.Redirected() {
		c.metrics.Inc(MetricNavigationAllowed)
	}
	for _, hop := range res.Hops {
		switch hop.Reason {
		case router.ReasonLogin:
			c.metrics.Inc(MetricRedirectLogin)
		case router.ReasonLanding:
			c.metrics.Inc(MetricRedirectLanding)
		case router.ReasonRoute:
			c.metrics.Inc(MetricRedirectRoute)
		}
	}
	c.logger.Debug("console: navigated",
		slog.String("from", res.From),
		slog.String("to", res.To),
		slog.Int("hops", len(res.Hops)),
	)
	return res, nil
}

// Location returns the current path, empty before Start.
func (c *Console) Location() string {
	return c.nav.Current()
}

// API returns the shared client. Every request it sends carries the live
// session token.
func (c *Console) API() *apiclient.Client {
	return c.api
}

func (c *Console) Session() *session.Store {
	return c.session
}

func (c *Console) Navigator() *router.Navigator {
	return c.nav
}

func (c *Console) Config() Config {
	return c.config
}

// OnHardRedirect registers fn to run after every hard redirect with the
// destination path.
func (c *Console) OnHardRedirect(fn func(path string)) {
	if fn == nil {
		return
	}
	c.hookMu.Lock()
	c.redirectHooks = append(c.redirectHooks, fn)
	c.hookMu.Unlock()
}

// handleUnauthorized runs once per 401 response outside a login exchange.
func (c *Console) handleUnauthorized(ctx context.Context, statusErr *apiclient.StatusError) {
	if c.closed.Load() {
		return
	}

	loginPath := c.nav.Guard().LoginPath()
	onLogin := c.nav.Current() == loginPath
	username := c.session.Current().Username

	c.metrics.Inc(MetricSessionInvalidated)
	if err := c.session.Clear(ctx); err != nil {
		c.logger.Warn("console: clear after 401 failed", slog.Any("error", err))
	} else {
		// A hard redirect re-reads persisted state like a fresh page load.
		c.session.Load(ctx)
	}

	c.audit.Emit(ctx, AuditEvent{
		EventType: AuditSessionInvalidated,
		Username:  username,
		Path:      statusErr.Path,
		RequestID: statusErr.RequestID,
	})

	if onLogin {
		c.metrics.Inc(MetricHardRedirectSuppressed)
		c.logger.Info("console: session invalidated on login page, redirect suppressed",
			slog.String("request_path", statusErr.Path),
		)
		return
	}

	res := c.nav.HardRedirect(loginPath)
	c.metrics.Inc(MetricHardRedirect)
	c.audit.Emit(ctx, AuditEvent{
		EventType: AuditHardRedirect,
		Username:  username,
		Path:      res.To,
		RequestID: statusErr.RequestID,
		Success:   true,
		Metadata:  map[string]string{"from": res.From},
	})
	c.logger.Warn("console: session invalidated, redirected to login",
		slog.String("from", res.From),
		slog.String("request_path", statusErr.Path),
		slog.String("request_id", statusErr.RequestID),
	)

	c.hookMu.RLock()
	hooks := c.redirectHooks
	c.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(res.To)
	}
}

func (c *Console) onSessionChange(change session.Change) {
	switch change.Kind {
	case session.ChangeSet:
		c.metrics.Inc(MetricSessionSet)
	case session.ChangeClear:
		c.metrics.Inc(MetricSessionCleared)
	}
}

// MetricsSnapshot returns the current counters; empty when metrics are off.
func (c *Console) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped on a full queue.
func (c *Console) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// AuditDroppedByType splits AuditDropped by event type.
func (c *Console) AuditDroppedByType() map[AuditEventType]uint64 {
	return c.audit.DroppedByType()
}

// Close flushes pending audit events and releases the persister. The
// session is left as is so the next Start picks it up.
func (c *Console) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.audit.Close()
		c.closeErr = c.session.Close()
		closeAll(c.closers)
	})
	return c.closeErr
}

type requestObserver struct {
	metrics *Metrics
}

func (o requestObserver) ObserveRequest(info apiclient.RequestInfo) {
	o.metrics.Inc(MetricRequestSent)
	o.metrics.Observe(MetricRequestLatency, info.Duration)
	if info.Err == nil {
		return
	}
	o.metrics.Inc(MetricRequestFailed)
	if errors.Is(info.Err, apiclient.ErrTimeout) {
		o.metrics.Inc(MetricRequestTimeout)
	}
	if info.StatusCode == http.StatusUnauthorized {
		o.metrics.Inc(MetricUnauthorized)
	}
}

func loginFailureReason(err error) string {
	switch {
	case errors.Is(err, apiclient.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, apiclient.ErrTimeout):
		return "timeout"
	default:
		return "request_failed"
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
