package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrEthical07/mpconsole/apiclient"
	"github.com/MrEthical07/mpconsole/apitest"
	"github.com/MrEthical07/mpconsole/session"
)

type cli struct {
	t       *testing.T
	srv     *apitest.Server
	storage string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("MPCONSOLE_PASSWORD", "")
	return &cli{
		t:       t,
		srv:     apitest.New(t),
		storage: filepath.Join(t.TempDir(), "storage.json"),
	}
}

func (c *cli) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--base-url", c.srv.URL(),
		"--storage", "file",
		"--storage-path", c.storage,
		"--log-level", "error",
	}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (c *cli) login() {
	c.t.Helper()
	if _, _, err := c.run(apitest.DefaultPassword+"\n", "login", "-u", apitest.DefaultUser, "--password-stdin"); err != nil {
		c.t.Fatalf("login: %v", err)
	}
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(apitest.DefaultPassword+"\n", "login", "-u", apitest.DefaultUser, "--password-stdin")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Logged in as admin") || !strings.Contains(out, "/articles") {
		t.Fatalf("unexpected login output %q", out)
	}

	out, _, err = c.run("", "--json", "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	var info whoami
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode whoami: %v (%q)", err, out)
	}
	if info.Username != "admin" || info.UserID != "uid-admin" || info.Expired {
		t.Fatalf("unexpected whoami %+v", info)
	}
}

func TestLoginRejected(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "login", "-u", "admin", "-p", "wrong")
	if err == nil || !strings.Contains(err.Error(), "invalid username or password") {
		t.Fatalf("expected rejection, got %v", err)
	}

	_, _, err = c.run("", "whoami")
	if !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("expected errNotLoggedIn, got %v", err)
	}
}

func TestLoginRequiresPassword(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "login", "-u", "admin")
	if err == nil || !strings.Contains(err.Error(), "no password") {
		t.Fatalf("expected missing password error, got %v", err)
	}
	if got := len(c.srv.Requests()); got != 0 {
		t.Fatalf("expected no requests, got %d", got)
	}
}

func TestPasswordFromEnv(t *testing.T) {
	c := newCLI(t)
	t.Setenv("MPCONSOLE_PASSWORD", apitest.DefaultPassword)

	if _, _, err := c.run("", "login", "-u", apitest.DefaultUser); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestRevokedTokenClearsStoredSession(t *testing.T) {
	c := newCLI(t)
	c.login()

	token := storedToken(t, c)
	c.srv.Revoke(token)

	_, stderr, err := c.run("", "targets", "list")
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !strings.Contains(stderr, "stored credentials cleared") {
		t.Fatalf("expected invalidation notice, got %q", stderr)
	}

	_, _, err = c.run("", "whoami")
	if !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("expected session to be gone, got %v", err)
	}
}

func TestTargetsLifecycle(t *testing.T) {
	c := newCLI(t)
	c.login()

	out, _, err := c.run("", "--json", "targets", "create", "--name", "daily-news", "--account", "acc-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var created apiclient.Target
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode target: %v", err)
	}

	out, _, err = c.run("", "targets", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "daily-news") || !strings.Contains(out, "daily 09:00,13:00,18:00,22:00") {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	if _, _, err := c.run("", "targets", "run", created.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := c.srv.Runs(created.ID); got != 1 {
		t.Fatalf("expected 1 run, got %d", got)
	}

	out, _, err = c.run("", "targets", "disable", created.ID)
	if err != nil || !strings.Contains(out, "enabled=false") {
		t.Fatalf("disable: %q %v", out, err)
	}

	if _, _, err := c.run("", "targets", "delete", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, _, err = c.run("", "targets", "get", created.ID)
	if !errors.Is(err, apiclient.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNavReportsRedirects(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run("", "nav", "/logs")
	if err != nil {
		t.Fatalf("nav: %v", err)
	}
	if !strings.Contains(out, "/logs -> /login") || !strings.Contains(out, "at /login") {
		t.Fatalf("unexpected nav output:\n%s", out)
	}

	c.login()
	out, _, err = c.run("", "nav", "/")
	if err != nil {
		t.Fatalf("nav: %v", err)
	}
	if !strings.Contains(out, "at /articles") {
		t.Fatalf("unexpected nav output:\n%s", out)
	}

	_, _, err = c.run("", "nav", "/nope")
	if err == nil || !strings.Contains(err.Error(), "known paths") {
		t.Fatalf("expected unknown path error, got %v", err)
	}
}

func TestLogoutTwice(t *testing.T) {
	c := newCLI(t)
	c.login()

	out, _, err := c.run("", "logout")
	if err != nil || !strings.Contains(out, "Logged out") {
		t.Fatalf("logout: %q %v", out, err)
	}
	out, _, err = c.run("", "logout")
	if err != nil || !strings.Contains(out, "Not logged in") {
		t.Fatalf("second logout: %q %v", out, err)
	}
}

func TestHealthNeedsNoSession(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run("", "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !strings.Contains(out, c.srv.URL()) {
		t.Fatalf("unexpected health output %q", out)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "--log-level", "loud", "health")
	if err == nil || !strings.Contains(err.Error(), "--log-level") {
		t.Fatalf("expected log level error, got %v", err)
	}
}

func storedToken(t *testing.T, c *cli) string {
	t.Helper()
	p, err := session.NewFilePersister(c.storage)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	cred, err := p.Load(t.Context())
	if err != nil {
		t.Fatalf("load storage: %v", err)
	}
	if cred.Token == "" {
		t.Fatal("expected a stored token")
	}
	return cred.Token
}

func TestAuditLogsToStderr(t *testing.T) {
	c := newCLI(t)
	t.Setenv("MPCONSOLE_AUDIT_ENABLED", "true")

	_, stderr, err := c.run(apitest.DefaultPassword+"\n",
		"--log-level", "info", "login", "-u", apitest.DefaultUser, "--password-stdin")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(stderr, "event=login_success") {
		t.Fatalf("expected audit line on stderr, got %q", stderr)
	}
	if strings.Contains(stderr, apitest.DefaultPassword) {
		t.Fatal("password leaked into the log")
	}
}
