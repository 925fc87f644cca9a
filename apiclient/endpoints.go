package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Login exchanges a username and password for a token. A rejected login
// returns ErrInvalidCredentials and does not fire the unauthorized hook.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: username and password are required", ErrInvalidCredentials)
	}

	var out LoginResult
	err := c.Do(withCredentialExchange(ctx), http.MethodPost, "/auth/login", nil, map[string]string{
		"username": strings.TrimSpace(username),
		"password": password,
	}, &out)
	if err != nil {
		switch StatusCode(err) {
		case http.StatusUnauthorized, http.StatusBadRequest:
			return LoginResult{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, errors.New("login response carried no token")
	}
	if out.Username == "" {
		out.Username = strings.TrimSpace(username)
	}
	return out, nil
}

// Me checks the current token against the API.
func (c *Client) Me(ctx context.Context) error {
	return c.Do(ctx, http.MethodGet, "/auth/me", nil, nil, nil)
}

// Health returns the API liveness status.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.Do(ctx, http.MethodGet, "/health", nil, nil, &out)
	return out, err
}

// ListArticles returns one page of articles, newest first.
func (c *Client) ListArticles(ctx context.Context, q ArticleQuery) (ArticlePage, error) {
	v := url.Values{}
	setNonEmpty(v, "mp_name", q.MPName)
	setNonEmpty(v, "q", q.Q)
	setNonEmpty(v, "start", q.Start)
	setNonEmpty(v, "end", q.End)
	setPositive(v, "page", q.Page)
	setPositive(v, "page_size", q.PageSize)

	var out ArticlePage
	err := c.Do(ctx, http.MethodGet, "/articles", v, nil, &out)
	return out, err
}

// ListTargets returns targets whose name matches q.
func (c *Client) ListTargets(ctx context.Context, q string) ([]Target, error) {
	v := url.Values{}
	setNonEmpty(v, "q", strings.TrimSpace(q))

	var out []Target
	err := c.Do(ctx, http.MethodGet, "/targets", v, nil, &out)
	return out, err
}

// GetTarget returns one target.
func (c *Client) GetTarget(ctx context.Context, id string) (Target, error) {
	var out Target
	err := c.Do(ctx, http.MethodGet, "/targets/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// CreateTarget creates a target. Name and AccountID are required by the API.
func (c *Client) CreateTarget(ctx context.Context, in TargetInput) (Target, error) {
	var out Target
	err := c.Do(ctx, http.MethodPost, "/targets", nil, in, &out)
	return out, err
}

// UpdateTarget applies the non-nil fields of in.
func (c *Client) UpdateTarget(ctx context.Context, id string, in TargetInput) (Target, error) {
	var out Target
	err := c.Do(ctx, http.MethodPut, "/targets/"+url.PathEscape(id), nil, in, &out)
	return out, err
}

// DeleteTarget removes a target.
func (c *Client) DeleteTarget(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/targets/"+url.PathEscape(id), nil, nil, nil)
}

// RunTarget triggers an immediate crawl.
func (c *Client) RunTarget(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodPost, "/targets/"+url.PathEscape(id)+"/run", nil, nil, nil)
}

// ListCategories returns the distinct target categories.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	err := c.Do(ctx, http.MethodGet, "/targets/categories", nil, nil, &out)
	return out, err
}

// ListAccounts returns accounts whose name matches q.
func (c *Client) ListAccounts(ctx context.Context, q string) ([]Account, error) {
	v := url.Values{}
	setNonEmpty(v, "q", strings.TrimSpace(q))

	var out []Account
	err := c.Do(ctx, http.MethodGet, "/mp-accounts", v, nil, &out)
	return out, err
}

// CreateAccount creates an account. Name, Token and Cookie are required.
func (c *Client) CreateAccount(ctx context.Context, in AccountInput) (Account, error) {
	var out Account
	err := c.Do(ctx, http.MethodPost, "/mp-accounts", nil, in, &out)
	return out, err
}

// UpdateAccount applies the non-nil fields of in.
func (c *Client) UpdateAccount(ctx context.Context, id string, in AccountInput) (Account, error) {
	var out Account
	err := c.Do(ctx, http.MethodPut, "/mp-accounts/"+url.PathEscape(id), nil, in, &out)
	return out, err
}

// DeleteAccount removes an account.
func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/mp-accounts/"+url.PathEscape(id), nil, nil, nil)
}

// ListLogs returns one page of crawl logs.
func (c *Client) ListLogs(ctx context.Context, q LogQuery) (LogPage, error) {
	v := url.Values{}
	setNonEmpty(v, "target_id", q.TargetID)
	setNonEmpty(v, "target_name", q.TargetName)
	setNonEmpty(v, "status", q.Status)
	if q.LatestOnly {
		v.Set("latest_only", "true")
	}
	setPositive(v, "page", q.Page)
	setPositive(v, "page_size", q.PageSize)

	var out LogPage
	err := c.Do(ctx, http.MethodGet, "/logs", v, nil, &out)
	return out, err
}

// CleanupLogs marks stale in-progress logs as timed out.
func (c *Client) CleanupLogs(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/logs/cleanup", nil, nil, nil)
}

// RefreshJobs asks the API to reload its crawl schedule.
func (c *Client) RefreshJobs(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/admin/refresh-jobs", nil, nil, nil)
}

func setNonEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setPositive(v url.Values, key string, value int) {
	if value > 0 {
		v.Set(key, strconv.Itoa(value))
	}
}
