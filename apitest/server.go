package apitest

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/mpconsole/apiclient"
	"github.com/MrEthical07/mpconsole/jwt"
	"github.com/MrEthical07/mpconsole/middleware"
	"github.com/go-chi/chi/v5"
)

// DefaultUser and DefaultPassword are seeded into every server.
const (
	DefaultUser     = "admin"
	DefaultPassword = "admin123"
)

var errRevoked = errors.New("token revoked")

// Recorded is one request seen by the server.
type Recorded struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	RequestID     string
}

type forcedKey struct {
	method string
	path   string
}

// Server is the fake API.
type Server struct {
	srv    *httptest.Server
	tokens *jwt.Manager

	mu       sync.Mutex
	users    map[string]string
	revoked  map[string]bool
	forced   map[forcedKey]int
	delay    time.Duration
	requests []Recorded

	articles []apiclient.Article
	targets  []apiclient.Target
	accounts []apiclient.Account
	logs     []apiclient.LogEntry
	runs     map[string]int
}

// New starts a server and closes it when tb finishes.
func New(tb testing.TB) *Server {
	tb.Helper()

	mgr, err := jwt.NewManager(jwt.Config{
		TTL:        24 * time.Hour,
		PrivateKey: []byte("apitest-secret"),
		Issuer:     "apitest",
	})
	if err != nil {
		tb.Fatalf("apitest: token manager: %v", err)
	}

	s := &Server{
		tokens:  mgr,
		users:   map[string]string{DefaultUser: DefaultPassword},
		revoked: map[string]bool{},
		forced:  map[forcedKey]int{},
		runs:    map[string]int{},
	}
	s.srv = httptest.NewServer(s.routes())
	tb.Cleanup(s.srv.Close)
	return s
}

// URL is the API prefix, suitable for apiclient.Config.BaseURL.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Client returns an http.Client wired to the test server.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// AddUser registers a login.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// IssueToken mints a valid token for username without a login round trip.
func (s *Server) IssueToken(username string) string {
	token, err := s.tokens.Issue("uid-"+username, username)
	if err != nil {
		panic(err)
	}
	return token
}

// Revoke makes every later request carrying token fail with 401.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// ForceStatus makes method+path (path relative to /api) answer status until
// cleared with status 0.
func (s *Server) ForceStatus(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := forcedKey{method: method, path: "/api" + path}
	if status == 0 {
		delete(s.forced, key)
		return
	}
	s.forced[key] = status
}

// SetDelay stalls every response by d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Requests returns the recorded requests, oldest first.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Recorded{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Runs returns how often a target was triggered.
func (s *Server) Runs(targetID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[targetID]
}

// SeedArticles appends articles.
func (s *Server) SeedArticles(items ...apiclient.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = append(s.articles, items...)
}

// SeedLogs appends crawl logs.
func (s *Server) SeedLogs(items ...apiclient.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, items...)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.stall, s.force)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireBearer(revocableVerifier{s}))

			r.Get("/auth/me", s.handleMe)
			r.Get("/articles", s.handleListArticles)

			r.Get("/targets", s.handleListTargets)
			r.Post("/targets", s.handleCreateTarget)
			r.Get("/targets/categories", s.handleCategories)
			r.Get("/targets/{id}", s.handleGetTarget)
			r.Put("/targets/{id}", s.handleUpdateTarget)
			r.Delete("/targets/{id}", s.handleDeleteTarget)
			r.Post("/targets/{id}/run", s.handleRunTarget)

			r.Get("/mp-accounts", s.handleListAccounts)
			r.Post("/mp-accounts", s.handleCreateAccount)
			r.Put("/mp-accounts/{id}", s.handleUpdateAccount)
			r.Delete("/mp-accounts/{id}", s.handleDeleteAccount)

			r.Get("/logs", s.handleListLogs)
			r.Post("/logs/cleanup", s.handleCleanupLogs)

			r.Post("/admin/refresh-jobs", s.handleRefreshJobs)
		})
	})
	return r
}

type revocableVerifier struct {
	s *Server
}

func (v revocableVerifier) Parse(token string) (*jwt.Claims, error) {
	v.s.mu.Lock()
	revoked := v.s.revoked[token]
	v.s.mu.Unlock()
	if revoked {
		return nil, errRevoked
	}
	return v.s.tokens.Parse(token)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) stall(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		d := s.delay
		s.mu.Unlock()
		if d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) force(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.forced[forcedKey{method: r.Method, path: r.URL.Path}]
		s.mu.Unlock()
		if ok {
			if status == http.StatusUnauthorized {
				middleware.Unauthorized(w)
				return
			}
			writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}
