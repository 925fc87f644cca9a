package router

import (
	"errors"
	"strings"
)

// Default paths.
const (
	RootPath     = "/"
	LoginPath    = "/login"
	ConfigPath   = "/config"
	ArticlesPath = "/articles"
	LogsPath     = "/logs"
)

var (
	// ErrRouteNotFound is returned when no route matches the settled path.
	ErrRouteNotFound = errors.New("route not found")
	// ErrRedirectLoop is returned when redirects do not settle.
	ErrRedirectLoop = errors.New("redirect loop")
	// ErrDuplicateRoute is returned by NewTable for repeated paths.
	ErrDuplicateRoute = errors.New("duplicate route")
)

// Route is one navigable path. A route with Redirect set never renders; the
// navigator continues to Redirect.
type Route struct {
	Path     string
	Name     string
	Redirect string
}

// Table is an immutable set of routes keyed by normalized path.
type Table struct {
	routes map[string]Route
	order  []string
}

// NewTable builds a table from routes.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{routes: make(map[string]Route, len(routes))}
	for _, r := range routes {
		r.Path = Normalize(r.Path)
		if r.Redirect != "" {
			r.Redirect = Normalize(r.Redirect)
		}
		if _, ok := t.routes[r.Path]; ok {
			return nil, errors.Join(ErrDuplicateRoute, errors.New(r.Path))
		}
		t.routes[r.Path] = r
		t.order = append(t.order, r.Path)
	}
	return t, nil
}

// DefaultTable is the console's route set: login, the three application
// pages, and a root that redirects to the article list.
func DefaultTable() *Table {
	t, _ := NewTable(
		Route{Path: LoginPath, Name: "login"},
		Route{Path: ConfigPath, Name: "config"},
		Route{Path: ArticlesPath, Name: "articles"},
		Route{Path: LogsPath, Name: "logs"},
		Route{Path: RootPath, Name: "root", Redirect: ArticlesPath},
	)
	return t
}

// Lookup returns the route for path.
func (t *Table) Lookup(path string) (Route, bool) {
	r, ok := t.routes[Normalize(path)]
	return r, ok
}

// Routes returns the routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, 0, len(t.order))
	for _, p := range t.order {
		out = append(out, t.routes[p])
	}
	return out
}

// Normalize strips query and fragment, ensures a leading slash and trims a
// trailing one.
func Normalize(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
