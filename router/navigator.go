package router

import (
	"fmt"
	"sync"
)

const (
	maxHops      = 8
	historyLimit = 64
)

// Hop is one redirect taken while resolving a navigation.
type Hop struct {
	From   string
	To     string
	Reason Reason
}

// Result describes a finished navigation.
type Result struct {
	From  string
	To    string
	Route Route
	Hops  []Hop
	Hard  bool
}

// Redirected reports whether the navigation ended somewhere other than where
// it was aimed.
func (r Result) Redirected() bool {
	return len(r.Hops) > 0
}

// Navigator resolves navigations and tracks the current location.
type Navigator struct {
	guard *Guard
	table *Table

	mu      sync.Mutex
	current string
	history []Result
}

// NewNavigator creates a navigator with no current location.
func NewNavigator(guard *Guard, table *Table) *Navigator {
	if table == nil {
		table = DefaultTable()
	}
	return &Navigator{
		guard: guard,
		table: table,
	}
}

// Guard returns the navigator's guard.
func (n *Navigator) Guard() *Guard { return n.guard }

// Table returns the route table.
func (n *Navigator) Table() *Table { return n.table }

// Current returns the current location, empty before the first navigation.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// History returns completed navigations, oldest first.
func (n *Navigator) History() []Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Result, len(n.history))
	copy(out, n.history)
	return out
}

// Navigate resolves to through the guard and the route table. On error the
// current location is unchanged.
func (n *Navigator) Navigate(to string) (Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	from := n.current
	path := Normalize(to)
	var hops []Hop

	for i := 0; ; i++ {
		if i >= maxHops {
			return Result{}, fmt.Errorf("%w: navigating to %s", ErrRedirectLoop, Normalize(to))
		}

		d := n.guard.Check(Request{To: path, From: from})
		if d.Action == Redirect && d.Target != path {
			hops = append(hops, Hop{From: path, To: d.Target, Reason: d.Reason})
			path = d.Target
			continue
		}

		route, ok := n.table.Lookup(path)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
		}
		if route.Redirect != "" && route.Redirect != path {
			hops = append(hops, Hop{From: path, To: route.Redirect, Reason: ReasonRoute})
			path = route.Redirect
			continue
		}

		res := Result{From: from, To: path, Route: route, Hops: hops}
		n.record(res)
		return res, nil
	}
}

// HardRedirect moves to path without consulting the guard or the route
// table, the way a full page load replaces the location.
func (n *Navigator) HardRedirect(path string) Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	path = Normalize(path)
	route, _ := n.table.Lookup(path)
	res := Result{From: n.current, To: path, Route: route, Hard: true}
	n.record(res)
	return res
}

func (n *Navigator) record(res Result) {
	n.current = res.To
	n.history = append(n.history, res)
	if len(n.history) > historyLimit {
		n.history = append(n.history[:0:0], n.history[len(n.history)-historyLimit:]...)
	}
}
