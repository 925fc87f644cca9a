package router

import "testing"

type fakeSession bool

func (f fakeSession) Authenticated() bool { return bool(f) }

func TestGuardUnauthenticatedRedirectsToLogin(t *testing.T) {
	g := NewGuard(GuardConfig{}, fakeSession(false))

	for _, to := range []string{"/", "/articles", "/config", "/logs", "/unknown", "articles/", "/logs?page=2"} {
		d := g.Check(Request{To: to, From: "/articles"})
		if d.Action != Redirect || d.Target != LoginPath || d.Reason != ReasonLogin {
			t.Fatalf("to=%q: expected login redirect, got %+v", to, d)
		}
	}
}

func TestGuardLoginAlwaysAllowed(t *testing.T) {
	for _, authed := range []bool{false, true} {
		g := NewGuard(GuardConfig{}, fakeSession(authed))
		for _, to := range []string{"/login", "/login/", "login", "/login?next=/logs"} {
			d := g.Check(Request{To: to})
			if d.Action != Allow {
				t.Fatalf("authed=%v to=%q: expected allow, got %+v", authed, to, d)
			}
		}
	}
}

func TestGuardRootRedirectsAuthenticatedToLanding(t *testing.T) {
	g := NewGuard(GuardConfig{LandingPath: "/articles"}, fakeSession(true))

	d := g.Check(Request{To: "/"})
	if d.Action != Redirect || d.Target != "/articles" || d.Reason != ReasonLanding {
		t.Fatalf("expected landing redirect, got %+v", d)
	}
}

func TestGuardRouteOnlyRuleLeavesRootAlone(t *testing.T) {
	g := NewGuard(GuardConfig{RootRule: RootRuleRouteOnly}, fakeSession(true))

	if d := g.Check(Request{To: "/"}); d.Action != Allow {
		t.Fatalf("expected allow under route-only rule, got %+v", d)
	}
}

func TestGuardAuthenticatedAllowsApplicationPaths(t *testing.T) {
	g := NewGuard(GuardConfig{}, fakeSession(true))

	for _, to := range []string{"/articles", "/config", "/logs"} {
		if d := g.Check(Request{To: to}); d.Action != Allow || d.Target != to {
			t.Fatalf("to=%q: expected allow, got %+v", to, d)
		}
	}
}

func TestGuardNilSessionIsUnauthenticated(t *testing.T) {
	g := NewGuard(GuardConfig{}, nil)
	if d := g.Check(Request{To: "/articles"}); d.Target != LoginPath {
		t.Fatalf("expected login redirect, got %+v", d)
	}
}

func TestGuardReadsLiveSession(t *testing.T) {
	state := &toggleSession{}
	g := NewGuard(GuardConfig{}, state)

	if d := g.Check(Request{To: "/logs"}); d.Action != Redirect {
		t.Fatalf("expected redirect before login, got %+v", d)
	}
	state.on = true
	if d := g.Check(Request{To: "/logs"}); d.Action != Allow {
		t.Fatalf("expected allow after login, got %+v", d)
	}
}

type toggleSession struct{ on bool }

func (s *toggleSession) Authenticated() bool { return s.on }

func TestParseRootRule(t *testing.T) {
	tests := []struct {
		in   string
		want RootRule
		ok   bool
	}{
		{"", RootRuleGuard, true},
		{"guard", RootRuleGuard, true},
		{"route", RootRuleRouteOnly, true},
		{"nope", RootRuleGuard, false},
	}
	for _, tt := range tests {
		got, ok := ParseRootRule(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseRootRule(%q) = %v, %v", tt.in, got, ok)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"articles", "/articles"},
		{"/articles/", "/articles"},
		{"/logs?page=2", "/logs"},
		{"/config#top", "/config"},
		{"  /login//  ", "/login"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
