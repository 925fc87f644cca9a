package router

// SessionState is the guard's view of the session.
type SessionState interface {
	Authenticated() bool
}

// RootRule selects how an authenticated visit to "/" is handled.
type RootRule uint8

const (
	// RootRuleGuard makes the guard itself redirect "/" to the landing page.
	RootRuleGuard RootRule = iota
	// RootRuleRouteOnly leaves "/" to the route table's redirect.
	RootRuleRouteOnly
)

func (r RootRule) String() string {
	switch r {
	case RootRuleGuard:
		return "guard"
	case RootRuleRouteOnly:
		return "route"
	default:
		return "unknown"
	}
}

// ParseRootRule maps "guard" and "route" to a [RootRule].
func ParseRootRule(s string) (RootRule, bool) {
	switch s {
	case "", "guard":
		return RootRuleGuard, true
	case "route":
		return RootRuleRouteOnly, true
	default:
		return RootRuleGuard, false
	}
}

// Action is the guard's verdict.
type Action uint8

const (
	// Allow lets the navigation proceed unchanged.
	Allow Action = iota
	// Redirect sends the navigation to Decision.Target.
	Redirect
)

// Reason says why a redirect happened.
type Reason uint8

const (
	ReasonNone Reason = iota
	// ReasonLogin: unauthenticated visit to a protected path.
	ReasonLogin
	// ReasonLanding: authenticated visit to the root path.
	ReasonLanding
	// ReasonRoute: the route table redirected.
	ReasonRoute
)

func (r Reason) String() string {
	switch r {
	case ReasonLogin:
		return "login"
	case ReasonLanding:
		return "landing"
	case ReasonRoute:
		return "route"
	default:
		return "none"
	}
}

// Request is one attempted navigation.
type Request struct {
	To   string
	From string
}

// Decision is the outcome for a Request.
type Decision struct {
	Action Action
	Target string
	Reason Reason
}

// GuardConfig configures a [Guard].
type GuardConfig struct {
	LoginPath   string
	LandingPath string
	RootRule    RootRule
}

// Guard gates navigation on authentication presence.
type Guard struct {
	login   string
	landing string
	rule    RootRule
	session SessionState
}

// NewGuard creates a guard reading session on every check.
func NewGuard(cfg GuardConfig, session SessionState) *Guard {
	if cfg.LoginPath == "" {
		cfg.LoginPath = LoginPath
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = ArticlesPath
	}
	return &Guard{
		login:   Normalize(cfg.LoginPath),
		landing: Normalize(cfg.LandingPath),
		rule:    cfg.RootRule,
		session: session,
	}
}

// LoginPath returns the configured login path.
func (g *Guard) LoginPath() string { return g.login }

// LandingPath returns the configured landing path.
func (g *Guard) LandingPath() string { return g.landing }

// Check evaluates req against the live session.
func (g *Guard) Check(req Request) Decision {
	to := Normalize(req.To)
	authenticated := g.session != nil && g.session.Authenticated()

	if to != g.login && !authenticated {
		return Decision{Action: Redirect, Target: g.login, Reason: ReasonLogin}
	}
	if to == RootPath && authenticated && g.rule == RootRuleGuard {
		return Decision{Action: Redirect, Target: g.landing, Reason: ReasonLanding}
	}
	return Decision{Action: Allow, Target: to}
}
