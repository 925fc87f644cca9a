package internaldefs

import (
	"github.com/MrEthical07/mpconsole"
)

type CounterDef struct {
	ID   mpconsole.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   mpconsole.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: mpconsole.MetricRequestSent, Name: "mpconsole_api_requests_total", Help: "API requests sent."},
	{ID: mpconsole.MetricRequestFailed, Name: "mpconsole_api_request_failures_total", Help: "API requests that ended in a transport error or non-2xx status."},
	{ID: mpconsole.MetricRequestTimeout, Name: "mpconsole_api_request_timeouts_total", Help: "API requests that hit the client timeout."},
	{ID: mpconsole.MetricUnauthorized, Name: "mpconsole_api_unauthorized_total", Help: "API responses with status 401."},
	{ID: mpconsole.MetricSessionSet, Name: "mpconsole_session_set_total", Help: "Session credentials stored."},
	{ID: mpconsole.MetricSessionCleared, Name: "mpconsole_session_cleared_total", Help: "Session clears, including logout and invalidation."},
	{ID: mpconsole.MetricSessionInvalidated, Name: "mpconsole_session_invalidated_total", Help: "Sessions cleared because the API answered 401."},
	{ID: mpconsole.MetricNavigationAllowed, Name: "mpconsole_navigation_allowed_total", Help: "Navigations that reached their target unchanged."},
	{ID: mpconsole.MetricRedirectLogin, Name: "mpconsole_redirect_login_total", Help: "Guard redirects to the login page."},
	{ID: mpconsole.MetricRedirectLanding, Name: "mpconsole_redirect_landing_total", Help: "Guard redirects from the root path to the landing page."},
	{ID: mpconsole.MetricRedirectRoute, Name: "mpconsole_redirect_route_total", Help: "Redirects declared by the route table."},
	{ID: mpconsole.MetricHardRedirect, Name: "mpconsole_hard_redirect_total", Help: "Hard redirects to the login page after invalidation."},
	{ID: mpconsole.MetricHardRedirectSuppressed, Name: "mpconsole_hard_redirect_suppressed_total", Help: "Invalidations that happened on the login page."},
	{ID: mpconsole.MetricLoginSuccess, Name: "mpconsole_login_success_total", Help: "Successful logins."},
	{ID: mpconsole.MetricLoginFailure, Name: "mpconsole_login_failure_total", Help: "Failed logins."},
	{ID: mpconsole.MetricLogout, Name: "mpconsole_logout_total", Help: "Logouts."},
}

var HistogramDefs = []HistogramDef{
	{ID: mpconsole.MetricRequestLatency, Name: "mpconsole_api_request_duration_seconds", Help: "API request latency."},
}

// HistogramBounds are the finite upper bounds in seconds; the eighth bucket
// is +Inf.
var HistogramBounds = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HistogramBoundSuffix names each bucket in instrument names.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
