package mpconsole

import (
	"errors"

	"github.com/MrEthical07/mpconsole/apiclient"
	"github.com/MrEthical07/mpconsole/router"
	"github.com/MrEthical07/mpconsole/session"
)

// The transport and navigation sentinels are re-exported so callers of the
// console need a single import for errors.Is checks.
var (
	// ErrUnauthorized matches any API response with status 401.
	ErrUnauthorized = apiclient.ErrUnauthorized
	// ErrInvalidCredentials is returned by Login when the API rejects the
	// username or password.
	ErrInvalidCredentials = apiclient.ErrInvalidCredentials
	// ErrTimeout matches requests that exceeded the configured timeout.
	ErrTimeout = apiclient.ErrTimeout
	// ErrRouteNotFound is returned by Navigate for unknown paths.
	ErrRouteNotFound = router.ErrRouteNotFound
	// ErrRedirectLoop is returned by Navigate when redirects do not settle.
	ErrRedirectLoop = router.ErrRedirectLoop
	// ErrPersistFailed wraps session persister failures.
	ErrPersistFailed = session.ErrPersistFailed

	ErrConsoleClosed    = errors.New("console closed")
	ErrBuilderUsed      = errors.New("builder already used")
	ErrRouteUnavailable = errors.New("configured route missing from route table")
)
