// Package apiclient is the console's single outbound pipeline to the spider
// admin API.
//
// Every request passes through one transport that reads the live bearer
// token at send time, so a token set after login or removed by logout takes
// effect on the next dispatched request. In-flight requests keep the token
// they were sent with.
//
// # Authorization failures
//
// A 401 response fires the configured [UnauthorizedFunc] exactly once for
// that request and then the same [*StatusError] is returned to the caller.
// The hook is how the application shell learns the session was invalidated;
// this package never clears sessions or navigates on its own.
//
// # Timeouts
//
// Requests are bounded by Config.Timeout (15s by default). A request that
// exceeds it fails with an error matching [ErrTimeout]. Nothing is retried.
package apiclient
