// Package apitest runs an in-process stand-in for the spider admin API.
//
// It speaks the same routes and JSON shapes as the real backend, issues HS256
// tokens on login, and lets tests script failures: forced status codes,
// revoked tokens and slow responses. Every request is recorded with the
// Authorization and X-Request-ID headers it carried.
package apitest
