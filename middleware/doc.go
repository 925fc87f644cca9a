// Package middleware holds the server-side bearer check used by the fake API
// in apitest. It mirrors what the real backend does: read the Authorization
// header, verify the token, and answer 401 with a JSON message otherwise.
package middleware
