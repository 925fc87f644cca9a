// Package jwt reads and mints the console API's bearer tokens.
//
// The console treats tokens as opaque credentials; [Inspect] only decodes the
// payload for display (who is logged in, when the token lapses) and never
// verifies the signature. [Manager] signs and verifies tokens and is used by
// the fake API in apitest, which plays the part of the real backend.
package jwt
