// Package mpconsole is the client shell of the official-account spider admin
// console.
//
// A [Console] owns three pieces that must agree on one credential:
//
//   - the session store (package session), the only holder of the bearer
//     token and username, persisted across restarts;
//   - the API client (package apiclient), which attaches the live token to
//     every request and reports 401 responses;
//   - the navigator (package router), which gates every location change on
//     whether a token is present.
//
// When any request outside a login exchange receives a 401, the console
// clears the session and hard-redirects to the login page. Subscribers
// registered with [Console.OnHardRedirect] are told where it went.
//
// Build a console with [New]:
//
//	c, err := mpconsole.New().
//		WithConfig(cfg).
//		WithLogger(logger).
//		Build()
//	if err != nil { ... }
//	defer c.Close()
//	_, err = c.Start(ctx)
//
// The package does no I/O until [Console.Start].
package mpconsole
