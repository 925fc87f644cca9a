// Package router decides where an in-app navigation lands.
//
// [Guard] is a per-request predicate over the live session: it never keeps
// state of its own and never returns an error, it only allows or redirects.
// [Navigator] applies the guard and the route table's own redirects hop by
// hop until a route settles, and keeps the current location.
//
// A hard redirect ([Navigator.HardRedirect]) bypasses the guard entirely; the
// application shell uses it when the session is invalidated underneath it.
package router
