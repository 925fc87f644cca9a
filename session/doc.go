// Package session holds the console's authentication identity: the bearer
// token and the username that goes with it.
//
// # Store
//
// [Store] is the single source of truth. It is loaded once at startup from a
// [Persister] and mutated only through [Store.Set] and [Store.Clear]. Reads
// ([Store.Token], [Store.Authenticated]) always observe the live value, so a
// request dispatched after Set or Clear returns carries the new state.
//
// # Persistence
//
// Every backend keeps the same layout: two string entries named "token" and
// "username". [FilePersister] mirrors browser local storage as a JSON file,
// [SQLitePersister] keeps a key/value table, [RedisPersister] uses two keys
// under a prefix and [MemoryPersister] is in-process only.
//
// # What this package must NOT do
//
//   - Talk to the API or decide navigation (apiclient and router own that).
//   - Validate token signatures; tokens are opaque here.
package session
