package session

import "strings"

// Persisted entry names.
const (
	KeyToken    = "token"
	KeyUsername = "username"
)

// Credential is the token and username pair. Both halves are set and cleared
// together; a credential without a token is the zero credential.
type Credential struct {
	Token    string
	Username string
}

// Authenticated reports whether the credential carries a token.
func (c Credential) Authenticated() bool {
	return strings.TrimSpace(c.Token) != ""
}

// IsZero reports whether c is the empty credential.
func (c Credential) IsZero() bool {
	return c.Token == "" && c.Username == ""
}

// normalize drops a stale username left behind without a token.
func (c Credential) normalize() Credential {
	if !c.Authenticated() {
		return Credential{}
	}
	return c
}

// ChangeKind identifies a store mutation.
type ChangeKind uint8

const (
	// ChangeSet follows a successful Set.
	ChangeSet ChangeKind = iota + 1
	// ChangeClear follows Clear.
	ChangeClear
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSet:
		return "set"
	case ChangeClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after the store has been mutated.
type Change struct {
	Kind       ChangeKind
	Credential Credential
}
