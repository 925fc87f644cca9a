package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrInvalidCredential is returned by Set when the token is empty.
var ErrInvalidCredential = errors.New("credential requires a non-blank token")

// ErrPersistFailed wraps persister failures on Set and Clear.
var ErrPersistFailed = errors.New("session persist failed")

// Store is the process-wide credential holder.
//
// Set and Clear are serialized and finish their persister write before
// returning; readers never block on persistence.
type Store struct {
	persister Persister
	logger    *slog.Logger

	writeMu sync.Mutex

	mu      sync.RWMutex
	current Credential
	loaded  bool

	subMu       sync.RWMutex
	subscribers []func(Change)
}

// NewStore creates a [Store] over p. A nil persister keeps state in memory
// only; a nil logger falls back to slog.Default.
func NewStore(p Persister, logger *slog.Logger) *Store {
	if p == nil {
		p = NewMemoryPersister()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		persister: p,
		logger:    logger,
	}
}

// Load reads the persisted entries into memory and returns them. Missing
// entries and persister failures both leave the store unauthenticated.
// Load waits for an in-flight Set or Clear and blocks new ones until done.
func (s *Store) Load(ctx context.Context) Credential {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cred, err := s.persister.Load(ctx)
	if err != nil {
		s.logger.Warn("session: load failed, starting unauthenticated", slog.Any("error", err))
		cred = Credential{}
	}
	cred = cred.normalize()

	s.mu.Lock()
	s.current = cred
	s.loaded = true
	s.mu.Unlock()

	return cred
}

// Set stores cred in memory and in the persister. A blank token is rejected
// by the same rule Load uses to discard one.
func (s *Store) Set(ctx context.Context, cred Credential) error {
	if !cred.Authenticated() {
		return ErrInvalidCredential
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.persister.Save(ctx, cred); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	s.mu.Lock()
	s.current = cred
	s.loaded = true
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeSet, Credential: cred})
	return nil
}

// Clear resets the credential and removes the persisted entries. In-memory
// state is cleared even when the persister fails. Clear is idempotent.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.current = Credential{}
	s.loaded = true
	s.mu.Unlock()

	err := s.persister.Delete(ctx)

	s.notify(Change{Kind: ChangeClear})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}

// Current returns the live credential.
func (s *Store) Current() Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the live bearer token, empty when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// Authenticated reports whether a token is present.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// Loaded reports whether Load, Set or Clear has run.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Subscribe registers fn to run after every Set and Clear. Callbacks run on
// the mutating goroutine and must not call Load, Set or Clear.
func (s *Store) Subscribe(fn func(Change)) {
	if fn == nil {
		return
	}
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

// Close releases the persister.
func (s *Store) Close() error {
	return s.persister.Close()
}

func (s *Store) notify(change Change) {
	s.subMu.RLock()
	subs := s.subscribers
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
}
