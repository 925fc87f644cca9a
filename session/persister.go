package session

import (
	"context"
	"sync"
)

// Persister stores the two credential entries durably.
//
// Load must return the zero credential, not an error, when the entries are
// absent. Delete must succeed when there is nothing to delete.
type Persister interface {
	Load(ctx context.Context) (Credential, error)
	Save(ctx context.Context, cred Credential) error
	Delete(ctx context.Context) error
	Close() error
}

// MemoryPersister keeps entries in process memory.
type MemoryPersister struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryPersister returns an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{entries: make(map[string]string, 2)}
}

func (m *MemoryPersister) Load(ctx context.Context) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return Credential{
		Token:    m.entries[KeyToken],
		Username: m.entries[KeyUsername],
	}, nil
}

func (m *MemoryPersister) Save(ctx context.Context, cred Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[KeyToken] = cred.Token
	m.entries[KeyUsername] = cred.Username
	return nil
}

func (m *MemoryPersister) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, KeyToken)
	delete(m.entries, KeyUsername)
	return nil
}

// Entries returns a copy of the raw entries.
func (m *MemoryPersister) Entries() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

func (m *MemoryPersister) Close() error { return nil }
