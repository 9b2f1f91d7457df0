package conversation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// StateStore keeps the live dialogue of each customer. Load returns nil
// without error when the customer has none.
type StateStore interface {
	Load(ctx context.Context, customerID string) (*ConversationState, error)
	Save(ctx context.Context, state *ConversationState) error
	Delete(ctx context.Context, customerID string) error
}

// MemoryStore is the in-process StateStore. States idle for longer than
// ttl are removed by the cleanup loop.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*ConversationState
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*ConversationState),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *MemoryStore) Load(ctx context.Context, customerID string) (*ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[customerID]
	if !ok {
		return nil, nil
	}
	cp := *state
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, state *ConversationState) error {
	if state == nil {
		return errors.New("conversation state is nil")
	}
	if state.CustomerID == "" {
		return errors.New("conversation state has no customer")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *state
	s.states[state.CustomerID] = &cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, customerID)
	return nil
}

// CleanupExpired removes idle states and returns how many were dropped.
func (s *MemoryStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for id, state := range s.states {
		if state.Expired(now, s.ttl) {
			delete(s.states, id)
			count++
		}
	}
	return count
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// StartCleanup runs CleanupExpired every interval until ctx is done.
func (s *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired()
			}
		}
	}()
}

// keyedMutex serialises work per customer. Entries are dropped once no
// goroutine holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
