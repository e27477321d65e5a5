// Package session holds custody of the user's master key: it derives the key
// on unlock, keeps it resident only in memory, and snapshots a restorable
// form into a session-scoped store so that a freshly constructed manager can
// recover the key without re-prompting for the passphrase.
package session

import "sync"

// Storage keys. The three entries live and die together: a restorable
// snapshot must never be left partially present.
const (
	keyPresent     = "mk_present"
	keyRestorable  = "mk_restorable"
	keyEstablished = "mk_established"
)

// Store is session-scoped key/value storage. Its contents must not survive
// the end of the user's session, and implementations must be safe for
// concurrent use, since several Manager instances may share one Store.
//
// The batch operations apply or read a group of entries under one lock.
// Managers persist the restorable snapshot through them so that a concurrent
// reader never observes the group half-written.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)

	// GetAll returns one consistent view of the named entries; absent keys
	// are simply missing from the result.
	GetAll(keys ...string) map[string][]byte
	// SetAll stores every entry as a single atomic update.
	SetAll(entries map[string][]byte)
	// DeleteAll removes the named keys as a single atomic update.
	DeleteAll(keys ...string)
}

// MemoryStore is the in-process Store implementation. One instance is shared
// by every Manager created during a session; its contents vanish with the
// process, which is exactly the durability contract session storage needs.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (s *MemoryStore) Set(key string, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = v
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

func (s *MemoryStore) GetAll(keys ...string) map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.m[k]; ok {
			c := make([]byte, len(v))
			copy(c, v)
			out[k] = c
		}
	}
	return out
}

func (s *MemoryStore) SetAll(entries map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		c := make([]byte, len(v))
		copy(c, v)
		s.m[k] = c
	}
}

func (s *MemoryStore) DeleteAll(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
}
