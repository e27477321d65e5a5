package session

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/common"
	"github.com/dmitrijs2005/docsafe/internal/cryptox"
)

const snapshotVersion = 1

// snapshot is the restorable representation of an unlocked session. It is
// written only to the session-scoped Store, never to durable storage.
type snapshot struct {
	Ver         int    `json:"ver"`
	Key         []byte `json:"key"`
	Established int64  `json:"established"`
}

// Manager owns the master key for one session. The in-memory key is a cache
// over the Store's restorable snapshot: a new Manager bound to the same
// Store can recover the key without the passphrase, and many managers
// restoring concurrently converge to the identical key.
//
// All methods are safe for concurrent use. Readers observe either no key or
// a fully valid one, never a partially written one.
type Manager struct {
	store Store

	mu            sync.RWMutex
	key           []byte
	establishedAt time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Unlock derives the master key from the passphrase and salt, makes it
// resident, and writes the restorable snapshot into the session store.
// Returns common.ErrDerivationFailed when no usable key can be derived.
func (m *Manager) Unlock(passphrase, salt []byte) error {
	if len(passphrase) == 0 || len(salt) == 0 {
		return common.ErrDerivationFailed
	}

	key := cryptox.DeriveMasterKey(passphrase, salt)
	if len(key) != cryptox.MasterKeySize {
		return common.ErrDerivationFailed
	}

	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.setKeyLocked(key, now)
	return m.persistLocked()
}

// HasKey reports whether the master key is resident in this instance.
func (m *Manager) HasKey() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key != nil
}

// Key returns a copy of the resident master key, implementing
// envelope.KeySource. If the key is not resident in this instance, the
// session store is consulted first, so a recreated manager transparently
// serves encrypt and decrypt calls. Callers should wipe the returned slice.
func (m *Manager) Key() ([]byte, error) {
	m.mu.RLock()
	if m.key != nil {
		out := make([]byte, len(m.key))
		copy(out, m.key)
		m.mu.RUnlock()
		return out, nil
	}
	m.mu.RUnlock()

	if !m.RestoreIfAvailable() {
		return nil, common.ErrNoKey
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.key == nil {
		return nil, common.ErrNoKey
	}
	out := make([]byte, len(m.key))
	copy(out, m.key)
	return out, nil
}

// EstablishedAt returns the time the resident key was derived or restored,
// or the zero time while locked.
func (m *Manager) EstablishedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.establishedAt
}

// RestoreIfAvailable attempts to reconstruct the master key from the session
// store. Returns true when the key is resident afterwards. Any parse or
// validation failure clears every session-storage entry and degrades to the
// locked state; corrupt data is never fatal and never half-applied.
func (m *Manager) RestoreIfAvailable() bool {
	snap, err := m.readSnapshot()
	if err != nil {
		m.clearStore()
		m.mu.Lock()
		m.dropKeyLocked()
		m.mu.Unlock()
		return false
	}
	if snap == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setKeyLocked(snap.Key, time.Unix(0, snap.Established))
	return true
}

// Lock wipes the resident key and removes the restorable snapshot from the
// session store. Called on logout or an explicit lock.
func (m *Manager) Lock() {
	m.mu.Lock()
	m.dropKeyLocked()
	m.mu.Unlock()
	m.clearStore()
}

// readSnapshot loads and validates the restorable snapshot. It returns
// (nil, nil) when the store holds no snapshot at all, and an error when the
// stored state is present but inconsistent or malformed.
func (m *Manager) readSnapshot() (*snapshot, error) {
	vals := m.store.GetAll(keyPresent, keyRestorable, keyEstablished)
	flag, flagOK := vals[keyPresent]
	blob, blobOK := vals[keyRestorable]
	established, establishedOK := vals[keyEstablished]

	if !flagOK && !blobOK && !establishedOK {
		return nil, nil
	}
	// Orphaned entries mean a torn write somewhere; treat as corrupt.
	if !flagOK || !blobOK || !establishedOK {
		return nil, common.ErrCorruptRestorable
	}
	if string(flag) != "1" {
		return nil, common.ErrCorruptRestorable
	}

	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, common.ErrCorruptRestorable
	}
	if snap.Ver != snapshotVersion || len(snap.Key) != cryptox.MasterKeySize {
		return nil, common.ErrCorruptRestorable
	}

	ts, err := strconv.ParseInt(string(established), 10, 64)
	if err != nil || ts != snap.Established {
		return nil, common.ErrCorruptRestorable
	}

	return &snap, nil
}

func (m *Manager) persistLocked() error {
	snap := snapshot{
		Ver:         snapshotVersion,
		Key:         m.key,
		Established: m.establishedAt.UnixNano(),
	}
	blob, err := json.Marshal(snap)
	if err != nil {
		return common.ErrDerivationFailed
	}

	// One atomic update: a concurrent restore on another manager sees the
	// whole snapshot or none of it, never a torn write it would then clear.
	m.store.SetAll(map[string][]byte{
		keyRestorable:  blob,
		keyEstablished: []byte(strconv.FormatInt(snap.Established, 10)),
		keyPresent:     []byte("1"),
	})
	return nil
}

func (m *Manager) clearStore() {
	m.store.DeleteAll(keyPresent, keyRestorable, keyEstablished)
}

func (m *Manager) setKeyLocked(key []byte, establishedAt time.Time) {
	common.WipeByteArray(m.key)
	m.key = make([]byte, len(key))
	copy(m.key, key)
	m.establishedAt = establishedAt
}

func (m *Manager) dropKeyLocked() {
	common.WipeByteArray(m.key)
	m.key = nil
	m.establishedAt = time.Time{}
}
