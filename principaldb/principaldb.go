// Package principaldb defines the principal-lookup contract spec.md §4.3
// names (get_principal(name, realm) -> Option<Record>) and an in-memory
// fixture implementation for tests and the cmd/ demo binaries. A production
// deployment would back Database with a SQL driver configured per
// SPEC_FULL.md's principal-DB config block; that driver is out of scope
// here, same as the teacher's credentials cache only ever targets a flat
// file.
package principaldb

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kerbgo/kerberos/types"
)

// Record is one principal's long-term key material and policy limits. ID is
// a synthetic, kvno-independent identifier for fixture bookkeeping (audit
// logs, test assertions) — it plays no part in the protocol itself.
type Record struct {
	ID                       string
	Key                      types.EncryptionKey
	KVNO                     int
	MaxLifetime              time.Duration
	MaxRenewableLife         time.Duration
	SupportedEncryptionTypes []int32
}

// Database is the single operation the AS/TGS exchanges need from a
// principal store.
type Database interface {
	GetPrincipal(name types.PrincipalName, realm types.Realm) (Record, bool)
}

type key struct {
	realm string
	name  string
}

// MemoryDatabase is a fixture Database backed by a plain map, guarded by a
// mutex since the AS and TGS exchanges may look up principals from
// concurrently running connection tasks (spec.md §5: "the principal store
// is read-only at steady state").
type MemoryDatabase struct {
	mu    sync.RWMutex
	byKey map[key]Record
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{byKey: make(map[key]Record)}
}

// Put registers or replaces a principal's record, typically during fixture
// or configuration-file loading, before the store starts serving lookups.
func (m *MemoryDatabase) Put(name types.PrincipalName, realm types.Realm, rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey[key{realm: string(realm), name: name.String()}] = rec
}

func (m *MemoryDatabase) GetPrincipal(name types.PrincipalName, realm types.Realm) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byKey[key{realm: string(realm), name: name.String()}]
	return rec, ok
}
