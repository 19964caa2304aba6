package cache

import (
	"time"

	"github.com/kerbgo/kerberos/types"
)

// SessionEntry is what the application server remembers per client after a
// successful AP exchange: the session key sealed into the ticket and the
// authenticator sequence number to validate KRB-SAFE/KRB-PRIV/KRB-CRED
// messages that follow on the same session, grounded on
// ApplicationSessionStorage's (EncryptionKey, i32) pair.
type SessionEntry struct {
	CName        types.PrincipalName
	CRealm       types.Realm
	SessionKey   types.EncryptionKey
	SeqNumber    int
}

// SessionStore is the application server's per-(cname,crealm) session table
// (spec.md §4.7 step 11).
type SessionStore struct {
	c *Cache[PrincipalKey, SessionEntry]
}

func NewSessionStore(capacity int, ttl time.Duration) (*SessionStore, error) {
	c, err := New[PrincipalKey, SessionEntry](capacity, ttl)
	if err != nil {
		return nil, err
	}
	return &SessionStore{c: c}, nil
}

func (s *SessionStore) Get(cname types.PrincipalName, crealm types.Realm) (SessionEntry, bool) {
	e, err := s.c.Get(NewPrincipalKey(crealm, cname))
	return e, err == nil
}

func (s *SessionStore) Store(entry SessionEntry) {
	s.c.Put(NewPrincipalKey(entry.CRealm, entry.CName), entry)
}

// AddressKey identifies one AP-REQ by its wire bytes, the granularity
// spec.md §4.7 step 8's address-restriction check operates at: the exact
// request that was accepted records which source address presented it.
type AddressKey string

func NewAddressKey(apReqBytes []byte) AddressKey {
	return AddressKey(apReqBytes)
}

// AddressStore records the client network address that presented each
// AP-REQ, keyed by that AP-REQ's bytes: the transport adapter stores it
// before the request is handled, and the ticket address-restriction check
// (spec.md §4.7 step 8, RFC 4120 §5.5.1 caddr checking) of that same
// AP-REQ looks it up.
type AddressStore struct {
	c *Cache[AddressKey, types.HostAddress]
}

func NewAddressStore(capacity int, ttl time.Duration) (*AddressStore, error) {
	c, err := New[AddressKey, types.HostAddress](capacity, ttl)
	if err != nil {
		return nil, err
	}
	return &AddressStore{c: c}, nil
}

func (s *AddressStore) Get(key AddressKey) (types.HostAddress, bool) {
	v, err := s.c.Get(key)
	return v, err == nil
}

func (s *AddressStore) Store(key AddressKey, addr types.HostAddress) {
	s.c.Put(key, addr)
}
