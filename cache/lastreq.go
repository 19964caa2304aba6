package cache

import (
	"time"

	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/types"
)

// PrincipalKey names one principal within one realm, the granularity the AS
// exchange (spec.md §4.5 step 9 / §9 resolved Open Question: "the AS
// populates last-req on every successful issuance") tracks last-request
// history at.
type PrincipalKey struct {
	Realm string
	Name  string
}

func NewPrincipalKey(realm types.Realm, name types.PrincipalName) PrincipalKey {
	return PrincipalKey{Realm: string(realm), Name: name.String()}
}

// LastReqStore remembers, per principal, the last-req entries the AS
// exchange should echo back in the next EncKdcRepPart it issues for that
// principal (RFC 4120 §5.4.2's last-req sequence).
type LastReqStore struct {
	c *Cache[PrincipalKey, []messages.LastReq]
}

func NewLastReqStore(capacity int, ttl time.Duration) (*LastReqStore, error) {
	c, err := New[PrincipalKey, []messages.LastReq](capacity, ttl)
	if err != nil {
		return nil, err
	}
	return &LastReqStore{c: c}, nil
}

// Get returns the stored last-req entries for key, or an empty slice (never
// an error to the caller) if none are on file yet; a brand-new principal's
// first AS-REQ legitimately has no history.
func (s *LastReqStore) Get(key PrincipalKey) []messages.LastReq {
	v, err := s.c.Get(key)
	if err != nil {
		return nil
	}
	return v
}

// RecordInitial updates key's history with a fresh time-of-last-initial-
// request entry, called after every successful AS exchange.
func (s *LastReqStore) RecordInitial(key PrincipalKey, at types.KerberosTime) {
	s.c.Put(key, []messages.LastReq{{LRType: messages.LRTypeTimeOfLastInitial, LRValue: at}})
}
