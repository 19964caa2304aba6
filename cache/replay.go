package cache

import (
	"time"

	"github.com/kerbgo/kerberos/types"
)

// ReplayKey identifies one client authenticator uniquely enough to detect a
// replayed TGS-REQ (spec.md §4.6 step 6 / §9 "a cache of (ctime, cusec,
// cname, crealm) tuples already seen, scoped per realm"). All fields are
// comparable so ReplayKey itself can be used directly as a Cache map key,
// with no intermediate DER encoding needed.
type ReplayKey struct {
	CTime  int64
	CUsec  int32
	CName  string
	CRealm string
}

func NewReplayKey(ctime types.KerberosTime, cusec types.Microseconds, cname types.PrincipalName, crealm types.Realm) ReplayKey {
	return ReplayKey{
		CTime:  ctime.Unix(),
		CUsec:  int32(cusec),
		CName:  cname.String(),
		CRealm: string(crealm),
	}
}

// ReplayCache rejects TGS-REQs and AP-REQs whose authenticator has already
// been seen within the cache's TTL window. Seen records the key and reports
// false the first time, true on a repeat, matching the "record, then answer" ordering
// spec.md §5 requires so two concurrent identical requests cannot both
// succeed.
type ReplayCache struct {
	c *Cache[ReplayKey, struct{}]
}

func NewReplayCache(capacity int, ttl time.Duration) (*ReplayCache, error) {
	c, err := New[ReplayKey, struct{}](capacity, ttl)
	if err != nil {
		return nil, err
	}
	return &ReplayCache{c: c}, nil
}

// Seen records key and reports whether it was already present (a replay).
func (r *ReplayCache) Seen(key ReplayKey) bool {
	return r.c.ContainsThenStore(key, struct{}{})
}

// ApReplayKey identifies one AP-REQ authenticator for the application-
// server-side replay cache (spec.md §4.7 step 7), grounded on the teacher's
// gokrb5 replay cache keyed by client principal + authenticator timestamp.
type ApReplayKey struct {
	CTime  int64
	CUsec  int32
	CName  string
	CRealm string
	SName  string
}

func NewApReplayKey(ctime types.KerberosTime, cusec types.Microseconds, cname types.PrincipalName, crealm types.Realm, sname types.PrincipalName) ApReplayKey {
	return ApReplayKey{
		CTime:  ctime.Unix(),
		CUsec:  int32(cusec),
		CName:  cname.String(),
		CRealm: string(crealm),
		SName:  sname.String(),
	}
}

// ApReplayCache is the application server's analogue of ReplayCache, keyed
// additionally by the target service name since one client may legitimately
// present authenticators with colliding timestamps to two different
// services within the same clock-skew window.
type ApReplayCache struct {
	c *Cache[ApReplayKey, struct{}]
}

func NewApReplayCache(capacity int, ttl time.Duration) (*ApReplayCache, error) {
	c, err := New[ApReplayKey, struct{}](capacity, ttl)
	if err != nil {
		return nil, err
	}
	return &ApReplayCache{c: c}, nil
}

// Contains probes for key without recording it, for the AP exchange's
// step 7 ("otherwise store it after all other checks pass" — spec.md
// §4.7.7): an AP-REQ that fails a later check must not poison the replay
// cache against a legitimate retry.
func (r *ApReplayCache) Contains(key ApReplayKey) bool {
	return r.c.Contains(key)
}

// Store records key as seen, once every other §4.7 check has passed.
func (r *ApReplayCache) Store(key ApReplayKey) {
	r.c.Put(key, struct{}{})
}
