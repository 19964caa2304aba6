// Package crypto defines the algorithm-agnostic capability contracts
// spec.md §4.2 requires (Cryptography, CryptographicHash) and a concrete
// AES-GCM/HMAC-SHA-256 registration so the rest of the system has something
// to drive end to end. Neither capability interface is tied to a specific
// cipher; new etypes/cksumtypes register by implementing the interface and
// joining a Registry.
package crypto

import "github.com/pkg/errors"

// Sentinel errors surfaced by Cryptography implementations; spec.md §4.2
// names these exactly.
var (
	ErrWrongKeySize  = errors.New("crypto: wrong key size")
	ErrEncrypt       = errors.New("crypto: encryption failed")
	ErrDecrypt       = errors.New("crypto: decryption failed")
	ErrGenerateKey   = errors.New("crypto: key generation failed")
)

// Cryptography abstracts one encryption type (etype). Selection among
// multiple registered implementations is always by etype match, first in
// the caller-supplied ordered list winning (spec.md §4.2).
type Cryptography interface {
	EType() int32
	Encrypt(data, key []byte) ([]byte, error)
	Decrypt(ciphertext, key []byte) ([]byte, error)
	GenerateKey() ([]byte, error)
	KeySize() int
}

// CryptographicHash abstracts one checksum type (cksumtype).
type CryptographicHash interface {
	CksumType() int32
	Digest(data []byte) []byte
	// Keyed reports whether this checksum type is a keyed (MAC) construction;
	// the TGS exchange (spec.md §4.6 step 6) rejects unkeyed checksums on an
	// authenticator's protected checksum field.
	Keyed() bool
}

// Registry is a closed, ordered list of Cryptography implementations a
// single KDC/AP/client instance is configured with (spec.md §9: "Dynamic
// dispatch... implementations form a closed, ordered list per service").
type Registry struct {
	impls   []Cryptography
	hashes  []CryptographicHash
}

func NewRegistry(impls []Cryptography, hashes []CryptographicHash) *Registry {
	return &Registry{impls: impls, hashes: hashes}
}

// ForEType returns the first registered Cryptography matching etype.
func (r *Registry) ForEType(etype int32) (Cryptography, bool) {
	for _, c := range r.impls {
		if c.EType() == etype {
			return c, true
		}
	}
	return nil, false
}

// SelectEType picks the first etype from wanted (caller order) that is both
// registered here and present in supported, matching spec.md §4.5 step 3 /
// §4.6 step 10's "in request order" selection rule.
func (r *Registry) SelectEType(wanted []int32, supported []int32) (Cryptography, bool) {
	supportedSet := make(map[int32]bool, len(supported))
	for _, s := range supported {
		supportedSet[s] = true
	}
	for _, w := range wanted {
		if !supportedSet[w] {
			continue
		}
		if c, ok := r.ForEType(w); ok {
			return c, true
		}
	}
	return nil, false
}

// ForCksumType returns the first registered CryptographicHash matching t.
func (r *Registry) ForCksumType(t int32) (CryptographicHash, bool) {
	for _, h := range r.hashes {
		if h.CksumType() == t {
			return h, true
		}
	}
	return nil, false
}
