// Package types implements the RFC 4120 basic ASN.1 types shared by every
// Kerberos protocol message: principal names, host addresses, keys,
// checksums and the kerberos flags bit string.
package types

import (
	"encoding/asn1"
	"fmt"
	"time"
)

// Int32 and UInt32 carry the RFC 4120 basic-type names through the codebase
// even though the wire encoding is a plain ASN.1 INTEGER either way.
type Int32 = int32
type UInt32 = uint32

// Microseconds is the 0-999999 microsecond component of a Kerberos timestamp.
type Microseconds = int32

// KerberosString is IA5String text: realm components, principal components,
// e-text.
type KerberosString = string

// Realm is a KerberosString naming an administrative domain.
type Realm = KerberosString

// OctetString is raw, unframed binary data (key material, cipher text,
// checksums).
type OctetString = []byte

// KerberosTime is seconds-since-epoch, always carried as UTC with no
// fractional seconds on the wire (RFC 4120 §5.2.3).
type KerberosTime struct {
	time.Time
}

// NewKerberosTime truncates to the second and forces UTC, matching the wire
// representation.
func NewKerberosTime(t time.Time) KerberosTime {
	return KerberosTime{t.UTC().Truncate(time.Second)}
}

// Zero reports the RFC 4120 "unset" sentinel: the zero value of GeneralizedTime.
func (k KerberosTime) Zero() bool {
	return k.Time.IsZero()
}

// Sub returns k - o as a time.Duration, saturating to zero on underflow is
// NOT performed here; callers compare signed durations directly.
func (k KerberosTime) Sub(o KerberosTime) time.Duration {
	return k.Time.Sub(o.Time)
}

// Before/After/Equal delegate to time.Time for ordering comparisons.
func (k KerberosTime) Before(o KerberosTime) bool { return k.Time.Before(o.Time) }
func (k KerberosTime) After(o KerberosTime) bool  { return k.Time.After(o.Time) }
func (k KerberosTime) Equal(o KerberosTime) bool  { return k.Time.Equal(o.Time) }

// Add returns k shifted by d.
func (k KerberosTime) Add(d time.Duration) KerberosTime {
	return NewKerberosTime(k.Time.Add(d))
}

// MinTime returns whichever of a, b is earlier.
func MinTime(a, b KerberosTime) KerberosTime {
	if a.Before(b) {
		return a
	}
	return b
}

// GetMarshal/GetUnmarshal let KerberosTime sit inside asn1 structs tagged
// "generalized,explicit,tag:N" by delegating to the embedded time.Time,
// which Go's encoding/asn1 already knows how to encode as GeneralizedTime.

// Checksum is a keyed or unkeyed digest over some checksummed data,
// identified by an IANA checksum type.
type Checksum struct {
	CksumType Int32       `asn1:"explicit,tag:0"`
	Checksum  OctetString `asn1:"explicit,tag:1"`
}

// EncryptionKey is a symmetric key tagged with its etype.
type EncryptionKey struct {
	KeyType  Int32       `asn1:"explicit,tag:0"`
	KeyValue OctetString `asn1:"explicit,tag:1"`
}

// EncryptedData is a sealed octet string: an etype, an optional key version
// number, and ciphertext. The cleartext's own ASN.1 type is implied by the
// context the EncryptedData appears in (EncTicketPart, EncKdcRepPart, ...).
// KVNO is a pointer so "absent" and "kvno 0" are distinguishable, since zero
// is a valid key version number.
type EncryptedData struct {
	EType  Int32       `asn1:"explicit,tag:0"`
	KVNO   *int        `asn1:"explicit,optional,tag:1"`
	Cipher OctetString `asn1:"explicit,tag:2"`
}

// BitStringSet reports whether position p (0-indexed from the most
// significant bit) is set in bs.
func BitStringSet(bs asn1.BitString, p int) bool {
	return bs.At(p) == 1
}

// FlagBuilder accumulates bit positions into a 32-bit (minimum) BitString,
// matching the teacher's builder-pattern habit for optional-field-heavy
// protocol structs (see messages.EncKdcRepPartBuilder).
type FlagBuilder struct {
	bytes [4]byte
}

// Set turns bit position p on (0 = most significant bit of the first octet).
// Positions beyond 31 are never used by this protocol; FlagBuilder is fixed
// at the RFC 4120 KerberosFlags minimum width of 32 bits.
func (f *FlagBuilder) Set(p int) *FlagBuilder {
	if byteIdx := p / 8; byteIdx < len(f.bytes) {
		f.bytes[byteIdx] |= 1 << (7 - uint(p%8))
	}
	return f
}

// Build returns the accumulated flags as a 32-bit BitString.
func (f *FlagBuilder) Build() asn1.BitString {
	return asn1.BitString{Bytes: append([]byte(nil), f.bytes[:]...), BitLength: 32}
}

// NewFlags is a convenience constructor: NewFlags(FORWARDABLE, RENEWABLE).
func NewFlags(positions ...int) asn1.BitString {
	b := &FlagBuilder{}
	for _, p := range positions {
		b.Set(p)
	}
	return b.Build()
}

// PaddedFlags normalizes a decoded BitString to at least 4 bytes, since some
// peers emit a trimmed-of-trailing-zero-bytes BitString and RFC 4120 requires
// KerberosFlags be treated as (at least) 32 bits wide.
func PaddedFlags(bs asn1.BitString) asn1.BitString {
	if len(bs.Bytes) >= 4 {
		return bs
	}
	padded := make([]byte, 4)
	copy(padded, bs.Bytes)
	bs.Bytes = padded
	if bs.BitLength < 32 {
		bs.BitLength = 32
	}
	return bs
}

// ErrEmptyPrincipalComponents is returned by NewPrincipalName when given no
// components; invariant I2 requires at least one.
var ErrEmptyPrincipalComponents = fmt.Errorf("types: PrincipalName requires at least one component")
