package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// CksumTypeHMACSHA256 is this implementation's concrete keyed-checksum
// registration, used to protect the KDC-REQ-BODY checksum carried in a
// TGS-REQ's authenticator (spec.md §4.6 step 6 requires a keyed, non-weak
// checksum type).
const CksumTypeHMACSHA256 int32 = 1

// HMACChecksum implements CryptographicHash as HMAC-SHA256. The interface's
// Digest takes no key (spec.md §4.2: "digest(bytes) -> bytes"), so the key
// travels in the struct: Digest returns the HMAC of data under Key, and
// Keyed() reports true.
type HMACChecksum struct {
	Key []byte
}

func (h HMACChecksum) CksumType() int32 { return CksumTypeHMACSHA256 }
func (h HMACChecksum) Keyed() bool      { return true }

func (h HMACChecksum) Digest(data []byte) []byte {
	mac := hmac.New(sha256.New, h.Key)
	mac.Write(data)
	return mac.Sum(nil)
}

// VerifyChecksum recomputes the HMAC over data with key and compares it
// against sum in constant time.
func VerifyChecksum(key, data, sum []byte) bool {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	expected := mac.Sum(nil)
	return hmac.Equal(expected, sum)
}
