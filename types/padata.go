package types

import "time"

// Pre-authentication data type, RFC 4120 §7.5.2 (subset used by this repo).
const (
	PADataTGSReq       = 1
	PADataEncTimestamp = 2
)

// PAData is a single opaque pre-authentication element; its PADataValue's
// ASN.1 type depends on PADataType (PAEncTimestamp or ApReq bytes, here).
type PAData struct {
	PADataType  Int32       `asn1:"explicit,tag:1"`
	PADataValue OctetString `asn1:"explicit,tag:2"`
}

// PADataSequence is an ordered list of PAData and is itself OPTIONAL on the
// messages that carry it.
type PADataSequence []PAData

// Find returns the first PAData of type t, mirroring the teacher's
// PADataSequence.Contains used throughout AS_REP validation.
func (s PADataSequence) Find(t Int32) (PAData, bool) {
	for _, pa := range s {
		if pa.PADataType == t {
			return pa, true
		}
	}
	return PAData{}, false
}

// Contains reports whether any element has type t.
func (s PADataSequence) Contains(t Int32) bool {
	_, ok := s.Find(t)
	return ok
}

// PAEncTSEnc is the cleartext sealed inside a PA-ENC-TIMESTAMP PAData value
// (RFC 4120 §5.2.7.2): a timestamp proving the client knows its long-term
// key at the moment of the request, used for pre-authentication.
type PAEncTSEnc struct {
	PATimestamp time.Time `asn1:"generalized,explicit,tag:0"`
	PAUSec      int       `asn1:"explicit,optional,tag:1"`
}
