package types

// Principal name-type tag, RFC 4120 §6.2.
const (
	NTUnknown       = 0
	NTPrincipal     = 1
	NTSrvInst       = 2
	NTSrvHst        = 3
	NTSrvXhst       = 4
	NTUid           = 5
	NTX500          = 6
	NTSmtpName      = 7
	NTEnterprise    = 10
)

// PrincipalName is a named entity within a realm: a type tag plus an
// ordered, non-empty list of components ("service", "host.example.com" for
// an NTSrvHst name, say).
type PrincipalName struct {
	NameType   Int32             `asn1:"explicit,tag:0"`
	NameString []KerberosString  `asn1:"explicit,tag:1"`
}

// NewPrincipalName enforces invariant I2: at least one component.
func NewPrincipalName(nameType Int32, components ...string) (PrincipalName, error) {
	if len(components) == 0 {
		return PrincipalName{}, ErrEmptyPrincipalComponents
	}
	return PrincipalName{NameType: nameType, NameString: components}, nil
}

// Equal is structural equality per spec.md §3: same name-type, same ordered
// component list.
func (p PrincipalName) Equal(o PrincipalName) bool {
	if p.NameType != o.NameType || len(p.NameString) != len(o.NameString) {
		return false
	}
	for i := range p.NameString {
		if p.NameString[i] != o.NameString[i] {
			return false
		}
	}
	return true
}

func (p PrincipalName) String() string {
	s := ""
	for i, c := range p.NameString {
		if i > 0 {
			s += "/"
		}
		s += c
	}
	return s
}

// Host address type, RFC 4120 §7.5.3.
const (
	AddrTypeIPv4          = 2
	AddrTypeDirectional   = 3
	AddrTypeChaosNet      = 5
	AddrTypeXNS           = 6
	AddrTypeISO           = 7
	AddrTypeDECNetPhaseIV = 12
	AddrTypeAppleTalkDDP  = 16
	AddrTypeNetBios       = 20
	AddrTypeIPv6          = 24
)

// HostAddress is a network address of a known family.
type HostAddress struct {
	AddrType Int32       `asn1:"explicit,tag:0"`
	Address  OctetString `asn1:"explicit,tag:1"`
}

// HostAddresses is an ordered SequenceOf<HostAddress>.
type HostAddresses []HostAddress

// Equal reports whether a and b contain the same addresses, in order,
// matching the teacher's types.HostAddressesEqual used by AS/TGS reply
// validation.
func HostAddressesEqual(a, b HostAddresses) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].AddrType != b[i].AddrType || string(a[i].Address) != string(b[i].Address) {
			return false
		}
	}
	return true
}

// Contains reports whether addr appears anywhere in addrs, used by the AP
// exchange address policy check (spec.md §4.7 step 8).
func (addrs HostAddresses) Contains(addr HostAddress) bool {
	for _, a := range addrs {
		if a.AddrType == addr.AddrType && string(a.Address) == string(addr.Address) {
			return true
		}
	}
	return false
}
