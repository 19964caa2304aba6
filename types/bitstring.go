package types

import "encoding/asn1"

// BitString is RFC 4120's KerberosFlags wire representation: encoding/asn1's
// BitString already DER-encodes/decodes correctly, so this package works
// with it directly rather than rolling a parallel bit-string type.
type BitString = asn1.BitString

func bitAt(bs BitString, p int) bool {
	return PaddedFlags(bs).At(p) == 1
}

func toBitString(bs asn1.BitString) BitString { return bs }

// NewKDCOptions builds a KDCOptions value with the given bit positions set.
func NewKDCOptions(positions ...int) KDCOptions {
	return KDCOptions{Flags: NewFlags(positions...)}
}

// NewTicketFlags builds a TicketFlags value with the given bit positions set.
func NewTicketFlags(positions ...int) TicketFlags {
	return TicketFlags{Flags: NewFlags(positions...)}
}
