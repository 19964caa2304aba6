// Package messages implements the RFC 4120 top-level protocol messages:
// tickets, KDC-REQ/REP, AP-REQ/REP, KRB-ERROR. Every type round-trips
// through Marshal/Unmarshal using the tagging rules of RFC 4120 §5.
package messages

import (
	"encoding/asn1"
	"fmt"

	"github.com/kerbgo/kerberos/iana/asnapptag"
	"github.com/kerbgo/kerberos/types"
)

// Ticket is RFC 4120 §5.3: a service ticket, application-tagged 1. Its
// enc-part seals an EncTicketPart under the target service's long-term key
// (or a negotiated session key for user-to-user, out of scope here).
type Ticket struct {
	TktVNO  int                  `asn1:"explicit,tag:0"`
	Realm   types.Realm          `asn1:"generalstring,explicit,tag:1"`
	SName   types.PrincipalName  `asn1:"explicit,tag:2"`
	EncPart types.EncryptedData  `asn1:"explicit,tag:3"`
}

// NewTicket builds a well-formed Ticket (tkt-vno fixed at 5 per RFC 4120).
func NewTicket(realm types.Realm, sname types.PrincipalName, encPart types.EncryptedData) Ticket {
	return Ticket{TktVNO: 5, Realm: realm, SName: sname, EncPart: encPart}
}

// Marshal DER-encodes the ticket under APPLICATION tag 1.
func (t Ticket) Marshal() ([]byte, error) {
	return asn1.MarshalWithParams(t, fmt.Sprintf("application,tag:%d", asnapptag.Ticket))
}

// UnmarshalTicket decodes an APPLICATION-tagged Ticket.
func UnmarshalTicket(b []byte) (Ticket, error) {
	var t Ticket
	_, err := asn1.UnmarshalWithParams(b, &t, fmt.Sprintf("application,tag:%d", asnapptag.Ticket))
	if err != nil {
		return t, fmt.Errorf("messages: unmarshal Ticket: %w", err)
	}
	if t.TktVNO != 5 {
		return t, fmt.Errorf("messages: unsupported ticket version %d", t.TktVNO)
	}
	return t, nil
}

// TicketSequence is a SequenceOf<Ticket>, used for KDC-REQ-BODY's
// additional-tickets field. Each element is itself APPLICATION-tagged, so it
// cannot be decoded by a flat asn1.Unmarshal of the outer sequence; callers
// must decode element-by-element via raw values (see
// KDCReqBody.DecodeAdditionalTickets in kdcreq.go).
type TicketSequence []Ticket

// EncTicketPart is RFC 4120 §5.3, APPLICATION tag 3: the sealed contents of
// a Ticket. This is the structure the KDC builds and only the holder of the
// service's long-term key can ever decrypt.
type EncTicketPart struct {
	Flags             types.BitString          `asn1:"explicit,tag:0"`
	Key               types.EncryptionKey       `asn1:"explicit,tag:1"`
	CRealm            types.Realm               `asn1:"generalstring,explicit,tag:2"`
	CName             types.PrincipalName       `asn1:"explicit,tag:3"`
	Transited         TransitedEncoding         `asn1:"explicit,tag:4"`
	AuthTime          types.KerberosTime        `asn1:"generalized,explicit,tag:5"`
	StartTime         types.KerberosTime        `asn1:"generalized,explicit,optional,tag:6"`
	EndTime           types.KerberosTime        `asn1:"generalized,explicit,tag:7"`
	RenewTill         types.KerberosTime        `asn1:"generalized,explicit,optional,tag:8"`
	CAddr             types.HostAddresses       `asn1:"explicit,optional,tag:9"`
	AuthorizationData AuthorizationData         `asn1:"explicit,optional,tag:10"`
}

// TransitedEncoding is RFC 4120 §5.3.1; this implementation only issues
// local-realm tickets (cross-realm is a Non-goal) so TrType is always 0 and
// Contents is always empty, but the wire shape is preserved for
// interoperability with tickets produced by other realms' KDCs.
type TransitedEncoding struct {
	TrType   int              `asn1:"explicit,tag:0"`
	Contents types.OctetString `asn1:"explicit,tag:1"`
}

// AuthorizationData is a SequenceOf<AuthorizationDataEntry>. Entries are
// opaque ad-type/ad-data pairs (RFC 4120 §5.2.6); this implementation passes
// them through untouched between authenticator and ticket as required by
// spec.md §4.6 step 11.
type AuthorizationData []AuthorizationDataEntry

type AuthorizationDataEntry struct {
	ADType int               `asn1:"explicit,tag:0"`
	ADData types.OctetString `asn1:"explicit,tag:1"`
}

// Marshal/Unmarshal for EncTicketPart follow the APPLICATION-tag-3 wrapping.
func (e EncTicketPart) Marshal() ([]byte, error) {
	return asn1.MarshalWithParams(e, fmt.Sprintf("application,tag:%d", asnapptag.EncTicketPart))
}

func UnmarshalEncTicketPart(b []byte) (EncTicketPart, error) {
	var e EncTicketPart
	_, err := asn1.UnmarshalWithParams(b, &e, fmt.Sprintf("application,tag:%d", asnapptag.EncTicketPart))
	if err != nil {
		return e, fmt.Errorf("messages: unmarshal EncTicketPart: %w", err)
	}
	e.Flags = types.PaddedFlags(e.Flags)
	return e, nil
}

// EncTicketPartBuilder mirrors original_source's EncTicketPart::builder()
// and the teacher's general builder-for-many-optionals habit (see
// EncKdcRepPartBuilder in kdcrep.go). Build fails unless flags, key and
// authtime have been set and endtime is after starttime (or authtime when
// starttime is absent); crealm, cname and transited are not checked.
type EncTicketPartBuilder struct {
	part    EncTicketPart
	hasFlag bool
	hasKey  bool
	hasTime bool
}

func NewEncTicketPartBuilder() *EncTicketPartBuilder { return &EncTicketPartBuilder{} }

func (b *EncTicketPartBuilder) Flags(f types.BitString) *EncTicketPartBuilder {
	b.part.Flags = f
	b.hasFlag = true
	return b
}
func (b *EncTicketPartBuilder) Key(k types.EncryptionKey) *EncTicketPartBuilder {
	b.part.Key = k
	b.hasKey = true
	return b
}
func (b *EncTicketPartBuilder) CRealm(r types.Realm) *EncTicketPartBuilder {
	b.part.CRealm = r
	return b
}
func (b *EncTicketPartBuilder) CName(n types.PrincipalName) *EncTicketPartBuilder {
	b.part.CName = n
	return b
}
func (b *EncTicketPartBuilder) Transited(t TransitedEncoding) *EncTicketPartBuilder {
	b.part.Transited = t
	return b
}
func (b *EncTicketPartBuilder) AuthTime(t types.KerberosTime) *EncTicketPartBuilder {
	b.part.AuthTime = t
	b.hasTime = true
	return b
}
func (b *EncTicketPartBuilder) StartTime(t types.KerberosTime) *EncTicketPartBuilder {
	b.part.StartTime = t
	return b
}
func (b *EncTicketPartBuilder) EndTime(t types.KerberosTime) *EncTicketPartBuilder {
	b.part.EndTime = t
	return b
}
func (b *EncTicketPartBuilder) RenewTill(t types.KerberosTime) *EncTicketPartBuilder {
	b.part.RenewTill = t
	return b
}
func (b *EncTicketPartBuilder) CAddr(a types.HostAddresses) *EncTicketPartBuilder {
	b.part.CAddr = a
	return b
}
func (b *EncTicketPartBuilder) AuthorizationData(ad AuthorizationData) *EncTicketPartBuilder {
	b.part.AuthorizationData = ad
	return b
}

func (b *EncTicketPartBuilder) Build() (EncTicketPart, error) {
	if !b.hasFlag || !b.hasKey || !b.hasTime {
		return EncTicketPart{}, fmt.Errorf("messages: EncTicketPart requires flags, key and authtime")
	}
	if !b.part.EndTime.After(firstOf(b.part.StartTime, b.part.AuthTime)) {
		return EncTicketPart{}, fmt.Errorf("messages: EncTicketPart endtime must be after starttime/authtime")
	}
	return b.part, nil
}

func firstOf(start, auth types.KerberosTime) types.KerberosTime {
	if start.Zero() {
		return auth
	}
	return start
}
