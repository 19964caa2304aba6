package messages

import (
	"encoding/asn1"
	"fmt"

	"github.com/kerbgo/kerberos/iana/asnapptag"
	"github.com/kerbgo/kerberos/iana/msgtype"
	"github.com/kerbgo/kerberos/types"
)

// Authenticator is RFC 4120 §5.5.1, APPLICATION tag 2: freshly generated by
// the client for every AP-REQ, proving live possession of the ticket's
// session key.
type Authenticator struct {
	AVNO              int                   `asn1:"explicit,tag:0"`
	CRealm            types.Realm           `asn1:"generalstring,explicit,tag:1"`
	CName             types.PrincipalName   `asn1:"explicit,tag:2"`
	Cksum             types.Checksum        `asn1:"explicit,optional,tag:3"`
	Cusec             types.Microseconds    `asn1:"explicit,tag:4"`
	Ctime             types.KerberosTime    `asn1:"generalized,explicit,tag:5"`
	Subkey            types.EncryptionKey   `asn1:"explicit,optional,tag:6"`
	SeqNumber         int                   `asn1:"explicit,optional,tag:7"`
	AuthorizationData AuthorizationData     `asn1:"explicit,optional,tag:8"`
}

func NewAuthenticator(crealm types.Realm, cname types.PrincipalName, ctime types.KerberosTime, cusec types.Microseconds) Authenticator {
	return Authenticator{AVNO: 5, CRealm: crealm, CName: cname, Ctime: ctime, Cusec: cusec}
}

func (a Authenticator) Marshal() ([]byte, error) {
	return asn1.MarshalWithParams(a, fmt.Sprintf("application,tag:%d", asnapptag.Authenticator))
}

func UnmarshalAuthenticator(b []byte) (Authenticator, error) {
	var a Authenticator
	_, err := asn1.UnmarshalWithParams(b, &a, fmt.Sprintf("application,tag:%d", asnapptag.Authenticator))
	if err != nil {
		return a, fmt.Errorf("messages: unmarshal Authenticator: %w", err)
	}
	if a.AVNO != 5 {
		return a, fmt.Errorf("messages: unsupported authenticator version %d", a.AVNO)
	}
	return a, nil
}

// HasSubkey/HasCksum report whether the corresponding OPTIONAL
// field decoded to a non-zero value. Kerberos subkeys/checksums are never
// legitimately all-zero-length, so this approximation is safe for the
// optional fields this implementation actually branches on.
func (a Authenticator) HasSubkey() bool    { return len(a.Subkey.KeyValue) > 0 }
func (a Authenticator) HasCksum() bool     { return len(a.Cksum.Checksum) > 0 }

// apReqWire is the raw-ticket wire shape of AP-REQ (RFC 4120 §5.5.1,
// APPLICATION tag 14): the ticket field is itself APPLICATION-tagged, so it
// is carried as a raw value and decoded separately, matching the teacher's
// habit for any field whose ASN.1 type carries its own APPLICATION tag.
type apReqWire struct {
	PVNO          int           `asn1:"explicit,tag:0"`
	MsgType       int           `asn1:"explicit,tag:1"`
	APOptions     types.BitString `asn1:"explicit,tag:2"`
	Ticket        asn1.RawValue `asn1:"explicit,tag:3"`
	Authenticator types.EncryptedData `asn1:"explicit,tag:4"`
}

// ApReq is RFC 4120 §5.5.1: a ticket plus a fresh authenticator sealed under
// the ticket's session key, optionally requesting mutual authentication.
type ApReq struct {
	PVNO          int
	MsgType       int
	APOptions     types.BitString
	Ticket        Ticket
	Authenticator types.EncryptedData
}

func NewApReq(tkt Ticket, auth types.EncryptedData, mutualRequired bool) ApReq {
	opts := types.NewFlags()
	if mutualRequired {
		opts = types.NewFlags(types.APOptionMutualRequired)
	}
	return ApReq{PVNO: 5, MsgType: msgtype.KRB_AP_REQ, APOptions: opts, Ticket: tkt, Authenticator: auth}
}

func (a ApReq) Options() types.BitString { return types.PaddedFlags(a.APOptions) }

func (a ApReq) Marshal() ([]byte, error) {
	tb, err := a.Ticket.Marshal()
	if err != nil {
		return nil, fmt.Errorf("messages: marshal ticket: %w", err)
	}
	m := apReqWire{
		PVNO: a.PVNO, MsgType: a.MsgType, APOptions: a.APOptions,
		Ticket:        asn1.RawValue{FullBytes: tb},
		Authenticator: a.Authenticator,
	}
	return asn1.MarshalWithParams(m, fmt.Sprintf("application,tag:%d", asnapptag.APReq))
}

func UnmarshalApReq(b []byte) (ApReq, error) {
	var m apReqWire
	_, err := asn1.UnmarshalWithParams(b, &m, fmt.Sprintf("application,tag:%d", asnapptag.APReq))
	if err != nil {
		return ApReq{}, fmt.Errorf("messages: unmarshal AP-REQ: %w", err)
	}
	if m.MsgType != msgtype.KRB_AP_REQ {
		return ApReq{}, fmt.Errorf("messages: message is not a KRB_AP_REQ")
	}
	tkt, err := UnmarshalTicket(m.Ticket.FullBytes)
	if err != nil {
		return ApReq{}, err
	}
	return ApReq{
		PVNO: m.PVNO, MsgType: m.MsgType, APOptions: types.PaddedFlags(m.APOptions),
		Ticket: tkt, Authenticator: m.Authenticator,
	}, nil
}
