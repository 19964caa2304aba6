package messages

import (
	"encoding/asn1"
	"fmt"

	"github.com/kerbgo/kerberos/iana/asnapptag"
	"github.com/kerbgo/kerberos/iana/msgtype"
	"github.com/kerbgo/kerberos/types"
)

// KDCReqBody is the body shared by AS-REQ and TGS-REQ (RFC 4120 §5.4.1).
type KDCReqBody struct {
	KDCOptions        types.BitString      `asn1:"explicit,tag:0"`
	CName             types.PrincipalName  `asn1:"explicit,optional,tag:1"`
	Realm             types.Realm          `asn1:"generalstring,explicit,tag:2"`
	SName             types.PrincipalName  `asn1:"explicit,optional,tag:3"`
	From              types.KerberosTime   `asn1:"generalized,explicit,optional,tag:4"`
	Till              types.KerberosTime   `asn1:"generalized,explicit,tag:5"`
	RTime             types.KerberosTime   `asn1:"generalized,explicit,optional,tag:6"`
	Nonce             int                  `asn1:"explicit,tag:7"`
	EType             []types.Int32        `asn1:"explicit,tag:8"`
	Addresses         types.HostAddresses  `asn1:"explicit,optional,tag:9"`
	EncAuthData       types.EncryptedData  `asn1:"explicit,optional,tag:10"`
	AdditionalTickets []asn1.RawValue      `asn1:"explicit,optional,tag:11"`
}

// Options wraps KDCOptions in the semantic flag-checking type.
func (b KDCReqBody) Options() types.KDCOptions {
	return types.KDCOptions{Flags: types.PaddedFlags(b.KDCOptions)}
}

// DecodeAdditionalTickets decodes each raw SEQUENCE OF element as an
// APPLICATION-1-tagged Ticket. Additional tickets only matter for
// user-to-user authentication, a Non-goal, but the wire shape is preserved.
func (b KDCReqBody) DecodeAdditionalTickets() ([]Ticket, error) {
	tkts := make([]Ticket, 0, len(b.AdditionalTickets))
	for _, raw := range b.AdditionalTickets {
		t, err := UnmarshalTicket(raw.FullBytes)
		if err != nil {
			return nil, err
		}
		tkts = append(tkts, t)
	}
	return tkts, nil
}

// Marshal DER-encodes the request body as a plain (non-application-tagged)
// SEQUENCE, matching its use nested inside ASReq/TGSReq.
func (b KDCReqBody) Marshal() ([]byte, error) {
	return asn1.Marshal(b)
}

// kdcReq is the wire shape shared by AS-REQ and TGS-REQ; only the outer
// APPLICATION tag and msg-type differ between the two.
type kdcReq struct {
	PVNO    int                     `asn1:"explicit,tag:1"`
	MsgType int                     `asn1:"explicit,tag:2"`
	PAData  types.PADataSequence    `asn1:"explicit,optional,tag:3"`
	ReqBody KDCReqBody              `asn1:"explicit,tag:4"`
}

// ASReq is RFC 4120 §5.4.1, APPLICATION tag 10.
type ASReq struct {
	PVNO    int
	MsgType int
	PAData  types.PADataSequence
	ReqBody KDCReqBody
}

// TGSReq is RFC 4120 §5.4.1, APPLICATION tag 12.
type TGSReq struct {
	PVNO    int
	MsgType int
	PAData  types.PADataSequence
	ReqBody KDCReqBody
}

func NewASReq(body KDCReqBody, pa types.PADataSequence) ASReq {
	return ASReq{PVNO: 5, MsgType: msgtype.KRB_AS_REQ, PAData: pa, ReqBody: body}
}

func NewTGSReq(body KDCReqBody, pa types.PADataSequence) TGSReq {
	return TGSReq{PVNO: 5, MsgType: msgtype.KRB_TGS_REQ, PAData: pa, ReqBody: body}
}

func (r ASReq) Marshal() ([]byte, error) {
	m := kdcReq{PVNO: r.PVNO, MsgType: r.MsgType, PAData: r.PAData, ReqBody: r.ReqBody}
	return asn1.MarshalWithParams(m, fmt.Sprintf("application,tag:%d", asnapptag.ASReq))
}

func UnmarshalASReq(b []byte) (ASReq, error) {
	var m kdcReq
	_, err := asn1.UnmarshalWithParams(b, &m, fmt.Sprintf("application,tag:%d", asnapptag.ASReq))
	if err != nil {
		return ASReq{}, fmt.Errorf("messages: unmarshal AS-REQ: %w", err)
	}
	if m.MsgType != msgtype.KRB_AS_REQ {
		return ASReq{}, fmt.Errorf("messages: message is not a KRB_AS_REQ")
	}
	return ASReq{PVNO: m.PVNO, MsgType: m.MsgType, PAData: m.PAData, ReqBody: m.ReqBody}, nil
}

func (r TGSReq) Marshal() ([]byte, error) {
	m := kdcReq{PVNO: r.PVNO, MsgType: r.MsgType, PAData: r.PAData, ReqBody: r.ReqBody}
	return asn1.MarshalWithParams(m, fmt.Sprintf("application,tag:%d", asnapptag.TGSReq))
}

func UnmarshalTGSReq(b []byte) (TGSReq, error) {
	var m kdcReq
	_, err := asn1.UnmarshalWithParams(b, &m, fmt.Sprintf("application,tag:%d", asnapptag.TGSReq))
	if err != nil {
		return TGSReq{}, fmt.Errorf("messages: unmarshal TGS-REQ: %w", err)
	}
	if m.MsgType != msgtype.KRB_TGS_REQ {
		return TGSReq{}, fmt.Errorf("messages: message is not a KRB_TGS_REQ")
	}
	return TGSReq{PVNO: m.PVNO, MsgType: m.MsgType, PAData: m.PAData, ReqBody: m.ReqBody}, nil
}
