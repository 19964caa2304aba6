package messages

import (
	"encoding/asn1"
	"fmt"

	"github.com/kerbgo/kerberos/iana/asnapptag"
	"github.com/kerbgo/kerberos/iana/msgtype"
	"github.com/kerbgo/kerberos/types"
)

// LastReq is one element of the last-request sequence returned in
// EncKdcRepPart, sourced from the LastReqStore cache specialization.
type LastReq struct {
	LRType  int                `asn1:"explicit,tag:0"`
	LRValue types.KerberosTime `asn1:"generalized,explicit,tag:1"`
}

// Well-known lr-type values, RFC 4120 §5.4.2.
const (
	LRTypeNone               = 0
	LRTypeTimeOfLastInitial  = 1
	LRTypeTimeOfLastRenewal  = 4
	LRTypeTimeOfLastRequest  = 5
)

// EncKdcRepPart is the encrypted part common to AS-REP and TGS-REP (RFC
// 4120 §5.4.2): session key, last-req history, nonce echo and the granted
// ticket's timing/flags mirrored for the client's own bookkeeping.
type EncKdcRepPart struct {
	Key           types.EncryptionKey   `asn1:"explicit,tag:0"`
	LastReqs      []LastReq             `asn1:"explicit,tag:1"`
	Nonce         int                   `asn1:"explicit,tag:2"`
	KeyExpiration types.KerberosTime    `asn1:"generalized,explicit,optional,tag:3"`
	Flags         types.BitString       `asn1:"explicit,tag:4"`
	AuthTime      types.KerberosTime    `asn1:"generalized,explicit,tag:5"`
	StartTime     types.KerberosTime    `asn1:"generalized,explicit,optional,tag:6"`
	EndTime       types.KerberosTime    `asn1:"generalized,explicit,tag:7"`
	RenewTill     types.KerberosTime    `asn1:"generalized,explicit,optional,tag:8"`
	SRealm        types.Realm           `asn1:"generalstring,explicit,tag:9"`
	SName         types.PrincipalName   `asn1:"explicit,tag:10"`
	CAddr         types.HostAddresses   `asn1:"explicit,optional,tag:11"`
}

// Marshal/Unmarshal apply the APPLICATION tag appropriate to the reply kind;
// RFC 4120 §5.4.2 notes some implementations unconditionally use the TGS-REP
// tag (26) regardless of which reply carries it, so Unmarshal tries both
// per the teacher's EncKDCRepPart.Unmarshal compatibility fallback.
func (e EncKdcRepPart) MarshalAs(appTag int) ([]byte, error) {
	return asn1.MarshalWithParams(e, fmt.Sprintf("application,tag:%d", appTag))
}

func UnmarshalEncKdcRepPart(b []byte) (EncKdcRepPart, error) {
	var e EncKdcRepPart
	_, err := asn1.UnmarshalWithParams(b, &e, fmt.Sprintf("application,tag:%d", asnapptag.EncASRepPart))
	if err != nil {
		_, err2 := asn1.UnmarshalWithParams(b, &e, fmt.Sprintf("application,tag:%d", asnapptag.EncTGSRepPart))
		if err2 != nil {
			return e, fmt.Errorf("messages: unmarshal EncKdcRepPart: %w", err)
		}
	}
	e.Flags = types.PaddedFlags(e.Flags)
	return e, nil
}

// EncKdcRepPartBuilder requires every RFC-4120-mandatory field (key,
// last-req, nonce, flags, authtime, endtime, srealm, sname) before Build
// succeeds, per spec.md Design Notes §9.
type EncKdcRepPartBuilder struct {
	part                                            EncKdcRepPart
	hasKey, hasLastReq, hasNonce, hasFlags, hasAuthTime, hasEndTime, hasSRealm, hasSName bool
}

func NewEncKdcRepPartBuilder() *EncKdcRepPartBuilder { return &EncKdcRepPartBuilder{} }

func (b *EncKdcRepPartBuilder) Key(k types.EncryptionKey) *EncKdcRepPartBuilder {
	b.part.Key = k
	b.hasKey = true
	return b
}
func (b *EncKdcRepPartBuilder) LastReqs(l []LastReq) *EncKdcRepPartBuilder {
	b.part.LastReqs = l
	b.hasLastReq = true
	return b
}
func (b *EncKdcRepPartBuilder) Nonce(n int) *EncKdcRepPartBuilder {
	b.part.Nonce = n
	b.hasNonce = true
	return b
}
func (b *EncKdcRepPartBuilder) Flags(f types.BitString) *EncKdcRepPartBuilder {
	b.part.Flags = f
	b.hasFlags = true
	return b
}
func (b *EncKdcRepPartBuilder) AuthTime(t types.KerberosTime) *EncKdcRepPartBuilder {
	b.part.AuthTime = t
	b.hasAuthTime = true
	return b
}
func (b *EncKdcRepPartBuilder) StartTime(t types.KerberosTime) *EncKdcRepPartBuilder {
	b.part.StartTime = t
	return b
}
func (b *EncKdcRepPartBuilder) EndTime(t types.KerberosTime) *EncKdcRepPartBuilder {
	b.part.EndTime = t
	b.hasEndTime = true
	return b
}
func (b *EncKdcRepPartBuilder) RenewTill(t types.KerberosTime) *EncKdcRepPartBuilder {
	b.part.RenewTill = t
	return b
}
func (b *EncKdcRepPartBuilder) SRealm(r types.Realm) *EncKdcRepPartBuilder {
	b.part.SRealm = r
	b.hasSRealm = true
	return b
}
func (b *EncKdcRepPartBuilder) SName(n types.PrincipalName) *EncKdcRepPartBuilder {
	b.part.SName = n
	b.hasSName = true
	return b
}
func (b *EncKdcRepPartBuilder) CAddr(a types.HostAddresses) *EncKdcRepPartBuilder {
	b.part.CAddr = a
	return b
}

func (b *EncKdcRepPartBuilder) Build() (EncKdcRepPart, error) {
	if !b.hasKey || !b.hasLastReq || !b.hasNonce || !b.hasFlags || !b.hasAuthTime || !b.hasEndTime || !b.hasSRealm || !b.hasSName {
		return EncKdcRepPart{}, fmt.Errorf("messages: EncKdcRepPart requires key, last-req, nonce, flags, authtime, endtime, srealm and sname")
	}
	return b.part, nil
}

// kdcRep is the wire shape shared by AS-REP and TGS-REP.
type kdcRep struct {
	PVNO    int                  `asn1:"explicit,tag:0"`
	MsgType int                  `asn1:"explicit,tag:1"`
	PAData  types.PADataSequence `asn1:"explicit,optional,tag:2"`
	CRealm  types.Realm          `asn1:"generalstring,explicit,tag:3"`
	CName   types.PrincipalName  `asn1:"explicit,tag:4"`
	Ticket  asn1.RawValue        `asn1:"explicit,tag:5"`
	EncPart types.EncryptedData  `asn1:"explicit,tag:6"`
}

// KDCRepFields is embedded by both ASRep and TGSRep, matching the teacher's
// KDCRepFields/ASRep/TGSRep split so common reply bookkeeping (decrypted
// enc-part cache) lives in one place.
type KDCRepFields struct {
	PVNO             int
	MsgType          int
	PAData           types.PADataSequence
	CRealm           types.Realm
	CName            types.PrincipalName
	Ticket           Ticket
	EncPart          types.EncryptedData
	DecryptedEncPart EncKdcRepPart
}

type ASRep struct{ KDCRepFields }
type TGSRep struct{ KDCRepFields }

func NewASRep(crealm types.Realm, cname types.PrincipalName, tkt Ticket, encPart types.EncryptedData) ASRep {
	return ASRep{KDCRepFields{PVNO: 5, MsgType: msgtype.KRB_AS_REP, CRealm: crealm, CName: cname, Ticket: tkt, EncPart: encPart}}
}

func NewTGSRep(crealm types.Realm, cname types.PrincipalName, tkt Ticket, encPart types.EncryptedData) TGSRep {
	return TGSRep{KDCRepFields{PVNO: 5, MsgType: msgtype.KRB_TGS_REP, CRealm: crealm, CName: cname, Ticket: tkt, EncPart: encPart}}
}

func marshalKdcRep(f KDCRepFields, appTag int) ([]byte, error) {
	tb, err := f.Ticket.Marshal()
	if err != nil {
		return nil, fmt.Errorf("messages: marshal ticket: %w", err)
	}
	m := kdcRep{
		PVNO: f.PVNO, MsgType: f.MsgType, PAData: f.PAData,
		CRealm: f.CRealm, CName: f.CName,
		Ticket:  asn1.RawValue{FullBytes: tb},
		EncPart: f.EncPart,
	}
	return asn1.MarshalWithParams(m, fmt.Sprintf("application,tag:%d", appTag))
}

func unmarshalKdcRep(b []byte, appTag, wantMsgType int) (KDCRepFields, error) {
	var m kdcRep
	_, err := asn1.UnmarshalWithParams(b, &m, fmt.Sprintf("application,tag:%d", appTag))
	if err != nil {
		return KDCRepFields{}, fmt.Errorf("messages: unmarshal KDC-REP: %w", err)
	}
	if m.MsgType != wantMsgType {
		return KDCRepFields{}, fmt.Errorf("messages: unexpected msg-type %d", m.MsgType)
	}
	tkt, err := UnmarshalTicket(m.Ticket.FullBytes)
	if err != nil {
		return KDCRepFields{}, err
	}
	return KDCRepFields{
		PVNO: m.PVNO, MsgType: m.MsgType, PAData: m.PAData,
		CRealm: m.CRealm, CName: m.CName, Ticket: tkt, EncPart: m.EncPart,
	}, nil
}

func (r ASRep) Marshal() ([]byte, error) {
	return marshalKdcRep(r.KDCRepFields, asnapptag.ASRep)
}

func UnmarshalASRep(b []byte) (ASRep, error) {
	f, err := unmarshalKdcRep(b, asnapptag.ASRep, msgtype.KRB_AS_REP)
	return ASRep{f}, err
}

func (r TGSRep) Marshal() ([]byte, error) {
	return marshalKdcRep(r.KDCRepFields, asnapptag.TGSRep)
}

func UnmarshalTGSRep(b []byte) (TGSRep, error) {
	f, err := unmarshalKdcRep(b, asnapptag.TGSRep, msgtype.KRB_TGS_REP)
	return TGSRep{f}, err
}
