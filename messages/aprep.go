package messages

import (
	"encoding/asn1"
	"fmt"

	"github.com/kerbgo/kerberos/iana/asnapptag"
	"github.com/kerbgo/kerberos/iana/msgtype"
	"github.com/kerbgo/kerberos/types"
)

// EncApRepPart is RFC 4120 §5.5.2, APPLICATION tag 27: the mutual-auth
// proof sealed under the ticket's session key. Subkey is left OPTIONAL and
// omitted entirely when no subkey was negotiated, per spec.md §9's
// resolution of the corresponding Open Question.
type EncApRepPart struct {
	Ctime     types.KerberosTime  `asn1:"generalized,explicit,tag:0"`
	Cusec     types.Microseconds  `asn1:"explicit,tag:1"`
	Subkey    *types.EncryptionKey `asn1:"explicit,optional,tag:2"`
	SeqNumber *int                `asn1:"explicit,optional,tag:3"`
}

func (e EncApRepPart) Marshal() ([]byte, error) {
	return asn1.MarshalWithParams(e, fmt.Sprintf("application,tag:%d", asnapptag.EncApRepPart))
}

func UnmarshalEncApRepPart(b []byte) (EncApRepPart, error) {
	var e EncApRepPart
	_, err := asn1.UnmarshalWithParams(b, &e, fmt.Sprintf("application,tag:%d", asnapptag.EncApRepPart))
	if err != nil {
		return e, fmt.Errorf("messages: unmarshal EncApRepPart: %w", err)
	}
	return e, nil
}

// ApRep is RFC 4120 §5.5.2, APPLICATION tag 15: returned only when the
// AP-REQ requested mutual authentication.
type ApRep struct {
	PVNO    int
	MsgType int
	EncPart types.EncryptedData
}

func NewApRep(encPart types.EncryptedData) ApRep {
	return ApRep{PVNO: 5, MsgType: msgtype.KRB_AP_REP, EncPart: encPart}
}

type apRepWire struct {
	PVNO    int                  `asn1:"explicit,tag:0"`
	MsgType int                  `asn1:"explicit,tag:1"`
	EncPart types.EncryptedData  `asn1:"explicit,tag:2"`
}

func (a ApRep) Marshal() ([]byte, error) {
	m := apRepWire{PVNO: a.PVNO, MsgType: a.MsgType, EncPart: a.EncPart}
	return asn1.MarshalWithParams(m, fmt.Sprintf("application,tag:%d", asnapptag.APRep))
}

func UnmarshalApRep(b []byte) (ApRep, error) {
	var m apRepWire
	_, err := asn1.UnmarshalWithParams(b, &m, fmt.Sprintf("application,tag:%d", asnapptag.APRep))
	if err != nil {
		return ApRep{}, fmt.Errorf("messages: unmarshal AP-REP: %w", err)
	}
	if m.MsgType != msgtype.KRB_AP_REP {
		return ApRep{}, fmt.Errorf("messages: message is not a KRB_AP_REP")
	}
	return ApRep{PVNO: m.PVNO, MsgType: m.MsgType, EncPart: m.EncPart}, nil
}
