package messages

import (
	"encoding/asn1"
	"fmt"

	"github.com/kerbgo/kerberos/iana/asnapptag"
	"github.com/kerbgo/kerberos/iana/msgtype"
	"github.com/kerbgo/kerberos/types"
)

// KRBError is RFC 4120 §5.9.1, APPLICATION tag 30: the single error shape
// every exchange may return instead of its normal reply. error-code is one
// of the values in package errorcode.
type KRBError struct {
	PVNO      int                 `asn1:"explicit,tag:0"`
	MsgType   int                 `asn1:"explicit,tag:1"`
	Ctime     types.KerberosTime  `asn1:"generalized,explicit,optional,tag:2"`
	Cusec     types.Microseconds  `asn1:"explicit,optional,tag:3"`
	Stime     types.KerberosTime  `asn1:"generalized,explicit,tag:4"`
	Susec     types.Microseconds  `asn1:"explicit,tag:5"`
	ErrorCode int                 `asn1:"explicit,tag:6"`
	CRealm    types.Realm         `asn1:"generalstring,explicit,optional,tag:7"`
	CName     types.PrincipalName `asn1:"explicit,optional,tag:8"`
	Realm     types.Realm         `asn1:"generalstring,explicit,tag:9"`
	SName     types.PrincipalName `asn1:"explicit,tag:10"`
	EText     string              `asn1:"generalstring,explicit,optional,tag:11"`
	EData     types.OctetString   `asn1:"explicit,optional,tag:12"`
}

// Error implements the error interface so a KRBError can be returned
// directly from exchange handlers and client drivers, matching the
// teacher's client/network.go checkForKRBError pattern of treating a
// decoded KRBError as the error value itself.
func (e KRBError) Error() string {
	if e.EText != "" {
		return fmt.Sprintf("krb error %d: %s", e.ErrorCode, e.EText)
	}
	return fmt.Sprintf("krb error %d", e.ErrorCode)
}

func (e KRBError) Marshal() ([]byte, error) {
	e.PVNO = 5
	e.MsgType = msgtype.KRB_ERROR
	return asn1.MarshalWithParams(e, fmt.Sprintf("application,tag:%d", asnapptag.KRBError))
}

func UnmarshalKRBError(b []byte) (KRBError, error) {
	var e KRBError
	_, err := asn1.UnmarshalWithParams(b, &e, fmt.Sprintf("application,tag:%d", asnapptag.KRBError))
	if err != nil {
		return e, fmt.Errorf("messages: unmarshal KRB-ERROR: %w", err)
	}
	if e.MsgType != msgtype.KRB_ERROR {
		return e, fmt.Errorf("messages: message is not a KRB-ERROR")
	}
	return e, nil
}

// KRBErrorBuilder collects the many optional fields of a KRB-ERROR,
// mirroring original_source's KrbErrorMsgBuilder / default_error_builder
// habit of pre-seeding stime/susec/sname/realm once per service instance.
type KRBErrorBuilder struct {
	e KRBError
}

func NewKRBErrorBuilder(stime types.KerberosTime, susec types.Microseconds, realm types.Realm, sname types.PrincipalName) *KRBErrorBuilder {
	return &KRBErrorBuilder{e: KRBError{PVNO: 5, MsgType: msgtype.KRB_ERROR, Stime: stime, Susec: susec, Realm: realm, SName: sname}}
}

func (b *KRBErrorBuilder) ErrorCode(code int) *KRBErrorBuilder {
	b.e.ErrorCode = code
	return b
}
func (b *KRBErrorBuilder) CTime(t types.KerberosTime) *KRBErrorBuilder {
	b.e.Ctime = t
	return b
}
func (b *KRBErrorBuilder) CUsec(u types.Microseconds) *KRBErrorBuilder {
	b.e.Cusec = u
	return b
}
func (b *KRBErrorBuilder) CRealm(r types.Realm) *KRBErrorBuilder {
	b.e.CRealm = r
	return b
}
func (b *KRBErrorBuilder) CName(n types.PrincipalName) *KRBErrorBuilder {
	b.e.CName = n
	return b
}
func (b *KRBErrorBuilder) EText(t string) *KRBErrorBuilder {
	b.e.EText = t
	return b
}

func (b *KRBErrorBuilder) Build() KRBError { return b.e }
