// Package client implements the exchange drivers of spec.md §4.8: building
// AS-REQ/TGS-REQ/AP-REQ, verifying the corresponding replies, and persisting
// tickets and keys to a cache directory. Grounded on the teacher's
// client.Client/client/network.go request-then-verify flow, generalized
// from gokrb5's concrete AS/TGS semantics to this spec's.
package client

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/kerbgo/kerberos/crypto"
	"github.com/kerbgo/kerberos/iana/patype"
	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/types"
)

// ErrResponseModified is returned by ReceiveASResponse/ReceiveTGSResponse
// when the reply fails any of spec.md §4.8's cross-checks against the
// original request — the reply cannot be trusted to answer this request.
var ErrResponseModified = errors.New("client: response does not match request")

// Environment holds the identity and configuration an exchange driver needs:
// this client's own principal/key, its target realm/transport, and the
// crypto registry shared with the rest of the system.
type Environment struct {
	CName         types.PrincipalName
	Realm         types.Realm
	Key           types.EncryptionKey
	ETypes        []int32
	Addresses     types.HostAddresses
	Crypto        *crypto.Registry
	Clock         func() time.Time
}

func (e *Environment) now() types.KerberosTime {
	clock := e.Clock
	if clock == nil {
		clock = time.Now
	}
	return types.NewKerberosTime(clock())
}

func randomNonce() (int, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, errors.Wrap(err, "client: generating nonce")
	}
	// RFC 4120 nonces are 32-bit; mask the sign bit so it always decodes as
	// a non-negative ASN.1 INTEGER.
	return int(binary.BigEndian.Uint32(buf[:]) & 0x7fffffff), nil
}

// PrepareASRequest builds an AS-REQ for a ticket-granting ticket, per
// spec.md §4.8.
func (e *Environment) PrepareASRequest(targetPrincipal types.PrincipalName, targetRealm types.Realm, lifetime time.Duration, from, rtime types.KerberosTime, forwardable, proxiable bool) (messages.ASReq, int, error) {
	nonce, err := randomNonce()
	if err != nil {
		return messages.ASReq{}, 0, err
	}
	now := e.now()

	var opts []int
	if forwardable {
		opts = append(opts, types.FlagForwardable)
	}
	if proxiable {
		opts = append(opts, types.FlagProxiable)
	}
	if !rtime.Zero() {
		opts = append(opts, types.FlagRenewable)
	}
	if !from.Zero() {
		opts = append(opts, types.FlagPostdated, types.FlagAllowPostdate)
	}

	body := messages.KDCReqBody{
		KDCOptions: types.NewFlags(opts...),
		CName:      e.CName,
		Realm:      e.Realm,
		SName:      targetPrincipal,
		From:       from,
		Till:       now.Add(lifetime),
		RTime:      rtime,
		Nonce:      nonce,
		EType:      e.ETypes,
		Addresses:  e.Addresses,
	}
	_ = targetRealm // target principal's realm is folded into SName by convention; kept for callers that pass it explicitly
	return messages.NewASReq(body, nil), nonce, nil
}

// ReceiveASResponse decrypts rep's enc-part with e.Key and verifies it
// against req per spec.md §4.8 (a)-(i), returning the decrypted
// EncKdcRepPart (which carries the session key) on success.
func (e *Environment) ReceiveASResponse(req messages.ASReq, rep messages.ASRep, nonce int) (messages.EncKdcRepPart, error) {
	plain, err := crypto.Open(e.Crypto, e.Key, rep.EncPart)
	if err != nil {
		return messages.EncKdcRepPart{}, errors.Wrap(err, "client: decrypting AS-REP enc-part")
	}
	enc, err := messages.UnmarshalEncKdcRepPart(plain)
	if err != nil {
		return messages.EncKdcRepPart{}, errors.Wrap(err, "client: unmarshaling EncKdcRepPart")
	}
	if err := verifyKdcReply(req.ReqBody, rep.CRealm, rep.CName, enc, nonce); err != nil {
		return messages.EncKdcRepPart{}, err
	}
	if !req.ReqBody.CName.Equal(rep.CName) {
		return messages.EncKdcRepPart{}, ErrResponseModified
	}
	return enc, nil
}

// verifyKdcReply implements the shared cross-checks spec.md §4.8 names for
// both AS-REP and TGS-REP verification.
func verifyKdcReply(body messages.KDCReqBody, repCRealm types.Realm, repCName types.PrincipalName, enc messages.EncKdcRepPart, nonce int) error {
	if repCRealm != body.Realm {
		return ErrResponseModified
	}
	if !body.SName.Equal(enc.SName) || body.Realm != enc.SRealm {
		return ErrResponseModified
	}
	if enc.Nonce != nonce {
		return ErrResponseModified
	}
	if !types.HostAddressesEqual(body.Addresses, enc.CAddr) {
		return ErrResponseModified
	}
	reqFlags := body.Options()
	repFlags := types.TicketFlags{Flags: enc.Flags}
	if reqFlags.Forwardable() != repFlags.Forwardable() || reqFlags.Proxiable() != repFlags.Proxiable() || reqFlags.Renewable() != repFlags.Renewable() {
		return ErrResponseModified
	}
	if body.From.Zero() {
		skew := enc.StartTime.Sub(types.NewKerberosTime(time.Now()))
		if skew < 0 {
			skew = -skew
		}
		if skew >= 5*time.Minute {
			return ErrResponseModified
		}
	}
	if !body.Till.Zero() && enc.EndTime.After(body.Till) {
		return ErrResponseModified
	}
	if reqFlags.Renewable() && !body.RTime.Zero() && enc.RenewTill.After(body.RTime) {
		return ErrResponseModified
	}
	if reqFlags.RenewableOK() && !enc.RenewTill.Zero() && !body.Till.Zero() && enc.RenewTill.After(body.Till) {
		return ErrResponseModified
	}
	return nil
}

// PrepareTGSRequest builds a TGS-REQ for targetPrincipal using the stored
// TGT (tgt, tgtSessionKey), mirroring AS-REQ construction with a PA-TGS-REQ
// element carrying a fresh AP-REQ over the TGT (spec.md §4.8).
func (e *Environment) PrepareTGSRequest(tgt messages.Ticket, tgtSessionKey types.EncryptionKey, targetPrincipal types.PrincipalName, lifetime time.Duration, renewable bool) (messages.TGSReq, int, error) {
	nonce, err := randomNonce()
	if err != nil {
		return messages.TGSReq{}, 0, err
	}
	now := e.now()

	var opts []int
	if renewable {
		opts = append(opts, types.FlagRenewable)
	}

	body := messages.KDCReqBody{
		KDCOptions: types.NewFlags(opts...),
		Realm:      e.Realm,
		SName:      targetPrincipal,
		Till:       now.Add(lifetime),
		Nonce:      nonce,
		EType:      e.ETypes,
		Addresses:  e.Addresses,
	}
	bodyBytes, err := body.Marshal()
	if err != nil {
		return messages.TGSReq{}, 0, err
	}

	hash := crypto.HMACChecksum{Key: tgtSessionKey.KeyValue}
	cksum := types.Checksum{CksumType: hash.CksumType(), Checksum: hash.Digest(bodyBytes)}

	auth := messages.NewAuthenticator(e.Realm, e.CName, now, 0)
	auth.Cksum = cksum
	authBytes, err := auth.Marshal()
	if err != nil {
		return messages.TGSReq{}, 0, err
	}
	sealedAuth, err := crypto.Seal(e.Crypto, tgtSessionKey, authBytes)
	if err != nil {
		return messages.TGSReq{}, 0, err
	}

	apReq := messages.NewApReq(tgt, sealedAuth, false)
	apReqBytes, err := apReq.Marshal()
	if err != nil {
		return messages.TGSReq{}, 0, err
	}
	pa := types.PAData{PADataType: patype.PA_TGS_REQ, PADataValue: apReqBytes}

	return messages.NewTGSReq(body, types.PADataSequence{pa}), nonce, nil
}

// ReceiveTGSResponse decrypts rep's enc-part with the caller-supplied
// replyKey (for a request from PrepareTGSRequest, whose authenticator carries
// no subkey, that is the TGT session key), and applies the same cross-checks
// as ReceiveASResponse.
func (e *Environment) ReceiveTGSResponse(req messages.TGSReq, rep messages.TGSRep, nonce int, replyKey types.EncryptionKey) (messages.EncKdcRepPart, error) {
	plain, err := crypto.Open(e.Crypto, replyKey, rep.EncPart)
	if err != nil {
		return messages.EncKdcRepPart{}, errors.Wrap(err, "client: decrypting TGS-REP enc-part")
	}
	enc, err := messages.UnmarshalEncKdcRepPart(plain)
	if err != nil {
		return messages.EncKdcRepPart{}, errors.Wrap(err, "client: unmarshaling EncKdcRepPart")
	}
	if err := verifyKdcReply(req.ReqBody, rep.CRealm, rep.CName, enc, nonce); err != nil {
		return messages.EncKdcRepPart{}, err
	}
	return enc, nil
}

// PrepareAPRequest builds an AP-REQ presenting ticket/sessionKey to a
// service, optionally requesting mutual authentication (spec.md §4.8).
func (e *Environment) PrepareAPRequest(ticket messages.Ticket, sessionKey types.EncryptionKey, mutualRequired bool) (messages.ApReq, error) {
	now := e.now()
	auth := messages.NewAuthenticator(e.Realm, e.CName, now, 0)
	authBytes, err := auth.Marshal()
	if err != nil {
		return messages.ApReq{}, err
	}
	sealedAuth, err := crypto.Seal(e.Crypto, sessionKey, authBytes)
	if err != nil {
		return messages.ApReq{}, err
	}
	return messages.NewApReq(ticket, sealedAuth, mutualRequired), nil
}
