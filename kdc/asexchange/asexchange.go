// Package asexchange implements the Authentication Service side of RFC 4120
// §3.1: handling an AS-REQ and producing either an AS-REP carrying a fresh
// ticket-granting ticket or a KRB-ERROR. Grounded on
// kerberos/src/authentication_service/mod.rs's step-by-step handler and
// generalized to the teacher's linear validate-then-build handler shape.
package asexchange

import (
	"encoding/asn1"
	"time"

	"go.uber.org/zap"

	"github.com/kerbgo/kerberos/cache"
	"github.com/kerbgo/kerberos/crypto"
	"github.com/kerbgo/kerberos/iana/asnapptag"
	"github.com/kerbgo/kerberos/iana/errorcode"
	"github.com/kerbgo/kerberos/iana/patype"
	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/principaldb"
	"github.com/kerbgo/kerberos/types"
)

// Config wires the AS exchange to its shared infrastructure: the principal
// store, the crypto registry, the last-req cache and the realm/server
// identity this KDC instance answers as.
type Config struct {
	Realm          types.Realm
	SName          types.PrincipalName // this KDC's own identity on KRB-ERROR replies
	Principals     principaldb.Database
	Crypto         *crypto.Registry
	LastReq        *cache.LastReqStore
	RequirePreAuth bool
	ClockSkew      time.Duration
	Clock          func() time.Time
	Log            *zap.Logger
}

type Handler struct{ cfg Config }

func New(cfg Config) *Handler {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Handler{cfg: cfg}
}

// Handle runs the nine steps of spec.md §4.5 against req, returning exactly
// one of ASRep or a non-nil KRBError.
func (h *Handler) Handle(req messages.ASReq) (messages.ASRep, *messages.KRBError) {
	now := types.NewKerberosTime(h.cfg.Clock())
	body := req.ReqBody

	// step 1: look up client and server principals.
	client, ok := h.cfg.Principals.GetPrincipal(body.CName, body.Realm)
	if !ok {
		return messages.ASRep{}, h.errorf(now, errorcode.KDC_ERR_C_PRINCIPAL_UNKNOWN, "")
	}
	server, ok := h.cfg.Principals.GetPrincipal(body.SName, body.Realm)
	if !ok {
		return messages.ASRep{}, h.errorf(now, errorcode.KDC_ERR_S_PRINCIPAL_UNKNOWN, "")
	}

	// step 2: pre-authentication.
	if h.cfg.RequirePreAuth {
		if err := h.verifyPreAuth(req.PAData, client, now); err != nil {
			return messages.ASRep{}, err
		}
	}

	// step 3: etype selection.
	cipher, ok := h.cfg.Crypto.SelectEType(body.EType, client.SupportedEncryptionTypes)
	if !ok {
		return messages.ASRep{}, h.errorf(now, errorcode.KDC_ERR_ETYPE_NOSUPP, "")
	}

	// step 4: fresh session key.
	sessionKey, err := cipher.GenerateKey()
	if err != nil {
		h.cfg.Log.Error("session key generation failed", zap.Error(err))
		return messages.ASRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}

	options := body.Options()

	// step 5: flags and timing.
	flagsBuilder := types.NewTicketFlagsBuilder()
	if options.Forwardable() {
		flagsBuilder.Set(types.FlagForwardable)
	}
	if options.Proxiable() {
		flagsBuilder.Set(types.FlagProxiable)
	}

	startTime := now
	if options.Postdated() && options.AllowPostdate() && !body.From.Zero() {
		startTime = body.From
		flagsBuilder.Set(types.FlagInvalid)
		flagsBuilder.Set(types.FlagPostdated)
	}

	endTime := minTime(body.Till, now.Add(client.MaxLifetime), now.Add(server.MaxLifetime))

	var renewTill types.KerberosTime
	if options.Renewable() {
		flagsBuilder.Set(types.FlagRenewable)
		renewTill = minTime(body.RTime, now.Add(client.MaxRenewableLife), now.Add(server.MaxRenewableLife))
	}

	ticketFlags := flagsBuilder.Build()

	encTicketBuilder := messages.NewEncTicketPartBuilder().
		Flags(ticketFlags.Flags).
		Key(types.EncryptionKey{KeyType: cipher.EType(), KeyValue: sessionKey}).
		CRealm(body.Realm).
		CName(body.CName).
		Transited(messages.TransitedEncoding{TrType: 0, Contents: nil}).
		AuthTime(now).
		EndTime(endTime)
	if options.Postdated() {
		encTicketBuilder.StartTime(startTime)
	}
	if options.Renewable() {
		encTicketBuilder.RenewTill(renewTill)
	}
	if len(body.Addresses) > 0 {
		encTicketBuilder.CAddr(body.Addresses)
	}
	encTicketPart, err := encTicketBuilder.Build()
	if err != nil {
		h.cfg.Log.Error("building EncTicketPart failed", zap.Error(err))
		return messages.ASRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}

	// step 6: seal the ticket under the server's long-term key.
	encTicketBytes, err := encTicketPart.Marshal()
	if err != nil {
		h.cfg.Log.Error("marshaling EncTicketPart failed", zap.Error(err))
		return messages.ASRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}
	sealedTicket, err := crypto.Seal(h.cfg.Crypto, server.Key, encTicketBytes)
	if err != nil {
		h.cfg.Log.Error("sealing ticket failed", zap.Error(err))
		return messages.ASRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}
	sealedTicket.KVNO = &server.KVNO
	ticket := messages.NewTicket(body.Realm, body.SName, sealedTicket)

	// step 7: EncKdcRepPart mirroring the ticket.
	lastReqKey := cache.NewPrincipalKey(body.Realm, body.CName)
	encRepBuilder := messages.NewEncKdcRepPartBuilder().
		Key(types.EncryptionKey{KeyType: cipher.EType(), KeyValue: sessionKey}).
		LastReqs(h.cfg.LastReq.Get(lastReqKey)).
		Nonce(body.Nonce).
		Flags(ticketFlags.Flags).
		AuthTime(now).
		EndTime(endTime).
		SRealm(body.Realm).
		SName(body.SName)
	if options.Postdated() {
		encRepBuilder.StartTime(startTime)
	}
	if options.Renewable() {
		encRepBuilder.RenewTill(renewTill)
	}
	encRepPart, err := encRepBuilder.Build()
	if err != nil {
		h.cfg.Log.Error("building EncKdcRepPart failed", zap.Error(err))
		return messages.ASRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}

	// step 8: seal EncKdcRepPart under the client's long-term key.
	encRepBytes, err := encRepPart.MarshalAs(asnapptag.EncASRepPart)
	if err != nil {
		h.cfg.Log.Error("marshaling EncKdcRepPart failed", zap.Error(err))
		return messages.ASRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}
	encPartSealed, err := crypto.Seal(h.cfg.Crypto, client.Key, encRepBytes)
	if err != nil {
		h.cfg.Log.Error("sealing EncKdcRepPart failed", zap.Error(err))
		return messages.ASRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}
	encPartSealed.KVNO = &client.KVNO

	rep := messages.NewASRep(body.Realm, body.CName, ticket, encPartSealed)
	rep.DecryptedEncPart = encRepPart

	// step 9: update last-req history for this principal.
	h.cfg.LastReq.RecordInitial(lastReqKey, now)

	return rep, nil
}

func (h *Handler) verifyPreAuth(pa types.PADataSequence, client principaldb.Record, now types.KerberosTime) *messages.KRBError {
	entry, ok := pa.Find(patype.PA_ENC_TIMESTAMP)
	if !ok {
		return h.errorf(now, errorcode.KDC_ERR_PREAUTH_REQUIRED, "")
	}
	var encData types.EncryptedData
	if _, err := asn1.Unmarshal(entry.PADataValue, &encData); err != nil {
		return h.errorf(now, errorcode.KDC_ERR_PREAUTH_FAILED, "")
	}
	cipher, ok := h.cfg.Crypto.ForEType(encData.EType)
	if !ok {
		return h.errorf(now, errorcode.KDC_ERR_ETYPE_NOSUPP, "")
	}
	plain, err := cipher.Decrypt(encData.Cipher, client.Key.KeyValue)
	if err != nil {
		return h.errorf(now, errorcode.KDC_ERR_PREAUTH_FAILED, "")
	}
	var ts types.PAEncTSEnc
	if _, err := asn1.Unmarshal(plain, &ts); err != nil {
		return h.errorf(now, errorcode.KDC_ERR_PREAUTH_FAILED, "")
	}
	skew := now.Sub(types.NewKerberosTime(ts.PATimestamp))
	if skew < 0 {
		skew = -skew
	}
	if skew > h.cfg.ClockSkew {
		return h.errorf(now, errorcode.KDC_ERR_PREAUTH_FAILED, "")
	}
	return nil
}

func (h *Handler) errorf(now types.KerberosTime, code int, text string) *messages.KRBError {
	e := messages.NewKRBErrorBuilder(now, 0, h.cfg.Realm, h.cfg.SName).ErrorCode(code).EText(text).Build()
	return &e
}

func minTime(candidates ...types.KerberosTime) types.KerberosTime {
	var result types.KerberosTime
	for _, c := range candidates {
		if c.Zero() {
			continue
		}
		if result.Zero() || c.Before(result) {
			result = c
		}
	}
	return result
}
