// Package tgsexchange implements the Ticket-Granting Service side of RFC
// 4120 §3.3: handling a TGS-REQ (an AP-REQ over a TGT, plus a request for a
// new service ticket) and producing either a TGS-REP or a KRB-ERROR.
// Grounded on kerberos/src/ticket_granting_service/mod.rs's 13-step handler;
// the flag-propagation and lifetime arithmetic below follows that module's
// match-per-kdc-option structure rather than its (incomplete, `todo!()`-
// marked) renew/validate branches.
package tgsexchange

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

type Config struct {
	Realm      types.Realm
	SName      types.PrincipalName // this KDC's own identity on KRB-ERROR replies
	TGSKey     types.EncryptionKey // this TGS's own long-term key, used to open TGTs
	Principals principaldb.Database
	Crypto     *crypto.Registry
	// Replays catches a second VALIDATE of the same TGT (spec.md §4.6 step
	// 8's VALIDATE bullet: "replay detected -> KRB-AP-ERR-REPEAT").
	Replays   *cache.ReplayCache
	ClockSkew time.Duration
	Clock     func() time.Time
	Log       *zap.Logger
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

// Handle runs the thirteen steps of spec.md §4.6.
func (h *Handler) Handle(req messages.TGSReq) (messages.TGSRep, *messages.KRBError) {
	now := types.NewKerberosTime(h.cfg.Clock())
	body := req.ReqBody

	// step 1: extract PA-TGS-REQ and decode its value as an AP-REQ.
	pa, ok := req.PAData.Find(patype.PA_TGS_REQ)
	if !ok {
		return messages.TGSRep{}, h.errorf(now, errorcode.KDC_ERR_PADATA_TYPE_NOSUPP, "")
	}
	apReq, err := messages.UnmarshalApReq(pa.PADataValue)
	if err != nil {
		return messages.TGSRep{}, h.errorf(now, errorcode.KDC_ERR_PADATA_TYPE_NOSUPP, "")
	}
	tgt := apReq.Ticket

	// step 2: the TGT's sname must name this TGS.
	if !tgt.SName.Equal(h.cfg.SName) {
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_AP_ERR_NOT_US, "")
	}

	// step 3: decrypt the TGT under this TGS's own long-term key.
	tgtPlain, err := crypto.Open(h.cfg.Crypto, h.cfg.TGSKey, tgt.EncPart)
	if err != nil {
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_AP_ERR_BAD_INTEGRITY, "")
	}
	encTicketPart, err := messages.UnmarshalEncTicketPart(tgtPlain)
	if err != nil {
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_AP_ERR_BAD_INTEGRITY, "")
	}

	// step 4: decrypt the authenticator under the TGT's session key.
	authPlain, err := crypto.Open(h.cfg.Crypto, encTicketPart.Key, apReq.Authenticator)
	if err != nil {
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_AP_ERR_BAD_INTEGRITY, "")
	}
	authenticator, err := messages.UnmarshalAuthenticator(authPlain)
	if err != nil {
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_AP_ERR_BAD_INTEGRITY, "")
	}

	// step 5: authenticator and ticket must name the same client.
	if !authenticator.CName.Equal(encTicketPart.CName) || authenticator.CRealm != encTicketPart.CRealm {
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_AP_ERR_BADMATCH, "")
	}

	// step 6: verify the authenticator's checksum covers the request body.
	if kerr := h.verifyBodyChecksum(authenticator, encTicketPart.Key, body, now); kerr != nil {
		return messages.TGSRep{}, kerr
	}

	// step 7: look up the requested server.
	server, ok := h.cfg.Principals.GetPrincipal(body.SName, body.Realm)
	if !ok {
		return messages.TGSRep{}, h.errorf(now, errorcode.KDC_ERR_S_PRINCIPAL_UNKNOWN, "")
	}

	tgtFlags := types.TicketFlags{Flags: encTicketPart.Flags}
	options := body.Options()

	newFlagsBuilder := types.NewTicketFlagsBuilder()
	var startTime, endTime, renewTill types.KerberosTime
	caddr := encTicketPart.CAddr

	switch {
	case options.Renew():
		// step 8, RENEW: TGT must be renewable and not past its renew limit.
		if !tgtFlags.Renewable() {
			return messages.TGSRep{}, h.errorf(now, errorcode.KDC_ERR_BADOPTION, "")
		}
		if !encTicketPart.RenewTill.Zero() && !now.Before(encTicketPart.RenewTill) {
			return messages.TGSRep{}, h.errorf(now, errorcode.KRB_AP_ERR_TKT_EXPIRED, "")
		}
		startTime = now
		originalSpan := encTicketPart.EndTime.Sub(firstOf(encTicketPart.StartTime, encTicketPart.AuthTime))
		endTime = minTime(now.Add(originalSpan), encTicketPart.RenewTill)
		copyFlags(newFlagsBuilder, tgtFlags)
		renewTill = encTicketPart.RenewTill

	case options.Validate():
		// step 8, VALIDATE: TGT must currently be INVALID and its starttime
		// must already have arrived; a second VALIDATE of the same ticket is
		// rejected as a replay.
		if !tgtFlags.Invalid() {
			return messages.TGSRep{}, h.errorf(now, errorcode.KDC_ERR_BADOPTION, "")
		}
		if !encTicketPart.StartTime.Zero() && now.Before(encTicketPart.StartTime) {
			return messages.TGSRep{}, h.errorf(now, errorcode.KRB_AP_ERR_TKT_NYV, "")
		}
		replayKey := cache.NewReplayKey(authenticator.Ctime, authenticator.Cusec, authenticator.CName, authenticator.CRealm)
		if h.cfg.Replays.Seen(replayKey) {
			return messages.TGSRep{}, h.errorf(now, errorcode.KRB_AP_ERR_REPEAT, "")
		}
		startTime = encTicketPart.StartTime
		endTime = encTicketPart.EndTime
		renewTill = encTicketPart.RenewTill
		// the new ticket clears INVALID.
		newFlagsBuilder = clearFlag(tgtFlags, types.FlagInvalid)

	default:
		// step 8: FORWARDABLE/FORWARDED/PROXIABLE/PROXY.
		if options.Forwarded() {
			if !tgtFlags.Forwardable() {
				return messages.TGSRep{}, h.errorf(now, errorcode.KDC_ERR_BADOPTION, "")
			}
			newFlagsBuilder.Set(types.FlagForwarded)
			caddr = body.Addresses
		}
		if options.Forwardable() {
			if !tgtFlags.Forwardable() {
				return messages.TGSRep{}, h.errorf(now, errorcode.KDC_ERR_BADOPTION, "")
			}
			newFlagsBuilder.Set(types.FlagForwardable)
		}
		if options.Proxy() {
			if !tgtFlags.Proxiable() {
				return messages.TGSRep{}, h.errorf(now, errorcode.KDC_ERR_BADOPTION, "")
			}
			newFlagsBuilder.Set(types.FlagProxy)
			caddr = body.Addresses
		}
		if options.Proxiable() {
			if !tgtFlags.Proxiable() {
				return messages.TGSRep{}, h.errorf(now, errorcode.KDC_ERR_BADOPTION, "")
			}
			newFlagsBuilder.Set(types.FlagProxiable)
		}

		// step 9: normal issue.
		startTime = now
		endTime = minTimeOrInfinite(body.Till, encTicketPart.EndTime, now.Add(server.MaxLifetime))
		if options.RenewableOK() && endTime.Before(body.Till) && tgtFlags.Renewable() {
			newFlagsBuilder.Set(types.FlagRenewable)
			renewTill = minTime(body.Till, encTicketPart.RenewTill)
		}
	}

	newFlags := newFlagsBuilder.Build()

	// step 10: negotiate a fresh session key etype.
	cipher, ok := h.cfg.Crypto.SelectEType(body.EType, server.SupportedEncryptionTypes)
	if !ok {
		return messages.TGSRep{}, h.errorf(now, errorcode.KDC_ERR_ETYPE_NOSUPP, "")
	}
	sessionKey, err := cipher.GenerateKey()
	if err != nil {
		h.cfg.Log.Error("session key generation failed", zap.Error(err))
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}

	// step 11: fold in enc-authorization-data, if the request carries any.
	authzData := authenticator.AuthorizationData
	if len(body.EncAuthData.Cipher) > 0 {
		if !authenticator.HasSubkey() {
			h.cfg.Log.Error("enc-authorization-data present without authenticator subkey")
			return messages.TGSRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
		}
		plain, err := crypto.Open(h.cfg.Crypto, authenticator.Subkey, body.EncAuthData)
		if err != nil {
			return messages.TGSRep{}, h.errorf(now, errorcode.KRB_AP_ERR_BAD_INTEGRITY, "")
		}
		var extra messages.AuthorizationData
		if _, err := asn1.Unmarshal(plain, &extra); err != nil {
			return messages.TGSRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
		}
		authzData = append(append(messages.AuthorizationData{}, authzData...), extra...)
	}

	// step 12: seal the new ticket under the target server's long-term key.
	encTicketBuilder := messages.NewEncTicketPartBuilder().
		Flags(newFlags.Flags).
		Key(types.EncryptionKey{KeyType: cipher.EType(), KeyValue: sessionKey}).
		CRealm(encTicketPart.CRealm).
		CName(encTicketPart.CName).
		Transited(encTicketPart.Transited).
		AuthTime(encTicketPart.AuthTime).
		EndTime(endTime).
		AuthorizationData(authzData)
	if !startTime.Zero() {
		encTicketBuilder.StartTime(startTime)
	}
	if !renewTill.Zero() {
		encTicketBuilder.RenewTill(renewTill)
	}
	if len(caddr) > 0 {
		encTicketBuilder.CAddr(caddr)
	}
	newEncTicketPart, err := encTicketBuilder.Build()
	if err != nil {
		h.cfg.Log.Error("building new EncTicketPart failed", zap.Error(err))
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}
	newTicketBytes, err := newEncTicketPart.Marshal()
	if err != nil {
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}
	sealedTicket, err := crypto.Seal(h.cfg.Crypto, server.Key, newTicketBytes)
	if err != nil {
		h.cfg.Log.Error("sealing new ticket failed", zap.Error(err))
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}
	sealedTicket.KVNO = &server.KVNO
	newTicket := messages.NewTicket(body.Realm, body.SName, sealedTicket)

	// step 13: build and seal EncKdcRepPart, under the subkey if one was
	// negotiated for this AP-REQ, else under the TGT session key.
	encRepBuilder := messages.NewEncKdcRepPartBuilder().
		Key(types.EncryptionKey{KeyType: cipher.EType(), KeyValue: sessionKey}).
		LastReqs(nil).
		Nonce(body.Nonce).
		Flags(newFlags.Flags).
		AuthTime(encTicketPart.AuthTime).
		EndTime(endTime).
		SRealm(body.Realm).
		SName(body.SName)
	if !startTime.Zero() {
		encRepBuilder.StartTime(startTime)
	}
	if !renewTill.Zero() {
		encRepBuilder.RenewTill(renewTill)
	}
	encRepPart, err := encRepBuilder.Build()
	if err != nil {
		h.cfg.Log.Error("building new EncKdcRepPart failed", zap.Error(err))
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}
	encRepBytes, err := encRepPart.MarshalAs(asnapptag.EncTGSRepPart)
	if err != nil {
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}
	replyKey := encTicketPart.Key
	if authenticator.HasSubkey() {
		replyKey = authenticator.Subkey
	}
	sealedEncRep, err := crypto.Seal(h.cfg.Crypto, replyKey, encRepBytes)
	if err != nil {
		h.cfg.Log.Error("sealing new EncKdcRepPart failed", zap.Error(err))
		return messages.TGSRep{}, h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}

	rep := messages.NewTGSRep(encTicketPart.CRealm, encTicketPart.CName, newTicket, sealedEncRep)
	rep.DecryptedEncPart = encRepPart
	return rep, nil
}

// verifyBodyChecksum checks that a.Cksum is a keyed checksum of a known
// cksumtype, then recomputes it under the TGT session key tgtKey (the only
// key both the client and this TGS share for this request) and compares in
// constant time.
func (h *Handler) verifyBodyChecksum(a messages.Authenticator, tgtKey types.EncryptionKey, body messages.KDCReqBody, now types.KerberosTime) *messages.KRBError {
	if !a.HasCksum() {
		return h.errorf(now, errorcode.KRB_AP_ERR_INAPP_CKSUM, "")
	}
	hash, ok := h.cfg.Crypto.ForCksumType(a.Cksum.CksumType)
	if !ok {
		return h.errorf(now, errorcode.KDC_ERR_SUMTYPE_NOSUPP, "")
	}
	if !hash.Keyed() {
		return h.errorf(now, errorcode.KRB_AP_ERR_INAPP_CKSUM, "")
	}
	bodyBytes, err := body.Marshal()
	if err != nil {
		return h.errorf(now, errorcode.KRB_ERR_GENERIC, "")
	}
	if !crypto.VerifyChecksum(tgtKey.KeyValue, bodyBytes, a.Cksum.Checksum) {
		return h.errorf(now, errorcode.KRB_AP_ERR_MODIFIED, "")
	}
	return nil
}

func (h *Handler) errorf(now types.KerberosTime, code int, text string) *messages.KRBError {
	e := messages.NewKRBErrorBuilder(now, 0, h.cfg.Realm, h.cfg.SName).ErrorCode(code).EText(text).Build()
	return &e
}

func firstOf(start, auth types.KerberosTime) types.KerberosTime {
	if start.Zero() {
		return auth
	}
	return start
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

// minTimeOrInfinite mirrors minTime but treats a zero req.till as "no limit"
// rather than as absent, matching spec.md §4.6 step 9's "min(req.till | inf, ...)".
func minTimeOrInfinite(till types.KerberosTime, rest ...types.KerberosTime) types.KerberosTime {
	if till.Zero() {
		return minTime(rest...)
	}
	return minTime(append([]types.KerberosTime{till}, rest...)...)
}

func copyFlags(b *types.TicketFlagsBuilder, from types.TicketFlags) {
	for p := 0; p < 14; p++ {
		if from.IsSet(p) {
			b.Set(p)
		}
	}
}

func clearFlag(from types.TicketFlags, drop int) *types.TicketFlagsBuilder {
	rebuilt := types.NewTicketFlagsBuilder()
	for p := 0; p < 14; p++ {
		if p != drop && from.IsSet(p) {
			rebuilt.Set(p)
		}
	}
	return rebuilt
}

