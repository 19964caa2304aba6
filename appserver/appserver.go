// Package appserver implements the application-server side of RFC 4120
// §3.2.3: validating a KRB-AP-REQ against a service's own long-term key and
// emitting an optional KRB-AP-REP. Grounded on
// kerberos/src/application_authentication_service/mod.rs's 11-step handler.
package appserver

import (
	"time"

	"go.uber.org/zap"

	"github.com/kerbgo/kerberos/cache"
	"github.com/kerbgo/kerberos/crypto"
	"github.com/kerbgo/kerberos/iana/errorcode"
	"github.com/kerbgo/kerberos/iana/msgtype"
	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/types"
)

// Config wires the AP exchange to one service's identity, key and the
// shared replay/session/address caches (spec.md §4.4).
type Config struct {
	ServerKey           types.EncryptionKey
	ServerKVNO          *int
	Crypto              *crypto.Registry
	Replays             *cache.ApReplayCache
	Sessions            *cache.SessionStore
	Addresses           *cache.AddressStore
	AcceptEmptyAddrTkt  bool
	ClockSkew           time.Duration
	Clock               func() time.Time
	Log                 *zap.Logger
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

// Result is what Handle returns on success: an optional AP-REP (present
// only when mutual authentication was requested) plus the session entry
// that was just recorded.
type Result struct {
	APRep   *messages.ApRep
	Session cache.SessionEntry
}

// Handle runs the eleven steps of spec.md §4.7. apReqBytes is the exact
// wire encoding of req, used as the address-store lookup key (spec.md §4.9:
// "the server-side adapter must populate the client-address store with the
// sender's address before invoking the AP exchange").
func (h *Handler) Handle(req messages.ApReq, apReqBytes []byte) (Result, *messages.KRBError) {
	now := types.NewKerberosTime(h.cfg.Clock())

	// step 1: msg-type.
	if req.MsgType != msgtype.KRB_AP_REQ {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_MSG_TYPE)
	}

	// step 2: local service key must match the ticket's etype (and kvno).
	if req.Ticket.EncPart.EType != h.cfg.ServerKey.KeyType {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_NOKEY)
	}
	if req.Ticket.EncPart.KVNO != nil && h.cfg.ServerKVNO != nil && *req.Ticket.EncPart.KVNO != *h.cfg.ServerKVNO {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_BADKEYVER)
	}

	// step 3: decrypt the ticket.
	ticketPlain, err := crypto.Open(h.cfg.Crypto, h.cfg.ServerKey, req.Ticket.EncPart)
	if err != nil {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_BAD_INTEGRITY)
	}
	encTicketPart, err := messages.UnmarshalEncTicketPart(ticketPlain)
	if err != nil {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_BAD_INTEGRITY)
	}

	// step 4: decrypt the authenticator under the ticket's session key.
	authPlain, err := crypto.Open(h.cfg.Crypto, encTicketPart.Key, req.Authenticator)
	if err != nil {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_BAD_INTEGRITY)
	}
	authenticator, err := messages.UnmarshalAuthenticator(authPlain)
	if err != nil {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_BAD_INTEGRITY)
	}

	// step 5: crealm/cname must match.
	if authenticator.CRealm != encTicketPart.CRealm || !authenticator.CName.Equal(encTicketPart.CName) {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_BADMATCH)
	}

	// step 6: clock skew.
	skew := now.Sub(authenticator.Ctime)
	if skew < 0 {
		skew = -skew
	}
	if skew > h.cfg.ClockSkew {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_SKEW)
	}

	// step 7: replay probe only; recorded below once every later check passes.
	replayKey := cache.NewApReplayKey(authenticator.Ctime, authenticator.Cusec, authenticator.CName, authenticator.CRealm, req.Ticket.SName)
	if h.cfg.Replays.Contains(replayKey) {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_REPEAT)
	}

	// step 8: address policy.
	if !h.cfg.AcceptEmptyAddrTkt && len(encTicketPart.CAddr) > 0 {
		senderAddr, ok := h.cfg.Addresses.Get(cache.NewAddressKey(apReqBytes))
		if !ok || !encTicketPart.CAddr.Contains(senderAddr) {
			return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_BADADDR)
		}
	}

	// step 9: time validity.
	ticketFlags := types.TicketFlags{Flags: encTicketPart.Flags}
	ticketTime := encTicketPart.AuthTime
	if !encTicketPart.StartTime.Zero() {
		ticketTime = encTicketPart.StartTime
	}
	if ticketTime.Sub(now) > h.cfg.ClockSkew || ticketFlags.Invalid() {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_TKT_NYV)
	}
	if now.Sub(encTicketPart.EndTime) > h.cfg.ClockSkew {
		return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_AP_ERR_TKT_EXPIRED)
	}

	// steps 8 and 9 passed: this authenticator is now committed to the
	// replay cache so a concurrent or later duplicate is rejected.
	h.cfg.Replays.Store(replayKey)

	// step 10: optional mutual authentication.
	var apRep *messages.ApRep
	if types.BitStringSet(req.Options(), types.APOptionMutualRequired) {
		repPart := messages.EncApRepPart{Ctime: authenticator.Ctime, Cusec: authenticator.Cusec}
		repBytes, err := repPart.Marshal()
		if err != nil {
			h.cfg.Log.Error("marshaling EncApRepPart failed", zap.Error(err))
			return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_ERR_GENERIC)
		}
		sealed, err := crypto.Seal(h.cfg.Crypto, encTicketPart.Key, repBytes)
		if err != nil {
			h.cfg.Log.Error("sealing EncApRepPart failed", zap.Error(err))
			return Result{}, h.errorf(now, req.Ticket.Realm, req.Ticket.SName, errorcode.KRB_ERR_GENERIC)
		}
		sealed.KVNO = req.Ticket.EncPart.KVNO
		rep := messages.NewApRep(sealed)
		apRep = &rep
	}

	// step 11: record the session entry.
	seqNumber := authenticator.SeqNumber
	entry := cache.SessionEntry{
		CName:      authenticator.CName,
		CRealm:     authenticator.CRealm,
		SessionKey: encTicketPart.Key,
		SeqNumber:  seqNumber,
	}
	h.cfg.Sessions.Store(entry)

	return Result{APRep: apRep, Session: entry}, nil
}

func (h *Handler) errorf(now types.KerberosTime, realm types.Realm, sname types.PrincipalName, code int) *messages.KRBError {
	e := messages.NewKRBErrorBuilder(now, 0, realm, sname).ErrorCode(code).Build()
	return &e
}
