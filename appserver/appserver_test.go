package appserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbgo/kerberos/cache"
	"github.com/kerbgo/kerberos/crypto"
	"github.com/kerbgo/kerberos/iana/errorcode"
	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/types"
)

func newRegistry() *crypto.Registry {
	return crypto.NewRegistry([]crypto.Cryptography{crypto.AESGCM{}}, nil)
}

func buildApReq(t *testing.T, reg *crypto.Registry, serverKey types.EncryptionKey, ctime types.KerberosTime, sessionKey []byte) messages.ApReq {
	return buildApReqWithCAddr(t, reg, serverKey, ctime, sessionKey, nil)
}

func buildApReqWithCAddr(t *testing.T, reg *crypto.Registry, serverKey types.EncryptionKey, ctime types.KerberosTime, sessionKey []byte, caddr types.HostAddresses) messages.ApReq {
	return buildApReqWithTicketEndTime(t, reg, serverKey, ctime, sessionKey, caddr, types.NewKerberosTime(time.Now().Add(time.Hour)))
}

func buildApReqWithTicketEndTime(t *testing.T, reg *crypto.Registry, serverKey types.EncryptionKey, ctime types.KerberosTime, sessionKey []byte, caddr types.HostAddresses, endTime types.KerberosTime) messages.ApReq {
	t.Helper()
	cname, err := types.NewPrincipalName(types.NTPrincipal, "client")
	require.NoError(t, err)
	sname, err := types.NewPrincipalName(types.NTSrvInst, "service")
	require.NoError(t, err)

	encTicketPart, err := messages.NewEncTicketPartBuilder().
		Flags(types.NewFlags()).
		Key(types.EncryptionKey{KeyType: crypto.EType1, KeyValue: sessionKey}).
		CRealm("EXAMPLE.COM").
		CName(cname).
		Transited(messages.TransitedEncoding{}).
		AuthTime(types.NewKerberosTime(time.Now().Add(-time.Minute))).
		EndTime(endTime).
		CAddr(caddr).
		Build()
	require.NoError(t, err)

	ticketBytes, err := encTicketPart.Marshal()
	require.NoError(t, err)
	sealedTicket, err := crypto.Seal(reg, serverKey, ticketBytes)
	require.NoError(t, err)
	ticket := messages.NewTicket("EXAMPLE.COM", sname, sealedTicket)

	auth := messages.NewAuthenticator("EXAMPLE.COM", cname, ctime, 0)
	authBytes, err := auth.Marshal()
	require.NoError(t, err)
	sealedAuth, err := crypto.Seal(reg, types.EncryptionKey{KeyType: crypto.EType1, KeyValue: sessionKey}, authBytes)
	require.NoError(t, err)

	return messages.NewApReq(ticket, sealedAuth, false)
}

func newHandler(reg *crypto.Registry, serverKey types.EncryptionKey, skew time.Duration) *Handler {
	replays, _ := cache.NewApReplayCache(8, time.Hour)
	sessions, _ := cache.NewSessionStore(8, time.Hour)
	addrs, _ := cache.NewAddressStore(8, time.Hour)
	return New(Config{
		ServerKey:          serverKey,
		Crypto:             reg,
		Replays:            replays,
		Sessions:           sessions,
		Addresses:          addrs,
		AcceptEmptyAddrTkt: true,
		ClockSkew:          skew,
	})
}

func TestHandleSuccess(t *testing.T) {
	reg := newRegistry()
	serverKey := types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("0123456789abcdef")}
	sessionKey := []byte("ssssssssssssssss")
	h := newHandler(reg, serverKey, 5*time.Minute)

	req := buildApReq(t, reg, serverKey, types.NewKerberosTime(time.Now()), sessionKey)
	reqBytes, err := req.Marshal()
	require.NoError(t, err)

	result, kerr := h.Handle(req, reqBytes)
	require.Nil(t, kerr)
	assert.Nil(t, result.APRep)
}

func TestHandleReplay(t *testing.T) {
	reg := newRegistry()
	serverKey := types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("0123456789abcdef")}
	sessionKey := []byte("ssssssssssssssss")
	h := newHandler(reg, serverKey, 5*time.Minute)

	ctime := types.NewKerberosTime(time.Now())
	req := buildApReq(t, reg, serverKey, ctime, sessionKey)
	reqBytes, err := req.Marshal()
	require.NoError(t, err)

	_, kerr := h.Handle(req, reqBytes)
	require.Nil(t, kerr)

	_, kerr = h.Handle(req, reqBytes)
	require.NotNil(t, kerr)
	assert.Equal(t, errorcode.KRB_AP_ERR_REPEAT, kerr.ErrorCode)
}

// TestHandleAcceptsTicketNearingExpiryWithinSkew guards against rejecting a
// ticket that is still genuinely valid: only a ticket already past its
// endtime by more than the clock-skew tolerance is expired, not one merely
// within one skew window of its endtime.
func TestHandleAcceptsTicketNearingExpiryWithinSkew(t *testing.T) {
	reg := newRegistry()
	serverKey := types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("0123456789abcdef")}
	sessionKey := []byte("ssssssssssssssss")
	h := newHandler(reg, serverKey, 5*time.Minute)

	ctime := types.NewKerberosTime(time.Now())
	nearExpiry := types.NewKerberosTime(time.Now().Add(4 * time.Minute))
	req := buildApReqWithTicketEndTime(t, reg, serverKey, ctime, sessionKey, nil, nearExpiry)
	reqBytes, err := req.Marshal()
	require.NoError(t, err)

	_, kerr := h.Handle(req, reqBytes)
	assert.Nil(t, kerr, "a ticket with time left before its endtime must not be rejected as expired")
}

func TestHandleRejectsTicketPastEndTimeBeyondSkew(t *testing.T) {
	reg := newRegistry()
	serverKey := types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("0123456789abcdef")}
	sessionKey := []byte("ssssssssssssssss")
	h := newHandler(reg, serverKey, 5*time.Minute)

	ctime := types.NewKerberosTime(time.Now())
	expired := types.NewKerberosTime(time.Now().Add(-10 * time.Minute))
	req := buildApReqWithTicketEndTime(t, reg, serverKey, ctime, sessionKey, nil, expired)
	reqBytes, err := req.Marshal()
	require.NoError(t, err)

	_, kerr := h.Handle(req, reqBytes)
	require.NotNil(t, kerr)
	assert.Equal(t, errorcode.KRB_AP_ERR_TKT_EXPIRED, kerr.ErrorCode)
}

func TestHandleSkew(t *testing.T) {
	reg := newRegistry()
	serverKey := types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("0123456789abcdef")}
	sessionKey := []byte("ssssssssssssssss")
	h := newHandler(reg, serverKey, 300*time.Second)

	skewed := types.NewKerberosTime(time.Now().Add(6000 * time.Second))
	req := buildApReq(t, reg, serverKey, skewed, sessionKey)
	reqBytes, err := req.Marshal()
	require.NoError(t, err)

	_, kerr := h.Handle(req, reqBytes)
	require.NotNil(t, kerr)
	assert.Equal(t, errorcode.KRB_AP_ERR_SKEW, kerr.ErrorCode)
}

// TestHandleBadAddressDoesNotPoisonReplayCache exercises spec.md §4.7.7:
// the replay cache is only checked at step 7, not recorded until steps 8
// and 9 also pass. A request rejected on address policy must not cause an
// identical, address-corrected retry to be rejected as a replay.
func TestHandleBadAddressDoesNotPoisonReplayCache(t *testing.T) {
	reg := newRegistry()
	serverKey := types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("0123456789abcdef")}
	sessionKey := []byte("ssssssssssssssss")

	replays, _ := cache.NewApReplayCache(8, time.Hour)
	sessions, _ := cache.NewSessionStore(8, time.Hour)
	addrs, _ := cache.NewAddressStore(8, time.Hour)
	h := New(Config{
		ServerKey:          serverKey,
		Crypto:             reg,
		Replays:            replays,
		Sessions:           sessions,
		Addresses:          addrs,
		AcceptEmptyAddrTkt: false,
		ClockSkew:          5 * time.Minute,
	})

	ctime := types.NewKerberosTime(time.Now())
	allowed := types.HostAddresses{{AddrType: types.AddrTypeIPv4, Address: []byte{10, 0, 0, 1}}}
	req := buildApReqWithCAddr(t, reg, serverKey, ctime, sessionKey, allowed)
	reqBytes, err := req.Marshal()
	require.NoError(t, err)

	_, kerr := h.Handle(req, reqBytes)
	require.NotNil(t, kerr)
	assert.Equal(t, errorcode.KRB_AP_ERR_BADADDR, kerr.ErrorCode)

	addrs.Store(cache.NewAddressKey(reqBytes), allowed[0])

	_, kerr = h.Handle(req, reqBytes)
	assert.Nil(t, kerr, "address-corrected retry of the same authenticator must not be rejected as a replay")
}
