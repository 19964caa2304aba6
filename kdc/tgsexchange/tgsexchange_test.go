package tgsexchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbgo/kerberos/cache"
	"github.com/kerbgo/kerberos/crypto"
	"github.com/kerbgo/kerberos/iana/errorcode"
	"github.com/kerbgo/kerberos/iana/patype"
	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/principaldb"
	"github.com/kerbgo/kerberos/types"
)

func newRegistry() *crypto.Registry {
	return crypto.NewRegistry([]crypto.Cryptography{crypto.AESGCM{}}, []crypto.CryptographicHash{crypto.HMACChecksum{Key: []byte("unused")}})
}

// buildTGT seals an EncTicketPart under tgsKey and returns both the ticket
// and its session key, mirroring how an AS-REP's ticket is constructed.
func buildTGT(t *testing.T, reg *crypto.Registry, tgsKey types.EncryptionKey, cname types.PrincipalName, sessionKey []byte, flags []int, endTime, renewTill types.KerberosTime) messages.Ticket {
	t.Helper()
	builder := messages.NewEncTicketPartBuilder().
		Flags(types.NewFlags(flags...)).
		Key(types.EncryptionKey{KeyType: crypto.EType1, KeyValue: sessionKey}).
		CRealm("EXAMPLE.COM").
		CName(cname).
		Transited(messages.TransitedEncoding{}).
		AuthTime(types.NewKerberosTime(time.Now().Add(-time.Hour))).
		EndTime(endTime)
	if !renewTill.Zero() {
		builder.RenewTill(renewTill)
	}
	encTicketPart, err := builder.Build()
	require.NoError(t, err)
	ticketBytes, err := encTicketPart.Marshal()
	require.NoError(t, err)
	sealed, err := crypto.Seal(reg, tgsKey, ticketBytes)
	require.NoError(t, err)
	tgsName, _ := types.NewPrincipalName(types.NTSrvInst, "krbtgt", "EXAMPLE.COM")
	return messages.NewTicket("EXAMPLE.COM", tgsName, sealed)
}

func buildTGSReq(t *testing.T, reg *crypto.Registry, tgt messages.Ticket, tgtSessionKey []byte, cname types.PrincipalName, sname types.PrincipalName, kdcOptions []int, nonce int) messages.TGSReq {
	t.Helper()
	body := messages.KDCReqBody{
		KDCOptions: types.NewFlags(kdcOptions...),
		Realm:      "EXAMPLE.COM",
		SName:      sname,
		Till:       types.NewKerberosTime(time.Now().Add(4 * time.Hour)),
		Nonce:      nonce,
		EType:      []int32{crypto.EType1},
	}
	bodyBytes, err := body.Marshal()
	require.NoError(t, err)

	hash := crypto.HMACChecksum{Key: tgtSessionKey}
	auth := messages.NewAuthenticator("EXAMPLE.COM", cname, types.NewKerberosTime(time.Now()), 0)
	auth.Cksum = types.Checksum{CksumType: hash.CksumType(), Checksum: hash.Digest(bodyBytes)}
	authBytes, err := auth.Marshal()
	require.NoError(t, err)
	sealedAuth, err := crypto.Seal(reg, types.EncryptionKey{KeyType: crypto.EType1, KeyValue: tgtSessionKey}, authBytes)
	require.NoError(t, err)

	apReq := messages.NewApReq(tgt, sealedAuth, false)
	apReqBytes, err := apReq.Marshal()
	require.NoError(t, err)
	pa := types.PAData{PADataType: patype.PA_TGS_REQ, PADataValue: apReqBytes}

	return messages.NewTGSReq(body, types.PADataSequence{pa})
}

func newTestHandler(tgsKey types.EncryptionKey, db *principaldb.MemoryDatabase, reg *crypto.Registry) *Handler {
	tgsName, _ := types.NewPrincipalName(types.NTSrvInst, "krbtgt", "EXAMPLE.COM")
	replays, _ := cache.NewReplayCache(8, time.Hour)
	return New(Config{
		Realm:      "EXAMPLE.COM",
		SName:      tgsName,
		TGSKey:     tgsKey,
		Principals: db,
		Crypto:     reg,
		Replays:    replays,
		ClockSkew:  5 * time.Minute,
	})
}

func TestHandleSuccess(t *testing.T) {
	reg := newRegistry()
	db := principaldb.NewMemoryDatabase()
	tgsKey := types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("tgskeytgskeytgsk")}

	cname, _ := types.NewPrincipalName(types.NTPrincipal, "alice")
	sname, _ := types.NewPrincipalName(types.NTSrvInst, "host", "service.example.com")
	db.Put(sname, "EXAMPLE.COM", principaldb.Record{
		Key: types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("servicekeyservic")}, KVNO: 1,
		MaxLifetime:              10 * time.Hour,
		SupportedEncryptionTypes: []int32{crypto.EType1},
	})

	sessionKey := []byte("ssssssssssssssss")
	tgt := buildTGT(t, reg, tgsKey, cname, sessionKey, nil, types.NewKerberosTime(time.Now().Add(9*time.Hour)), types.KerberosTime{})
	req := buildTGSReq(t, reg, tgt, sessionKey, cname, sname, nil, 777)

	h := newTestHandler(tgsKey, db, reg)
	rep, kerr := h.Handle(req)
	require.Nil(t, kerr)
	assert.Equal(t, cname, rep.CName)
	assert.Equal(t, 777, rep.DecryptedEncPart.Nonce)
	assert.Equal(t, sname, rep.Ticket.SName)
}

func TestHandleRenewNonRenewableTGT(t *testing.T) {
	reg := newRegistry()
	db := principaldb.NewMemoryDatabase()
	tgsKey := types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("tgskeytgskeytgsk")}

	cname, _ := types.NewPrincipalName(types.NTPrincipal, "alice")
	tgsName, _ := types.NewPrincipalName(types.NTSrvInst, "krbtgt", "EXAMPLE.COM")
	db.Put(tgsName, "EXAMPLE.COM", principaldb.Record{
		Key:                      tgsKey,
		SupportedEncryptionTypes: []int32{crypto.EType1},
	})

	sessionKey := []byte("ssssssssssssssss")
	// no FlagRenewable set on this TGT.
	tgt := buildTGT(t, reg, tgsKey, cname, sessionKey, nil, types.NewKerberosTime(time.Now().Add(9*time.Hour)), types.KerberosTime{})
	req := buildTGSReq(t, reg, tgt, sessionKey, cname, tgsName, []int{types.FlagRenew}, 42)

	h := newTestHandler(tgsKey, db, reg)
	_, kerr := h.Handle(req)
	require.NotNil(t, kerr)
	assert.Equal(t, errorcode.KDC_ERR_BADOPTION, kerr.ErrorCode)
}

func TestHandleValidateReplay(t *testing.T) {
	reg := newRegistry()
	db := principaldb.NewMemoryDatabase()
	tgsKey := types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("tgskeytgskeytgsk")}

	cname, _ := types.NewPrincipalName(types.NTPrincipal, "alice")
	tgsName, _ := types.NewPrincipalName(types.NTSrvInst, "krbtgt", "EXAMPLE.COM")
	db.Put(tgsName, "EXAMPLE.COM", principaldb.Record{
		Key:                      tgsKey,
		SupportedEncryptionTypes: []int32{crypto.EType1},
	})

	sessionKey := []byte("ssssssssssssssss")
	// FlagInvalid set, starttime absent (authtime an hour ago): a valid VALIDATE request.
	tgt := buildTGT(t, reg, tgsKey, cname, sessionKey, []int{types.FlagInvalid}, types.NewKerberosTime(time.Now().Add(9*time.Hour)), types.KerberosTime{})
	req := buildTGSReq(t, reg, tgt, sessionKey, cname, tgsName, []int{types.FlagValidate}, 99)

	h := newTestHandler(tgsKey, db, reg)

	_, kerr := h.Handle(req)
	require.Nil(t, kerr)

	_, kerr = h.Handle(req)
	require.NotNil(t, kerr)
	assert.Equal(t, errorcode.KRB_AP_ERR_REPEAT, kerr.ErrorCode)
}
