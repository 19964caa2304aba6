package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbgo/kerberos/crypto"
	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/types"
)

func newTestEncKdcRepPart(t *testing.T, cname types.PrincipalName, sname types.PrincipalName, authTime types.KerberosTime) messages.EncKdcRepPart {
	t.Helper()
	return messages.EncKdcRepPart{
		Key:      types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("sessionkeysessio")},
		Nonce:    1,
		Flags:    types.NewFlags(),
		AuthTime: authTime,
		EndTime:  types.NewKerberosTime(authTime.Add(time.Hour)),
		SRealm:   "EXAMPLE.COM",
		SName:    sname,
	}
}

func TestCacheDirSaveAndLoadASTicketRoundTrip(t *testing.T) {
	dir := NewCacheDir(t.TempDir())

	cname, err := types.NewPrincipalName(types.NTPrincipal, "alice")
	require.NoError(t, err)
	sname, err := types.NewPrincipalName(types.NTSrvInst, "krbtgt", "EXAMPLE.COM")
	require.NoError(t, err)

	authTime := types.NewKerberosTime(time.Unix(1700000000, 0))
	enc := newTestEncKdcRepPart(t, cname, sname, authTime)
	ticket := messages.NewTicket("EXAMPLE.COM", sname, types.EncryptedData{EType: crypto.EType1, Cipher: []byte("opaque-ticket")})
	rep := messages.NewASRep("EXAMPLE.COM", cname, ticket, types.EncryptedData{EType: crypto.EType1, Cipher: []byte("opaque-enc-part")})

	require.NoError(t, dir.SaveASTicket(rep, enc))

	timestamps, err := dir.ListTickets()
	require.NoError(t, err)
	require.Len(t, timestamps, 1)
	assert.Equal(t, authTime.Unix(), timestamps[0])

	loadedRep, loadedEnc, err := dir.LoadASTicket(timestamps[0])
	require.NoError(t, err)
	assert.Equal(t, cname, loadedRep.CName)
	assert.Equal(t, sname, loadedEnc.SName)
	assert.Equal(t, enc.Key, loadedEnc.Key)
}

func TestCacheDirSaveAndLoadTGSTicketRoundTrip(t *testing.T) {
	dir := NewCacheDir(t.TempDir())

	cname, err := types.NewPrincipalName(types.NTPrincipal, "alice")
	require.NoError(t, err)
	sname, err := types.NewPrincipalName(types.NTSrvInst, "host", "service.example.com")
	require.NoError(t, err)

	authTime := types.NewKerberosTime(time.Unix(1700001000, 0))
	enc := newTestEncKdcRepPart(t, cname, sname, authTime)
	ticket := messages.NewTicket("EXAMPLE.COM", sname, types.EncryptedData{EType: crypto.EType1, Cipher: []byte("opaque-ticket")})
	rep := messages.NewTGSRep("EXAMPLE.COM", cname, ticket, types.EncryptedData{EType: crypto.EType1, Cipher: []byte("opaque-enc-part")})

	subkey := &types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("subkeysubkeysubk")}
	seq := 42
	require.NoError(t, dir.SaveTGSTicket(rep, enc, subkey, &seq))

	loadedRep, loadedEnc, err := dir.LoadTGSTicket(authTime.Unix())
	require.NoError(t, err)
	assert.Equal(t, cname, loadedRep.CName)
	assert.Equal(t, sname, loadedEnc.SName)
}

func TestCacheDirSaveAndLoadKeyRoundTrip(t *testing.T) {
	dir := NewCacheDir(t.TempDir())
	key := types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("longtermlongterm")}

	require.NoError(t, dir.SaveKey(key))

	loaded, err := dir.LoadKey()
	require.NoError(t, err)
	assert.Equal(t, key, loaded)
}

func TestCacheDirListTicketsEmptyDirectory(t *testing.T) {
	dir := NewCacheDir(t.TempDir())
	require.NoError(t, dir.SaveKey(types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte("longtermlongterm")}))

	timestamps, err := dir.ListTickets()
	require.NoError(t, err)
	assert.Empty(t, timestamps)
}

func TestCacheDirLoadMissingTicketReturnsError(t *testing.T) {
	dir := NewCacheDir(t.TempDir())
	_, _, err := dir.LoadASTicket(1700000000)
	assert.Error(t, err)
}
