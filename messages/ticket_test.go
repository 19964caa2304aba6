package messages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbgo/kerberos/types"
)

func testCName(t *testing.T) types.PrincipalName {
	t.Helper()
	p, err := types.NewPrincipalName(types.NTPrincipal, "alice")
	require.NoError(t, err)
	return p
}

func testSName(t *testing.T) types.PrincipalName {
	t.Helper()
	p, err := types.NewPrincipalName(types.NTSrvInst, "host", "service.example.com")
	require.NoError(t, err)
	return p
}

func TestTicketRoundTrip(t *testing.T) {
	encPart := types.EncryptedData{EType: 1, Cipher: []byte("ciphertext")}
	tkt := NewTicket("EXAMPLE.COM", testSName(t), encPart)

	b, err := tkt.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalTicket(b)
	require.NoError(t, err)
	assert.Equal(t, tkt.TktVNO, got.TktVNO)
	assert.Equal(t, tkt.Realm, got.Realm)
	assert.True(t, tkt.SName.Equal(got.SName))
	assert.Equal(t, tkt.EncPart, got.EncPart)
}

func TestEncTicketPartRoundTrip(t *testing.T) {
	now := types.NewKerberosTime(time.Now())
	part, err := NewEncTicketPartBuilder().
		Flags(types.NewFlags(types.FlagForwardable, types.FlagRenewable)).
		Key(types.EncryptionKey{KeyType: 1, KeyValue: []byte("0123456789abcdef")}).
		CRealm("EXAMPLE.COM").
		CName(testCName(t)).
		Transited(TransitedEncoding{}).
		AuthTime(now).
		EndTime(now.Add(time.Hour)).
		Build()
	require.NoError(t, err)

	b, err := part.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEncTicketPart(b)
	require.NoError(t, err)
	assert.True(t, types.BitStringSet(got.Flags, types.FlagForwardable))
	assert.True(t, types.BitStringSet(got.Flags, types.FlagRenewable))
	assert.Equal(t, part.Key, got.Key)
	assert.Equal(t, part.CRealm, got.CRealm)
	assert.True(t, part.CName.Equal(got.CName))
	assert.True(t, part.AuthTime.Equal(got.AuthTime))
	assert.True(t, part.EndTime.Equal(got.EndTime))
}

func TestEncTicketPartBuilderRequiresMandatoryFields(t *testing.T) {
	_, err := NewEncTicketPartBuilder().CRealm("EXAMPLE.COM").Build()
	assert.Error(t, err)
}

func TestEncTicketPartBuilderRejectsEndTimeBeforeStart(t *testing.T) {
	now := types.NewKerberosTime(time.Now())
	_, err := NewEncTicketPartBuilder().
		Flags(types.NewFlags()).
		Key(types.EncryptionKey{KeyType: 1, KeyValue: []byte("0123456789abcdef")}).
		CRealm("EXAMPLE.COM").
		CName(testCName(t)).
		AuthTime(now).
		EndTime(now.Add(-time.Hour)).
		Build()
	assert.Error(t, err)
}
