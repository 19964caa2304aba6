package messages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbgo/kerberos/types"
)

func TestEncApRepPartRoundTrip(t *testing.T) {
	ctime := types.NewKerberosTime(time.Now())
	seq := 7
	subkey := types.EncryptionKey{KeyType: 1, KeyValue: []byte("0123456789abcdef")}
	part := EncApRepPart{Ctime: ctime, Cusec: 55, Subkey: &subkey, SeqNumber: &seq}

	b, err := part.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEncApRepPart(b)
	require.NoError(t, err)
	assert.True(t, part.Ctime.Equal(got.Ctime))
	assert.Equal(t, part.Cusec, got.Cusec)
	require.NotNil(t, got.Subkey)
	assert.Equal(t, subkey, *got.Subkey)
	require.NotNil(t, got.SeqNumber)
	assert.Equal(t, seq, *got.SeqNumber)
}

func TestEncApRepPartRoundTripWithoutSubkey(t *testing.T) {
	part := EncApRepPart{Ctime: types.NewKerberosTime(time.Now()), Cusec: 1}

	b, err := part.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEncApRepPart(b)
	require.NoError(t, err)
	assert.Nil(t, got.Subkey)
	assert.Nil(t, got.SeqNumber)
}

func TestApRepRoundTrip(t *testing.T) {
	encPart := types.EncryptedData{EType: 1, Cipher: []byte("ciphertext")}
	rep := NewApRep(encPart)

	b, err := rep.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalApRep(b)
	require.NoError(t, err)
	assert.Equal(t, rep.PVNO, got.PVNO)
	assert.Equal(t, rep.MsgType, got.MsgType)
	assert.Equal(t, rep.EncPart, got.EncPart)
}

func TestUnmarshalApRepRejectsWrongMsgType(t *testing.T) {
	req := buildTestApReq(t)
	b, err := req.Marshal()
	require.NoError(t, err)

	_, err = UnmarshalApRep(b)
	assert.Error(t, err)
}
