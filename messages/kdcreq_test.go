package messages

import (
	"encoding/asn1"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbgo/kerberos/types"
)

func testReqBody(t *testing.T) KDCReqBody {
	t.Helper()
	return KDCReqBody{
		KDCOptions: types.NewFlags(types.FlagForwardable),
		CName:      testCName(t),
		Realm:      "EXAMPLE.COM",
		SName:      testSName(t),
		Till:       types.NewKerberosTime(time.Now().Add(4 * time.Hour)),
		Nonce:      12345,
		EType:      []types.Int32{1},
	}
}

func TestKDCReqBodyRoundTrip(t *testing.T) {
	body := testReqBody(t)
	b, err := body.Marshal()
	require.NoError(t, err)

	var got KDCReqBody
	_, err = asn1.Unmarshal(b, &got)
	require.NoError(t, err)

	assert.True(t, got.Options().Forwardable())
	assert.Equal(t, body.Realm, got.Realm)
	assert.True(t, body.SName.Equal(got.SName))
	assert.Equal(t, body.Nonce, got.Nonce)
	assert.Equal(t, body.EType, got.EType)
}

func TestASReqRoundTrip(t *testing.T) {
	body := testReqBody(t)
	pa := types.PADataSequence{{PADataType: 2, PADataValue: []byte("pa-value")}}
	req := NewASReq(body, pa)

	b, err := req.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalASReq(b)
	require.NoError(t, err)
	assert.Equal(t, req.PVNO, got.PVNO)
	assert.Equal(t, req.MsgType, got.MsgType)
	assert.Equal(t, req.PAData, got.PAData)
	assert.Equal(t, req.ReqBody.Realm, got.ReqBody.Realm)
	assert.Equal(t, req.ReqBody.Nonce, got.ReqBody.Nonce)
}

func TestTGSReqRoundTrip(t *testing.T) {
	body := testReqBody(t)
	pa := types.PADataSequence{{PADataType: 1, PADataValue: []byte("ap-req-bytes")}}
	req := NewTGSReq(body, pa)

	b, err := req.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalTGSReq(b)
	require.NoError(t, err)
	assert.Equal(t, req.PVNO, got.PVNO)
	assert.Equal(t, req.MsgType, got.MsgType)
	assert.Equal(t, req.PAData, got.PAData)
	assert.Equal(t, req.ReqBody.Realm, got.ReqBody.Realm)
	assert.Equal(t, req.ReqBody.Nonce, got.ReqBody.Nonce)
}

func TestUnmarshalASReqRejectsWrongMsgType(t *testing.T) {
	body := testReqBody(t)
	req := NewTGSReq(body, nil)
	b, err := req.Marshal()
	require.NoError(t, err)

	_, err = UnmarshalASReq(b)
	assert.Error(t, err)
}
