package types

import (
	"encoding/asn1"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptedDataRoundTrip(t *testing.T) {
	kvno := 3
	ed := EncryptedData{EType: 1, KVNO: &kvno, Cipher: []byte("ciphertext bytes")}

	b, err := asn1.Marshal(ed)
	require.NoError(t, err)

	var got EncryptedData
	_, err = asn1.Unmarshal(b, &got)
	require.NoError(t, err)
	assert.Equal(t, ed.EType, got.EType)
	require.NotNil(t, got.KVNO)
	assert.Equal(t, *ed.KVNO, *got.KVNO)
	assert.Equal(t, ed.Cipher, got.Cipher)
}

func TestEncryptedDataRoundTripWithoutKVNO(t *testing.T) {
	ed := EncryptedData{EType: 1, Cipher: []byte("ciphertext bytes")}

	b, err := asn1.Marshal(ed)
	require.NoError(t, err)

	var got EncryptedData
	_, err = asn1.Unmarshal(b, &got)
	require.NoError(t, err)
	assert.Nil(t, got.KVNO)
}

func TestChecksumRoundTrip(t *testing.T) {
	sum := Checksum{CksumType: 1, Checksum: []byte("digest bytes")}

	b, err := asn1.Marshal(sum)
	require.NoError(t, err)

	var got Checksum
	_, err = asn1.Unmarshal(b, &got)
	require.NoError(t, err)
	assert.Equal(t, sum, got)
}

func TestKerberosFlagsBitStringRoundTrip(t *testing.T) {
	bs := NewFlags(FlagForwardable, FlagInvalid, FlagRenew)

	b, err := asn1.Marshal(bs)
	require.NoError(t, err)

	var got asn1.BitString
	_, err = asn1.Unmarshal(b, &got)
	require.NoError(t, err)
	got = PaddedFlags(got)

	assert.True(t, BitStringSet(got, FlagForwardable))
	assert.True(t, BitStringSet(got, FlagInvalid))
	assert.True(t, BitStringSet(got, FlagRenew))
	assert.False(t, BitStringSet(got, FlagProxiable))
}

func TestKerberosTimeTruncatesAndForcesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	local := time.Date(2026, 7, 29, 10, 30, 15, 500_000_000, loc)

	kt := NewKerberosTime(local)
	assert.Equal(t, time.UTC, kt.Time.Location())
	assert.Zero(t, kt.Time.Nanosecond())
}

func TestKerberosTimeZero(t *testing.T) {
	var kt KerberosTime
	assert.True(t, kt.Zero())

	kt = NewKerberosTime(time.Now())
	assert.False(t, kt.Zero())
}

func TestMinTimeReturnsEarlier(t *testing.T) {
	earlier := NewKerberosTime(time.Now())
	later := NewKerberosTime(time.Now().Add(time.Hour))

	assert.Equal(t, earlier, MinTime(earlier, later))
	assert.Equal(t, earlier, MinTime(later, earlier))
}
