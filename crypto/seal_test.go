package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbgo/kerberos/types"
)

func TestSealOpenRoundTrip(t *testing.T) {
	reg := NewRegistry([]Cryptography{AESGCM{}}, nil)
	key := types.EncryptionKey{KeyType: EType1, KeyValue: []byte("0123456789abcdef")}
	plaintext := []byte("enc-ticket-part bytes")

	encData, err := Seal(reg, key, plaintext)
	require.NoError(t, err)
	assert.Equal(t, EType1, encData.EType)

	got, err := Open(reg, key, encData)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSealRejectsUnregisteredEType(t *testing.T) {
	reg := NewRegistry(nil, nil)
	key := types.EncryptionKey{KeyType: EType1, KeyValue: []byte("0123456789abcdef")}

	_, err := Seal(reg, key, []byte("data"))
	assert.ErrorIs(t, err, ErrWrongKeySize)
}

func TestOpenRejectsUnregisteredEType(t *testing.T) {
	reg := NewRegistry(nil, nil)
	key := types.EncryptionKey{KeyType: EType1, KeyValue: []byte("0123456789abcdef")}
	encData := types.EncryptedData{EType: EType1, Cipher: []byte("ciphertext")}

	_, err := Open(reg, key, encData)
	assert.ErrorIs(t, err, ErrWrongKeySize)
}

func TestOpenFailsWithWrongKey(t *testing.T) {
	reg := NewRegistry([]Cryptography{AESGCM{}}, nil)
	key := types.EncryptionKey{KeyType: EType1, KeyValue: []byte("0123456789abcdef")}
	wrongKey := types.EncryptionKey{KeyType: EType1, KeyValue: []byte("fedcba9876543210")}

	encData, err := Seal(reg, key, []byte("secret"))
	require.NoError(t, err)

	_, err = Open(reg, wrongKey, encData)
	assert.Error(t, err)
}
