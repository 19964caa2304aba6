package crypto

import "github.com/kerbgo/kerberos/types"

// Seal encrypts an already-DER-encoded (and, for APPLICATION-tagged types,
// already Marshal()-wrapped) plaintext under key, using whichever
// Cryptography implementation is registered for key's etype. This is the
// one seam every exchange handler uses to go from a cleartext protocol
// struct's bytes to the EncryptedData that is actually placed on the wire
// (spec.md §4.5 steps 6/8, §4.6 steps 12/13, §4.7 step 10).
func Seal(r *Registry, key types.EncryptionKey, plaintext []byte) (types.EncryptedData, error) {
	c, ok := r.ForEType(key.KeyType)
	if !ok {
		return types.EncryptedData{}, ErrWrongKeySize
	}
	ciphertext, err := c.Encrypt(plaintext, key.KeyValue)
	if err != nil {
		return types.EncryptedData{}, err
	}
	return types.EncryptedData{EType: key.KeyType, Cipher: ciphertext}, nil
}

// Open decrypts encData under key, returning the plaintext bytes the caller
// then unmarshals according to the context encData appeared in.
func Open(r *Registry, key types.EncryptionKey, encData types.EncryptedData) ([]byte, error) {
	c, ok := r.ForEType(encData.EType)
	if !ok {
		return nil, ErrWrongKeySize
	}
	return c.Decrypt(encData.Cipher, key.KeyValue)
}
