package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// EType1 is this implementation's concrete registration: AES-128-GCM keyed
// either randomly (session keys) or via PBKDF2-HMAC-SHA256 over a password
// (long-term keys derived client-side), matching the real protocol's
// string-to-key derivation step without tying the wire format to one
// specific RFC 3962 profile.
const EType1 int32 = 1

// AESGCM implements Cryptography for EType1.
type AESGCM struct{}

func (AESGCM) EType() int32 { return EType1 }
func (AESGCM) KeySize() int { return 16 }

func (a AESGCM) GenerateKey() ([]byte, error) {
	key := make([]byte, a.KeySize())
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, errors.Wrap(ErrGenerateKey, err.Error())
	}
	return key, nil
}

func (a AESGCM) Encrypt(data, key []byte) ([]byte, error) {
	if len(key) != a.KeySize() {
		return nil, ErrWrongKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(ErrEncrypt, err.Error())
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(ErrEncrypt, err.Error())
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(ErrEncrypt, err.Error())
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

func (a AESGCM) Decrypt(ciphertext, key []byte) ([]byte, error) {
	if len(key) != a.KeySize() {
		return nil, ErrWrongKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(ErrDecrypt, err.Error())
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(ErrDecrypt, err.Error())
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	pt, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.Wrap(ErrDecrypt, err.Error())
	}
	return pt, nil
}

// StringToKey derives a long-term EType1 key from a password and salt (the
// principal's realm+name, by RFC 4120 §3.1.4 convention) via PBKDF2-HMAC-
// SHA256, giving the client a way to authenticate with --password instead of
// a pre-provisioned key file.
func StringToKey(password, salt string) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), 4096, 16, sha256.New)
}
