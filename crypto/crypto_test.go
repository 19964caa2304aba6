package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryForETypeSelectsRegisteredImplementation(t *testing.T) {
	reg := NewRegistry([]Cryptography{AESGCM{}}, nil)

	c, ok := reg.ForEType(EType1)
	assert.True(t, ok)
	assert.Equal(t, EType1, c.EType())

	_, ok = reg.ForEType(99)
	assert.False(t, ok)
}

func TestRegistrySelectETypePrefersRequestOrder(t *testing.T) {
	reg := NewRegistry([]Cryptography{AESGCM{}}, nil)

	c, ok := reg.SelectEType([]int32{99, EType1}, []int32{EType1, 99})
	assert.True(t, ok)
	assert.Equal(t, EType1, c.EType())
}

func TestRegistrySelectETypeRequiresSupportedIntersection(t *testing.T) {
	reg := NewRegistry([]Cryptography{AESGCM{}}, nil)

	_, ok := reg.SelectEType([]int32{EType1}, []int32{99})
	assert.False(t, ok)
}

func TestRegistryForCksumTypeSelectsRegisteredHash(t *testing.T) {
	reg := NewRegistry(nil, []CryptographicHash{HMACChecksum{Key: []byte("k")}})

	h, ok := reg.ForCksumType(CksumTypeHMACSHA256)
	assert.True(t, ok)
	assert.Equal(t, CksumTypeHMACSHA256, h.CksumType())

	_, ok = reg.ForCksumType(99)
	assert.False(t, ok)
}
