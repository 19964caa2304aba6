package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFlagBuilderSetsOnlyRequestedPosition is the flag-builder law from
// spec.md §8: builder.Set(p).Build() must set bit p and leave every other
// position (0-31) clear.
func TestFlagBuilderSetsOnlyRequestedPosition(t *testing.T) {
	for p := 0; p < 32; p++ {
		b := &FlagBuilder{}
		bs := b.Set(p).Build()
		for other := 0; other < 32; other++ {
			want := other == p
			assert.Equal(t, want, BitStringSet(bs, other), "position %d with only %d set", other, p)
		}
	}
}

func TestNewFlagsSetsExactlyGivenPositions(t *testing.T) {
	bs := NewFlags(FlagForwardable, FlagRenewable)
	assert.True(t, BitStringSet(bs, FlagForwardable))
	assert.True(t, BitStringSet(bs, FlagRenewable))
	assert.False(t, BitStringSet(bs, FlagProxiable))
	assert.False(t, BitStringSet(bs, FlagInvalid))
}

func TestNewFlagsNoPositionsIsAllClear(t *testing.T) {
	bs := NewFlags()
	for p := 0; p < 32; p++ {
		assert.False(t, BitStringSet(bs, p))
	}
}

func TestTicketFlagsBuilderSetsOnlyRequestedPosition(t *testing.T) {
	for _, p := range []int{FlagInvalid, FlagRenewable, FlagInitial, FlagPreAuthent} {
		flags := NewTicketFlagsBuilder().Set(p).Build()
		for other := 0; other < 32; other++ {
			want := other == p
			assert.Equal(t, want, flags.IsSet(other), "position %d with only %d set", other, p)
		}
	}
}

func TestKDCOptionsAccessorsMatchSetBit(t *testing.T) {
	opts := NewKDCOptions(FlagRenew, FlagValidate)
	assert.True(t, opts.Renew())
	assert.True(t, opts.Validate())
	assert.False(t, opts.Forwardable())
	assert.False(t, opts.RenewableOK())
}

func TestTicketFlagsAccessorsMatchSetBit(t *testing.T) {
	flags := NewTicketFlags(FlagInvalid, FlagForwardable)
	assert.True(t, flags.Invalid())
	assert.True(t, flags.Forwardable())
	assert.False(t, flags.Renewable())
	assert.False(t, flags.Postdated())
}

// TestNewPrincipalNameRejectsEmptyComponents covers invariant I2: at least
// one component is required.
func TestNewPrincipalNameRejectsEmptyComponents(t *testing.T) {
	_, err := NewPrincipalName(NTPrincipal)
	require.Error(t, err)
	assert.Equal(t, ErrEmptyPrincipalComponents, err)
}

func TestNewPrincipalNameAcceptsComponents(t *testing.T) {
	p, err := NewPrincipalName(NTSrvInst, "host", "service.example.com")
	require.NoError(t, err)
	assert.Equal(t, Int32(NTSrvInst), p.NameType)
	assert.Equal(t, "host/service.example.com", p.String())
}

func TestPrincipalNameEqual(t *testing.T) {
	a, err := NewPrincipalName(NTPrincipal, "alice")
	require.NoError(t, err)
	b, err := NewPrincipalName(NTPrincipal, "alice")
	require.NoError(t, err)
	c, err := NewPrincipalName(NTPrincipal, "bob")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestPaddedFlagsPadsShortBitString(t *testing.T) {
	short := NewFlags(FlagForwardable)
	short.Bytes = short.Bytes[:1]
	short.BitLength = 8

	padded := PaddedFlags(short)
	assert.Len(t, padded.Bytes, 4)
	assert.GreaterOrEqual(t, padded.BitLength, 32)
	assert.True(t, BitStringSet(padded, FlagForwardable))
}

func TestHostAddressesEqualAndContains(t *testing.T) {
	a := HostAddresses{{AddrType: AddrTypeIPv4, Address: []byte{10, 0, 0, 1}}}
	b := HostAddresses{{AddrType: AddrTypeIPv4, Address: []byte{10, 0, 0, 1}}}
	c := HostAddresses{{AddrType: AddrTypeIPv4, Address: []byte{10, 0, 0, 2}}}

	assert.True(t, HostAddressesEqual(a, b))
	assert.False(t, HostAddressesEqual(a, c))
	assert.True(t, a.Contains(b[0]))
	assert.False(t, a.Contains(c[0]))
}
