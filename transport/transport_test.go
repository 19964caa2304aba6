package transport

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := []byte("hello kdc")
	require.NoError(t, WriteTCP(&buf, msg))

	got, err := ReadTCP(&buf)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestReadTCPRejectsLongForm(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x80, 0, 0, 0})

	_, err := ReadTCP(&buf)
	assert.ErrorIs(t, err, ErrLongFormLength)
}

func TestUDPOversizeRejectedBeforeSend(t *testing.T) {
	oversized := make([]byte, MaxUDPMessageSize+1)
	_, err := DialUDP(nil, "127.0.0.1:0", oversized, 0)
	assert.ErrorIs(t, err, ErrUDPOversize)
}

// TestReadTCPRejectsOversizeLengthPrefixBeforeAllocating ensures a peer
// cannot force a large allocation with a length prefix alone: the check
// against MaxTCPMessageSize must happen before any body bytes are read.
func TestReadTCPRejectsOversizeLengthPrefixBeforeAllocating(t *testing.T) {
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], MaxTCPMessageSize+1)
	buf.Write(prefix[:])

	_, err := ReadTCP(&buf)
	assert.ErrorIs(t, err, ErrTCPOversize)
}
