// Package transport implements the request/reply framing contract spec.md
// §4.9/§6 specifies: TCP length-prefixed frames and UDP single-datagram
// exchanges, with no concrete network binding mandated beyond that. It is
// the direct replacement for the teacher's client/network.go hand-rolled
// sendTCP/sendUDP pair, generalized into a reusable Dial/Listen surface
// both the client drivers and the kdcd/appserverd servers share.
package transport

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// MaxUDPMessageSize is the hard cap spec.md §4.9 places on a UDP datagram in
// either direction. DialUDP rejects an oversize request with ErrUDPOversize
// and ServeUDP logs and drops an oversize reply; neither is truncated.
const MaxUDPMessageSize = 1024

// MaxTCPMessageSize bounds how large a length-prefixed TCP frame ReadTCP will
// allocate for. No legitimate Kerberos message approaches this size; it
// exists to stop a peer's length prefix alone from driving an unbounded
// allocation before any body byte has even been read.
const MaxTCPMessageSize = 1 << 20

// ErrTCPOversize is returned by ReadTCP when the peer's length prefix
// exceeds MaxTCPMessageSize.
var ErrTCPOversize = errors.New("transport: message exceeds TCP frame cap")

// ErrUDPOversize is returned by DialUDP when the encoded request would not
// fit in a single datagram under MaxUDPMessageSize.
var ErrUDPOversize = errors.New("transport: message exceeds UDP datagram cap")

// ErrLongFormLength is returned by ReadTCP when the peer sets the reserved
// high bit of the four-octet length prefix; RFC 4120 §7.2.2 requires closing
// the connection with KRB_ERR_FIELD_TOOLONG in that case.
var ErrLongFormLength = errors.New("transport: long-form length prefix not supported")

// WriteTCP writes msg to w preceded by its four-octet big-endian length,
// high bit clear (spec.md §6 "the first octet's high bit indicates a
// long-form extension"; this implementation never emits long-form frames).
func WriteTCP(w io.Writer, msg []byte) error {
	if len(msg) > 0x7fffffff {
		return ErrLongFormLength
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(msg)))
	if _, err := w.Write(prefix[:]); err != nil {
		return errors.Wrap(err, "transport: write length prefix")
	}
	if _, err := w.Write(msg); err != nil {
		return errors.Wrap(err, "transport: write message body")
	}
	return nil
}

// ReadTCP reads one length-prefixed frame from r.
func ReadTCP(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, errors.Wrap(err, "transport: read length prefix")
	}
	if prefix[0]&0x80 != 0 {
		return nil, ErrLongFormLength
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxTCPMessageSize {
		return nil, ErrTCPOversize
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "transport: read message body")
	}
	return buf, nil
}

// DialTCP connects to addr and exchanges one length-prefixed request/reply
// pair, mirroring the teacher's sendTCP; the client drivers call it through
// client/network.go.
func DialTCP(ctx context.Context, addr string, req []byte, timeout time.Duration) ([]byte, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dial tcp %s", addr)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))
	if err := WriteTCP(conn, req); err != nil {
		return nil, err
	}
	return ReadTCP(conn)
}

// DialUDP sends req as a single datagram to addr and returns the single
// datagram reply, enforcing MaxUDPMessageSize on the outgoing request.
func DialUDP(ctx context.Context, addr string, req []byte, timeout time.Duration) ([]byte, error) {
	if len(req) > MaxUDPMessageSize {
		return nil, ErrUDPOversize
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dial udp %s", addr)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write(req); err != nil {
		return nil, errors.Wrap(err, "transport: write datagram")
	}
	buf := make([]byte, MaxUDPMessageSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, errors.Wrap(err, "transport: read datagram")
	}
	return buf[:n], nil
}
