package client

import (
	"context"
	"time"

	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/transport"
)

// kdcRequestTimeout bounds a single AS/TGS round trip; the teacher's
// sendTCP/sendUDP used a fixed five-second deadline for the same reason
// (avoid a wedged KDC connection hanging the CLI forever).
const kdcRequestTimeout = 5 * time.Second

// SendToKDC transmits req to addr over the configured transport and decodes
// the reply, surfacing a decoded KRB-ERROR as the returned error exactly as
// the teacher's checkForKRBError did.
func SendToKDC(ctx context.Context, addr, transportType string, req []byte) ([]byte, error) {
	var (
		reply []byte
		err   error
	)
	switch transportType {
	case "udp":
		reply, err = transport.DialUDP(ctx, addr, req, kdcRequestTimeout)
		if err == transport.ErrUDPOversize {
			reply, err = transport.DialTCP(ctx, addr, req, kdcRequestTimeout)
		}
	default:
		reply, err = transport.DialTCP(ctx, addr, req, kdcRequestTimeout)
	}
	if err != nil {
		return nil, err
	}
	return checkForKRBError(reply)
}

// checkForKRBError returns b as-is when it does not decode as a KRB-ERROR,
// and the decoded KRBError as the error value when it does; callers type-
// assert on messages.KRBError to recover the error-code.
func checkForKRBError(b []byte) ([]byte, error) {
	if kerr, err := messages.UnmarshalKRBError(b); err == nil {
		return b, kerr
	}
	return b, nil
}
