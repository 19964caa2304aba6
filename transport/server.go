package transport

import (
	"context"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler processes one decoded request and returns the encoded reply to
// send back, or an error to log (the framing layer never inspects message
// contents; KRB-ERROR-vs-success is entirely the handler's concern).
type Handler func(ctx context.Context, clientAddr net.Addr, req []byte) (reply []byte, err error)

// ServeTCP accepts connections on addr until ctx is cancelled, spawning one
// goroutine per accepted connection (spec.md §5: "the server accepts in a
// loop and spawns one task per accepted connection"). Each connection reads
// exactly one length-prefixed request and writes exactly one reply, then
// closes, mirroring the request/reply-per-connection model of §4.9.
func ServeTCP(ctx context.Context, log *zap.Logger, addr string, h Handler) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Warn("tcp accept failed", zap.Error(err))
				continue
			}
		}
		go func() {
			defer conn.Close()
			reqID := uuid.New().String()
			req, err := ReadTCP(conn)
			if err != nil {
				log.Warn("tcp frame read failed", zap.String("request_id", reqID), zap.Error(err), zap.Stringer("remote", conn.RemoteAddr()))
				return
			}
			reply, err := h(ctx, conn.RemoteAddr(), req)
			if err != nil {
				log.Warn("request handler failed", zap.String("request_id", reqID), zap.Error(err), zap.Stringer("remote", conn.RemoteAddr()))
				return
			}
			if err := WriteTCP(conn, reply); err != nil {
				log.Warn("tcp frame write failed", zap.String("request_id", reqID), zap.Error(err), zap.Stringer("remote", conn.RemoteAddr()))
			}
		}()
	}
}

// ServeUDP reads datagrams on addr until ctx is cancelled, spawning one
// goroutine per datagram to run the handler (spec.md §5: "...or per
// datagram (UDP)"). An oversize reply is logged as a warning and dropped,
// not truncated; no datagram is sent back for it.
func ServeUDP(ctx context.Context, log *zap.Logger, addr string, h Handler) error {
	lc := net.ListenConfig{}
	pc, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		pc.Close()
	}()
	for {
		buf := make([]byte, MaxUDPMessageSize)
		n, clientAddr, err := pc.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Warn("udp read failed", zap.Error(err))
				continue
			}
		}
		req := buf[:n]
		reqID := uuid.New().String()
		go func() {
			reply, err := h(ctx, clientAddr, req)
			if err != nil {
				log.Warn("request handler failed", zap.String("request_id", reqID), zap.Error(err), zap.Stringer("remote", clientAddr))
				return
			}
			if len(reply) > MaxUDPMessageSize {
				log.Warn("udp reply oversize, dropping", zap.String("request_id", reqID), zap.Int("size", len(reply)), zap.Stringer("remote", clientAddr))
				return
			}
			if _, err := pc.WriteTo(reply, clientAddr); err != nil {
				log.Warn("udp write failed", zap.String("request_id", reqID), zap.Error(err), zap.Stringer("remote", clientAddr))
			}
		}()
	}
}
