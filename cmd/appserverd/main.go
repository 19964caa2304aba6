// Command appserverd runs a single application server: it validates
// incoming KRB-AP-REQs against its own service key and optionally answers
// with a KRB-AP-REP for mutual authentication.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kerbgo/kerberos/appserver"
	"github.com/kerbgo/kerberos/cache"
	"github.com/kerbgo/kerberos/config"
	"github.com/kerbgo/kerberos/crypto"
	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/transport"
	"github.com/kerbgo/kerberos/types"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "appserverd",
		Short: "Kerberos application-server daemon validating AP-REQs",
		RunE:  run,
	}
	root.Flags().StringVar(&cfgFile, "config", "", "path to appserverd config file")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "appserverd:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	var cfg config.AppServerConfig
	if err := config.Load(cfgFile, &cfg); err != nil {
		return err
	}
	if cfg.Listen == "" {
		return fmt.Errorf("appserverd: listen address is required")
	}
	if cfg.ClockSkew == 0 {
		cfg.ClockSkew = 5 * time.Minute
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 4096
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if len(cfg.Key) != 16 {
		return fmt.Errorf("appserverd: service key must be 16 bytes for the registered etype")
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	reg := crypto.NewRegistry([]crypto.Cryptography{crypto.AESGCM{}}, nil)

	replays, err := cache.NewApReplayCache(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return err
	}
	sessions, err := cache.NewSessionStore(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return err
	}
	addrs, err := cache.NewAddressStore(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return err
	}

	h := appserver.New(appserver.Config{
		ServerKey:          types.EncryptionKey{KeyType: crypto.EType1, KeyValue: []byte(cfg.Key)},
		Crypto:             reg,
		Replays:            replays,
		Sessions:           sessions,
		Addresses:          addrs,
		AcceptEmptyAddrTkt: cfg.AcceptEmptyAddrTkt,
		ClockSkew:          cfg.ClockSkew,
		Log:                log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := func(_ context.Context, clientAddr net.Addr, reqBytes []byte) ([]byte, error) {
		req, err := messages.UnmarshalApReq(reqBytes)
		if err != nil {
			return nil, err
		}
		if tcpAddr, ok := clientAddr.(*net.TCPAddr); ok {
			addrs.Store(cache.NewAddressKey(reqBytes), types.HostAddress{
				AddrType: types.AddrTypeIPv4,
				Address:  tcpAddr.IP,
			})
		}
		result, kerr := h.Handle(req, reqBytes)
		if kerr != nil {
			return kerr.Marshal()
		}
		if result.APRep != nil {
			return result.APRep.Marshal()
		}
		return nil, nil
	}

	return transport.ServeTCP(ctx, log, cfg.Listen, handler)
}
