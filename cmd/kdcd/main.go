// Command kdcd runs the Authentication Service and Ticket-Granting Service
// as one daemon: two listeners (AS port, TGS port) over the configured
// transport, sharing one principal database and one set of caches, the way
// the teacher's single-binary-per-role daemons are structured.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kerbgo/kerberos/cache"
	"github.com/kerbgo/kerberos/config"
	"github.com/kerbgo/kerberos/crypto"
	"github.com/kerbgo/kerberos/kdc/asexchange"
	"github.com/kerbgo/kerberos/kdc/tgsexchange"
	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/principaldb"
	"github.com/kerbgo/kerberos/transport"
	"github.com/kerbgo/kerberos/types"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "kdcd",
		Short: "Kerberos Authentication and Ticket-Granting Service daemon",
		RunE:  run,
	}
	root.Flags().StringVar(&cfgFile, "config", "", "path to kdcd config file")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kdcd:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	var cfg config.KDCConfig
	if err := config.Load(cfgFile, &cfg); err != nil {
		return err
	}
	if cfg.Host.ASPort == 0 {
		cfg.Host.ASPort = 88
	}
	if cfg.Host.TGSPort == 0 {
		cfg.Host.TGSPort = 88
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

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	reg := crypto.NewRegistry(
		[]crypto.Cryptography{crypto.AESGCM{}},
		[]crypto.CryptographicHash{crypto.HMACChecksum{}},
	)

	principals := principaldb.NewMemoryDatabase()
	if err := seedPrincipals(principals, cfg.PrincipalFixtures); err != nil {
		return err
	}
	lastReq, err := cache.NewLastReqStore(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return err
	}
	tgsReplays, err := cache.NewReplayCache(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return err
	}

	tgsName, err := types.NewPrincipalName(types.NTSrvInst, "krbtgt", cfg.Realm)
	if err != nil {
		return err
	}
	tgsRecord, ok := principals.GetPrincipal(tgsName, types.Realm(cfg.Realm))
	if !ok {
		return fmt.Errorf("kdcd: no krbtgt/%s principal record provisioned", cfg.Realm)
	}

	asHandler := asexchange.New(asexchange.Config{
		Realm:          types.Realm(cfg.Realm),
		SName:          tgsName,
		Principals:     principals,
		Crypto:         reg,
		LastReq:        lastReq,
		RequirePreAuth: true,
		ClockSkew:      cfg.ClockSkew,
		Log:            log,
	})
	tgsHandler := tgsexchange.New(tgsexchange.Config{
		Realm:      types.Realm(cfg.Realm),
		SName:      tgsName,
		TGSKey:     tgsRecord.Key,
		Principals: principals,
		Crypto:     reg,
		Replays:    tgsReplays,
		ClockSkew:  cfg.ClockSkew,
		Log:        log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asAddr := fmt.Sprintf("%s:%d", cfg.Host.Host, cfg.Host.ASPort)
	tgsAddr := fmt.Sprintf("%s:%d", cfg.Host.Host, cfg.Host.TGSPort)

	var wg sync.WaitGroup
	wg.Add(2)
	errs := make(chan error, 2)

	go func() {
		defer wg.Done()
		errs <- serveWithTransport(ctx, log, cfg.Host.Protocol, asAddr, func(_ context.Context, _ net.Addr, b []byte) ([]byte, error) {
			return handleASRequest(asHandler, b)
		})
	}()
	go func() {
		defer wg.Done()
		errs <- serveWithTransport(ctx, log, cfg.Host.Protocol, tgsAddr, func(_ context.Context, _ net.Addr, b []byte) ([]byte, error) {
			return handleTGSRequest(tgsHandler, b)
		})
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// seedPrincipals populates db from config-supplied fixtures before the
// daemon starts serving (principaldb.Record's fixture store is meant to be
// loaded once, up front; see principaldb.MemoryDatabase.Put).
func seedPrincipals(db *principaldb.MemoryDatabase, fixtures []config.PrincipalFixtureConfig) error {
	for _, f := range fixtures {
		name, err := parseFixturePrincipal(f.Name)
		if err != nil {
			return fmt.Errorf("kdcd: principal fixture %q: %w", f.Name, err)
		}
		key, err := fixtureKey(f)
		if err != nil {
			return fmt.Errorf("kdcd: principal fixture %q: %w", f.Name, err)
		}
		db.Put(name, types.Realm(f.Realm), principaldb.Record{
			Key:                      key,
			KVNO:                     f.KVNO,
			MaxLifetime:              f.MaxLifetime,
			MaxRenewableLife:         f.MaxRenewableLife,
			SupportedEncryptionTypes: []int32{crypto.EType1},
		})
	}
	return nil
}

func fixtureKey(f config.PrincipalFixtureConfig) (types.EncryptionKey, error) {
	if f.Password != "" {
		return types.EncryptionKey{KeyType: crypto.EType1, KeyValue: crypto.StringToKey(f.Password, f.Realm+f.Name)}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(f.Key)
	if err != nil {
		return types.EncryptionKey{}, fmt.Errorf("decoding base64 key: %w", err)
	}
	return types.EncryptionKey{KeyType: crypto.EType1, KeyValue: raw}, nil
}

func parseFixturePrincipal(s string) (types.PrincipalName, error) {
	parts := strings.Split(s, "/")
	nameType := types.Int32(types.NTPrincipal)
	if len(parts) > 1 {
		nameType = types.NTSrvInst
	}
	return types.NewPrincipalName(nameType, parts...)
}

func serveWithTransport(ctx context.Context, log *zap.Logger, protocol, addr string, h transport.Handler) error {
	if protocol == "udp" {
		return transport.ServeUDP(ctx, log, addr, h)
	}
	return transport.ServeTCP(ctx, log, addr, h)
}

func handleASRequest(h *asexchange.Handler, reqBytes []byte) ([]byte, error) {
	req, err := messages.UnmarshalASReq(reqBytes)
	if err != nil {
		return nil, err
	}
	rep, kerr := h.Handle(req)
	if kerr != nil {
		return kerr.Marshal()
	}
	return rep.Marshal()
}

func handleTGSRequest(h *tgsexchange.Handler, reqBytes []byte) ([]byte, error) {
	req, err := messages.UnmarshalTGSReq(reqBytes)
	if err != nil {
		return nil, err
	}
	rep, kerr := h.Handle(req)
	if kerr != nil {
		return kerr.Marshal()
	}
	return rep.Marshal()
}
