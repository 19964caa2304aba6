// Command kclient is the spec.md §6 client CLI: get-ticket drives the
// AS-REQ/TGS-REQ exchanges and persists the results to a cache directory,
// list-ticket reports what is cached, and send-ap-req drives the AP-REQ
// exchange against an application server. Grounded on the teacher's single
// cobra root with one subcommand per operation.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kerbgo/kerberos/client"
	"github.com/kerbgo/kerberos/crypto"
	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/types"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "kclient",
		Short: "Kerberos client CLI: obtain, list and present tickets",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to kclient config file")
	root.AddCommand(newGetTicketCmd(), newListTicketCmd(), newSendAPReqCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kclient:", err)
		os.Exit(1)
	}
}

// clientFlags are the identity/cache flags every subcommand needs, loaded
// from --config plus KRB5_ environment overrides, the same way cmd/kdcd and
// cmd/appserverd load their own configs.
type clientFlags struct {
	name          string
	realm         string
	password      string
	cacheLocation string
	transport     string
}

func bindClientFlags(cmd *cobra.Command, f *clientFlags) {
	cmd.Flags().StringVar(&f.name, "principal", "", "this client's own principal name")
	cmd.Flags().StringVar(&f.realm, "realm", "", "this client's own realm")
	cmd.Flags().StringVar(&f.password, "password", "", "this client's long-term password (derives the AS-REQ reply key)")
	cmd.Flags().StringVar(&f.cacheLocation, "cache-location", "", "ticket cache directory")
	cmd.Flags().StringVar(&f.transport, "transport", "tcp", "transport to use for KDC exchanges (tcp|udp)")
}

func resolveConfig(f *clientFlags) (client.Environment, *client.CacheDir, error) {
	v := viper.New()
	v.SetEnvPrefix("KRB5")
	v.AutomaticEnv()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return client.Environment{}, nil, fmt.Errorf("kclient: reading %s: %w", cfgFile, err)
		}
	}

	name := firstNonEmpty(f.name, v.GetString("client.name"))
	realm := firstNonEmpty(f.realm, v.GetString("client.realm"))
	password := firstNonEmpty(f.password, v.GetString("client.key"))
	cacheLocation := firstNonEmpty(f.cacheLocation, v.GetString("client.cache-location"))
	if name == "" || realm == "" || cacheLocation == "" {
		return client.Environment{}, nil, fmt.Errorf("kclient: principal, realm and cache-location are required")
	}

	cname, err := parsePrincipal(name)
	if err != nil {
		return client.Environment{}, nil, err
	}

	reg := crypto.NewRegistry([]crypto.Cryptography{crypto.AESGCM{}}, []crypto.CryptographicHash{crypto.HMACChecksum{}})
	cacheDir := client.NewCacheDir(cacheLocation)

	var key types.EncryptionKey
	if password != "" {
		key = types.EncryptionKey{KeyType: crypto.EType1, KeyValue: crypto.StringToKey(password, realm+cname.String())}
		if err := cacheDir.SaveKey(key); err != nil {
			return client.Environment{}, nil, err
		}
	} else {
		key, err = cacheDir.LoadKey()
		if err != nil {
			return client.Environment{}, nil, fmt.Errorf("kclient: no password given and no cached key: %w", err)
		}
	}

	env := client.Environment{
		CName:  cname,
		Realm:  types.Realm(realm),
		Key:    key,
		ETypes: []int32{crypto.EType1},
		Crypto: reg,
	}
	return env, cacheDir, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// parsePrincipal splits "name/instance" into an NTPrincipal (single
// component) or NTSrvInst (two components) PrincipalName, the convention
// the rest of this module uses for krbtgt/service principals.
func parsePrincipal(s string) (types.PrincipalName, error) {
	parts := strings.Split(s, "/")
	nameType := types.Int32(types.NTPrincipal)
	if len(parts) > 1 {
		nameType = types.NTSrvInst
	}
	return types.NewPrincipalName(nameType, parts...)
}

func newGetTicketCmd() *cobra.Command {
	var f clientFlags
	var (
		targetPrincipal string
		targetRealm     string
		lifetime        time.Duration
		renewTime       string
		forwardable     bool
		proxiable       bool
		renewable       bool
		asAddr          string
		tgsAddr         string
	)

	cmd := &cobra.Command{
		Use:   "get-ticket",
		Short: "Obtain a ticket-granting ticket (and, if --target-realm differs, a service ticket) and cache it",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cacheDir, err := resolveConfig(&f)
			if err != nil {
				return err
			}
			if targetPrincipal == "" {
				return fmt.Errorf("kclient: --target-principal is required")
			}
			target, err := parsePrincipal(targetPrincipal)
			if err != nil {
				return err
			}

			var rtime types.KerberosTime
			if renewTime != "" {
				sec, err := strconv.ParseInt(renewTime, 10, 64)
				if err != nil {
					return fmt.Errorf("kclient: --ticket-renew-time must be a unix timestamp: %w", err)
				}
				rtime = types.NewKerberosTime(time.Unix(sec, 0))
			}
			req, nonce, err := env.PrepareASRequest(target, types.Realm(targetRealm), lifetime, types.KerberosTime{}, rtime, forwardable, proxiable)
			if err != nil {
				return err
			}
			reqBytes, err := req.Marshal()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			replyBytes, err := sendAndCheck(ctx, asAddr, f.transport, reqBytes)
			if err != nil {
				return err
			}
			rep, err := messages.UnmarshalASRep(replyBytes)
			if err != nil {
				return err
			}
			enc, err := env.ReceiveASResponse(req, rep, nonce)
			if err != nil {
				return err
			}
			if err := cacheDir.SaveASTicket(rep, enc); err != nil {
				return err
			}
			fmt.Printf("cached ticket-granting ticket for %s, authtime=%d\n", env.CName.String(), enc.AuthTime.Unix())

			if tgsAddr == "" || targetRealm == "" || types.Realm(targetRealm) == env.Realm {
				return nil
			}

			tgsReq, tgsNonce, err := env.PrepareTGSRequest(rep.Ticket, enc.Key, target, lifetime, renewable)
			if err != nil {
				return err
			}
			tgsReqBytes, err := tgsReq.Marshal()
			if err != nil {
				return err
			}
			tgsReplyBytes, err := sendAndCheck(ctx, tgsAddr, f.transport, tgsReqBytes)
			if err != nil {
				return err
			}
			tgsRep, err := messages.UnmarshalTGSRep(tgsReplyBytes)
			if err != nil {
				return err
			}
			tgsEnc, err := env.ReceiveTGSResponse(tgsReq, tgsRep, tgsNonce, enc.Key)
			if err != nil {
				return err
			}
			if err := cacheDir.SaveTGSTicket(tgsRep, tgsEnc, nil, nil); err != nil {
				return err
			}
			fmt.Printf("cached service ticket for %s\n", target.String())
			return nil
		},
	}
	bindClientFlags(cmd, &f)
	cmd.Flags().StringVar(&targetPrincipal, "target-principal", "", "principal to request a ticket for")
	cmd.Flags().StringVar(&targetRealm, "target-realm", "", "realm the target principal belongs to")
	cmd.Flags().DurationVar(&lifetime, "ticket-lifetime", 10*time.Hour, "requested ticket lifetime")
	cmd.Flags().StringVar(&renewTime, "ticket-renew-time", "", "requested renew-till, as a unix timestamp")
	cmd.Flags().BoolVarP(&forwardable, "forwardable", "f", false, "request a forwardable ticket")
	cmd.Flags().BoolVarP(&proxiable, "proxiable", "p", false, "request a proxiable ticket")
	cmd.Flags().BoolVarP(&renewable, "renewable", "r", false, "request a renewable ticket")
	cmd.Flags().StringVar(&asAddr, "as-server-address", "", "Authentication Service address (host:port)")
	cmd.Flags().StringVar(&tgsAddr, "tgs-server-address", "", "Ticket-Granting Service address (host:port)")
	return cmd
}

func newListTicketCmd() *cobra.Command {
	var f clientFlags
	cmd := &cobra.Command{
		Use:   "list-ticket",
		Short: "List cached tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cacheDir, err := resolveConfig(&f)
			if err != nil {
				return err
			}
			timestamps, err := cacheDir.ListTickets()
			if err != nil {
				return err
			}
			if len(timestamps) == 0 {
				fmt.Println("no cached tickets")
				return nil
			}
			for _, ts := range timestamps {
				if rep, enc, err := cacheDir.LoadASTicket(ts); err == nil {
					fmt.Printf("authtime=%d  sname=%s  till=%d  (AS)\n", ts, rep.Ticket.SName.String(), enc.EndTime.Unix())
					continue
				}
				if rep, enc, err := cacheDir.LoadTGSTicket(ts); err == nil {
					fmt.Printf("authtime=%d  sname=%s  till=%d  (TGS)\n", ts, rep.Ticket.SName.String(), enc.EndTime.Unix())
				}
			}
			return nil
		},
	}
	bindClientFlags(cmd, &f)
	return cmd
}

func newSendAPReqCmd() *cobra.Command {
	var f clientFlags
	var (
		authTime      int64
		serverAddr    string
		mutualAuth    bool
	)
	cmd := &cobra.Command{
		Use:   "send-ap-req",
		Short: "Present a cached service ticket to an application server",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cacheDir, err := resolveConfig(&f)
			if err != nil {
				return err
			}
			if serverAddr == "" {
				return fmt.Errorf("kclient: --server-address is required")
			}
			rep, enc, err := cacheDir.LoadTGSTicket(authTime)
			if err != nil {
				return err
			}
			apReq, err := env.PrepareAPRequest(rep.Ticket, enc.Key, mutualAuth)
			if err != nil {
				return err
			}
			reqBytes, err := apReq.Marshal()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			replyBytes, err := sendAndCheck(ctx, serverAddr, f.transport, reqBytes)
			if err != nil {
				return err
			}
			if !mutualAuth || len(replyBytes) == 0 {
				fmt.Println("server accepted the ticket")
				return nil
			}
			apRep, err := messages.UnmarshalApRep(replyBytes)
			if err != nil {
				return err
			}
			plain, err := crypto.Open(env.Crypto, enc.Key, apRep.EncPart)
			if err != nil {
				return fmt.Errorf("kclient: decrypting AP-REP: %w", err)
			}
			if _, err := messages.UnmarshalEncApRepPart(plain); err != nil {
				return fmt.Errorf("kclient: server's mutual-auth proof did not decode: %w", err)
			}
			fmt.Println("server mutually authenticated")
			return nil
		},
	}
	bindClientFlags(cmd, &f)
	cmd.Flags().Int64Var(&authTime, "authtime", 0, "authtime of the cached service ticket to present")
	cmd.Flags().StringVar(&serverAddr, "server-address", "", "application server address (host:port)")
	cmd.Flags().BoolVar(&mutualAuth, "mutual-auth", false, "request mutual authentication")
	return cmd
}

func sendAndCheck(ctx context.Context, addr, transportType string, req []byte) ([]byte, error) {
	reply, err := client.SendToKDC(ctx, addr, transportType, req)
	if err != nil {
		if kerr, ok := err.(messages.KRBError); ok {
			return nil, fmt.Errorf("kclient: %s (code %d)", kerr.EText, kerr.ErrorCode)
		}
		return nil, err
	}
	return reply, nil
}
