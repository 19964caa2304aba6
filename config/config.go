// Package config loads the option set spec.md §6 names (client, server
// host, server cache and principal-DB configuration) via viper, the way the
// teacher's cmd-adjacent configuration is loaded from YAML with environment
// overlays. Unmarshalling uses viper's native mapstructure decoding; no
// custom decode hooks are needed since every field is a plain scalar or
// time.Duration (viper's StringToTimeDurationHookFunc covers ticket
// lifetimes/TTLs).
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ClientConfig is a Kerberos client's own identity and contact details
// (spec.md §6 "client").
type ClientConfig struct {
	Name          string `mapstructure:"name"`
	Realm         string `mapstructure:"realm"`
	Address       string `mapstructure:"address"`
	Key           string `mapstructure:"key"`
	CacheLocation string `mapstructure:"cache-location"`
	TransportType string `mapstructure:"transport-type"`
}

// ServerHostConfig is the listener configuration shared by the AS/TGS and
// application-server daemons (spec.md §6 "server host").
type ServerHostConfig struct {
	Protocol string `mapstructure:"protocol"`
	Host     string `mapstructure:"host"`
	ASPort   int    `mapstructure:"as-port"`
	TGSPort  int    `mapstructure:"tgs-port"`
}

// CacheConfig sizes one TTL+LRU cache instance (spec.md §6 "server cache").
type CacheConfig struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PrincipalDBConfig names the backing principal database (spec.md §6
// "principal DB").
type PrincipalDBConfig struct {
	Username    string `mapstructure:"username"`
	Host        string `mapstructure:"host"`
	Password    string `mapstructure:"password"`
	Name        string `mapstructure:"name"`
	Port        int    `mapstructure:"port"`
	RequireSSL  bool   `mapstructure:"require-ssl"`
}

// PrincipalFixtureConfig seeds one principaldb.Record at daemon startup
// (spec.md §6 notes the principal store "used by tests and the demo
// cmd/kdcd" is the in-memory fixture; a production deployment would back
// it with PrincipalDBConfig's driver instead). Key is either a raw key
// (base64) or, if Password is set instead, passed through
// crypto.StringToKey using Realm+Name as salt.
type PrincipalFixtureConfig struct {
	Name             string        `mapstructure:"name"`
	Realm            string        `mapstructure:"realm"`
	Key              string        `mapstructure:"key"`
	Password         string        `mapstructure:"password"`
	KVNO             int           `mapstructure:"kvno"`
	MaxLifetime      time.Duration `mapstructure:"max-lifetime"`
	MaxRenewableLife time.Duration `mapstructure:"max-renewable-life"`
}

// KDCConfig is the top-level daemon configuration for cmd/kdcd: a server
// host binding, one cache config reused for replay/last-req caches, the
// principal database it authenticates against, and the fixture principals
// to seed it with.
type KDCConfig struct {
	Realm              string                   `mapstructure:"realm"`
	Host               ServerHostConfig         `mapstructure:"host"`
	Cache              CacheConfig              `mapstructure:"cache"`
	Principals         PrincipalDBConfig        `mapstructure:"principals"`
	PrincipalFixtures  []PrincipalFixtureConfig `mapstructure:"principal-fixtures"`
	ClockSkew          time.Duration            `mapstructure:"clock-skew"`
}

// AppServerConfig is cmd/appserverd's configuration: the service principal's
// own key plus its replay/session/address caches.
type AppServerConfig struct {
	Realm              string      `mapstructure:"realm"`
	Principal          string      `mapstructure:"principal"`
	Key                string      `mapstructure:"key"`
	Listen             string      `mapstructure:"listen"`
	Cache              CacheConfig `mapstructure:"cache"`
	AcceptEmptyAddrTkt bool        `mapstructure:"accept-empty-addr-ticket"`
	ClockSkew          time.Duration `mapstructure:"clock-skew"`
}

// Load reads path (if non-empty) plus KRB5_ prefixed environment overrides
// into dst, matching the teacher's viper.New-per-load habit so concurrent
// tests never share global viper state.
func Load(path string, dst any) error {
	v := viper.New()
	v.SetEnvPrefix("KRB5")
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "config: reading %s", path)
		}
	}
	if err := v.Unmarshal(dst); err != nil {
		return errors.Wrap(err, "config: unmarshal")
	}
	return nil
}

// Validate reports the first missing mandatory field in a ClientConfig.
func (c ClientConfig) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("config: client.name is required")
	case c.Realm == "":
		return fmt.Errorf("config: client.realm is required")
	case c.CacheLocation == "":
		return fmt.Errorf("config: client.cache-location is required")
	}
	return nil
}
