package client

import (
	"encoding/asn1"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/kerbgo/kerberos/iana/asnapptag"
	"github.com/kerbgo/kerberos/messages"
	"github.com/kerbgo/kerberos/types"
)

// CacheDir persists DER-encoded tickets and keys under one directory,
// per spec.md §6: files as_rep, as_rep_enc_part, tgs_rep, tgs_rep_enc_part,
// subkey, seq_number, key, with a sub-directory per ticket keyed by its
// authtime timestamp so a client can hold several tickets at once.
type CacheDir struct {
	Root string
}

func NewCacheDir(root string) *CacheDir {
	return &CacheDir{Root: root}
}

// ticketDir returns (creating if needed) the sub-directory for the ticket
// whose EncKdcRepPart carries authTime.
func (c *CacheDir) ticketDir(authTime types.KerberosTime) (string, error) {
	dir := filepath.Join(c.Root, strconv.FormatInt(authTime.Unix(), 10))
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", errors.Wrapf(err, "client: creating cache directory %s", dir)
	}
	return dir, nil
}

func writeFile(dir, name string, b []byte) error {
	return errors.Wrapf(os.WriteFile(filepath.Join(dir, name), b, 0600), "client: writing %s", name)
}

func readFile(dir, name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	return b, errors.Wrapf(err, "client: reading %s", name)
}

// SaveASTicket persists the AS-REP and its decrypted enc-part under a new
// sub-directory keyed by the ticket's authtime. It does not write the
// client's long-term key; SaveKey does that.
func (c *CacheDir) SaveASTicket(rep messages.ASRep, enc messages.EncKdcRepPart) error {
	dir, err := c.ticketDir(enc.AuthTime)
	if err != nil {
		return err
	}
	repBytes, err := rep.Marshal()
	if err != nil {
		return err
	}
	if err := writeFile(dir, "as_rep", repBytes); err != nil {
		return err
	}
	encBytes, err := enc.MarshalAs(asnapptag.EncASRepPart)
	if err != nil {
		return err
	}
	return writeFile(dir, "as_rep_enc_part", encBytes)
}

// SaveTGSTicket persists a TGS-REP and its decrypted enc-part, plus the
// authenticator subkey and sequence number used to obtain it, if any.
func (c *CacheDir) SaveTGSTicket(rep messages.TGSRep, enc messages.EncKdcRepPart, subkey *types.EncryptionKey, seqNumber *int) error {
	dir, err := c.ticketDir(enc.AuthTime)
	if err != nil {
		return err
	}
	repBytes, err := rep.Marshal()
	if err != nil {
		return err
	}
	if err := writeFile(dir, "tgs_rep", repBytes); err != nil {
		return err
	}
	encBytes, err := enc.MarshalAs(asnapptag.EncTGSRepPart)
	if err != nil {
		return err
	}
	if err := writeFile(dir, "tgs_rep_enc_part", encBytes); err != nil {
		return err
	}
	if subkey != nil {
		b, err := asn1.Marshal(*subkey)
		if err != nil {
			return err
		}
		if err := writeFile(dir, "subkey", b); err != nil {
			return err
		}
	}
	if seqNumber != nil {
		return writeFile(dir, "seq_number", []byte(strconv.Itoa(*seqNumber)))
	}
	return nil
}

// SaveKey persists the client's own long-term key at the cache root (not
// per-ticket, since it outlives any one ticket).
func (c *CacheDir) SaveKey(key types.EncryptionKey) error {
	if err := os.MkdirAll(c.Root, 0700); err != nil {
		return errors.Wrapf(err, "client: creating cache directory %s", c.Root)
	}
	b, err := asn1.Marshal(key)
	if err != nil {
		return err
	}
	return writeFile(c.Root, "key", b)
}

func (c *CacheDir) LoadKey() (types.EncryptionKey, error) {
	b, err := readFile(c.Root, "key")
	if err != nil {
		return types.EncryptionKey{}, err
	}
	var k types.EncryptionKey
	_, err = asn1.Unmarshal(b, &k)
	return k, err
}

// ListTickets enumerates the authtime-keyed sub-directories under Root, the
// timestamps list-ticket reports.
func (c *CacheDir) ListTickets() ([]int64, error) {
	entries, err := os.ReadDir(c.Root)
	if err != nil {
		return nil, errors.Wrap(err, "client: listing cache directory")
	}
	var timestamps []int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ts, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps, nil
}

// LoadASTicket reads back the AS-REP and decrypted enc-part saved under the
// sub-directory for authTime.
func (c *CacheDir) LoadASTicket(authTime int64) (messages.ASRep, messages.EncKdcRepPart, error) {
	dir := filepath.Join(c.Root, strconv.FormatInt(authTime, 10))
	repBytes, err := readFile(dir, "as_rep")
	if err != nil {
		return messages.ASRep{}, messages.EncKdcRepPart{}, err
	}
	rep, err := messages.UnmarshalASRep(repBytes)
	if err != nil {
		return messages.ASRep{}, messages.EncKdcRepPart{}, err
	}
	encBytes, err := readFile(dir, "as_rep_enc_part")
	if err != nil {
		return messages.ASRep{}, messages.EncKdcRepPart{}, err
	}
	enc, err := messages.UnmarshalEncKdcRepPart(encBytes)
	return rep, enc, err
}

// LoadTGSTicket is LoadASTicket's TGS-REP counterpart.
func (c *CacheDir) LoadTGSTicket(authTime int64) (messages.TGSRep, messages.EncKdcRepPart, error) {
	dir := filepath.Join(c.Root, strconv.FormatInt(authTime, 10))
	repBytes, err := readFile(dir, "tgs_rep")
	if err != nil {
		return messages.TGSRep{}, messages.EncKdcRepPart{}, err
	}
	rep, err := messages.UnmarshalTGSRep(repBytes)
	if err != nil {
		return messages.TGSRep{}, messages.EncKdcRepPart{}, err
	}
	encBytes, err := readFile(dir, "tgs_rep_enc_part")
	if err != nil {
		return messages.TGSRep{}, messages.EncKdcRepPart{}, err
	}
	enc, err := messages.UnmarshalEncKdcRepPart(encBytes)
	return rep, enc, err
}
