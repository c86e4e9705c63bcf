package aptos

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// ed25519 single-signer authentication scheme byte.
const ed25519Scheme = 0x00

// Credential is a wallet secret as it shows up in config: either a bare hex
// key or a structured record. It is resolved once by NewAccount.
type Credential interface {
	privateKeyHex() string
	pinnedAddress() string
}

// RawKey is a hex-encoded ed25519 private key (seed), with or without 0x or
// the ed25519-priv- prefix.
type RawKey string

func (k RawKey) privateKeyHex() string { return string(k) }
func (k RawKey) pinnedAddress() string { return "" }

// KeyRecord is a structured wallet entry. Address is only needed when the
// account's authentication key was rotated away from the key's default.
type KeyRecord struct {
	Private string `yaml:"private" json:"private"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
}

func (r KeyRecord) privateKeyHex() string { return r.Private }
func (r KeyRecord) pinnedAddress() string { return r.Address }

// Account is an ed25519 single-key Aptos account. It implements ledger.Signer.
type Account struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
}

func NewAccount(cred Credential) (*Account, error) {
	if cred == nil {
		return nil, fmt.Errorf("wallet credential required")
	}
	seed, err := decodePrivateKey(cred.privateKeyHex())
	if err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	addr := AuthKey(pub)
	if pinned := strings.TrimSpace(cred.pinnedAddress()); pinned != "" {
		addr, err = NormalizeAddress(pinned)
		if err != nil {
			return nil, fmt.Errorf("wallet address: %w", err)
		}
	}
	return &Account{priv: priv, pub: pub, address: addr}, nil
}

func (a *Account) Address() string   { return a.address }
func (a *Account) PublicKey() []byte { return append([]byte(nil), a.pub...) }

func (a *Account) Sign(message []byte) ([]byte, error) {
	if len(message) == 0 {
		return nil, fmt.Errorf("empty signing message")
	}
	return ed25519.Sign(a.priv, message), nil
}

// AuthKey derives the default account address for an ed25519 public key:
// sha3-256(pubkey || 0x00).
func AuthKey(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, len(pub)+1)
	buf = append(buf, pub...)
	buf = append(buf, ed25519Scheme)
	sum := sha3.Sum256(buf)
	return hexutil.Encode(sum[:])
}

func decodePrivateKey(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "ed25519-priv-")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("private key missing")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	switch len(b) {
	case ed25519.SeedSize:
		return b, nil
	case ed25519.PrivateKeySize:
		return b[:ed25519.SeedSize], nil
	default:
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.SeedSize, len(b))
	}
}

// WatchOnly is an address without a key. It satisfies ledger.Signer for
// read-only use and refuses to sign.
type WatchOnly string

func NewWatchOnly(address string) (WatchOnly, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	return WatchOnly(addr), nil
}

func (w WatchOnly) Address() string   { return string(w) }
func (w WatchOnly) PublicKey() []byte { return nil }

func (w WatchOnly) Sign([]byte) ([]byte, error) {
	return nil, fmt.Errorf("account %s is watch-only", string(w))
}
