// Package keys generates and decodes custodial signing key material.
// Generation has no persistence side effects; callers must persist the
// wallet before any profile that references it.
package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
)

// Keypair is a freshly generated address plus its encoded secret. The secret
// encoding is reversible text: hex for EVM, base58 for Solana.
type Keypair struct {
	Address string
	Secret  string
}

// GenerateEVM produces a new secp256k1 keypair with its 0x address.
func GenerateEVM() (Keypair, error) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return Keypair{}, scouterr.Wrap(scouterr.KindFatal, "generate signing key", err)
	}
	return Keypair{
		Address: crypto.PubkeyToAddress(pk.PublicKey).Hex(),
		Secret:  hex.EncodeToString(crypto.FromECDSA(pk)),
	}, nil
}

// GenerateSolana produces a new ed25519 keypair. The address is the base58
// public key; the secret is the base58 64-byte keypair (seed followed by
// public key), matching the chain's native wallet encoding.
func GenerateSolana() (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, scouterr.Wrap(scouterr.KindFatal, "generate signing key", err)
	}
	return Keypair{
		Address: base58.Encode(pub),
		Secret:  base58.Encode(priv),
	}, nil
}

// DecodeEVM reverses the stored hex encoding into a usable signing key.
func DecodeEVM(secret string) (*ecdsa.PrivateKey, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(secret), "0x")
	pk, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.KindFatal, "invalid key encoding", err)
	}
	return pk, nil
}

// DecodeSolana reverses the stored base58 encoding into a usable signing
// key. Both the 64-byte keypair form and the bare 32-byte seed are accepted.
func DecodeSolana(secret string) (ed25519.PrivateKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(secret))
	if err != nil {
		return nil, scouterr.Wrap(scouterr.KindFatal, "invalid key encoding", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	default:
		return nil, scouterr.Newf(scouterr.KindFatal, "invalid key encoding: %d bytes", len(raw))
	}
}

// SolanaAddress derives the base58 address for a decoded Solana key.
func SolanaAddress(priv ed25519.PrivateKey) string {
	return base58.Encode(priv.Public().(ed25519.PublicKey))
}

// Zero overwrites a transient secret buffer after signing.
func Zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
