// Package keys manages ed25519 signing identities for wallet operations.
package keys

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"solana-txkit/internal/config"
)

// Key errors.
var (
	// ErrMissingCredential is returned when no secret is available from
	// the argument or the configuration source.
	ErrMissingCredential = errors.New("private key must be provided or set in " + config.KeyPrivateKey)

	// ErrInvalidKeyFormat is returned when the secret fails base58
	// decoding or has the wrong length.
	ErrInvalidKeyFormat = errors.New("invalid key format")
)

// Keypair holds an ed25519 signing identity. The secret never leaves the
// struct except through ExportBase58.
type Keypair struct {
	priv solana.PrivateKey
}

// Load decodes a base58-encoded 64-byte secret into a Keypair. When secret
// is empty it is read from the configuration source under
// config.KeyPrivateKey.
func Load(secret string, src config.Source) (*Keypair, error) {
	if secret == "" {
		if src != nil {
			secret, _ = src.Lookup(config.KeyPrivateKey)
		}
		if secret == "" {
			return nil, ErrMissingCredential
		}
	}

	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base58: %v", ErrInvalidKeyFormat, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d",
			ErrInvalidKeyFormat, ed25519.PrivateKeySize, len(raw))
	}

	return &Keypair{priv: solana.PrivateKey(raw)}, nil
}

// Generate creates a fresh random Keypair.
func Generate() *Keypair {
	return &Keypair{priv: solana.NewWallet().PrivateKey}
}

// PublicKey returns the derived public key.
func (k *Keypair) PublicKey() solana.PublicKey {
	return k.priv.PublicKey()
}

// String returns the base58 public key. The secret is never printed.
func (k *Keypair) String() string {
	return k.priv.PublicKey().String()
}

// ExportBase58 returns the raw secret encoded as base58.
//
// The output is a credential: callers must treat it like the private key
// it is.
func (k *Keypair) ExportBase58() string {
	return base58.Encode(k.priv)
}

// PrivateKey returns the raw private key for signing. Credential-sensitive:
// handle like ExportBase58 output.
func (k *Keypair) PrivateKey() solana.PrivateKey {
	return k.priv
}

// Sign signs message with the keypair. Deterministic per (key, message).
func (k *Keypair) Sign(message []byte) (solana.Signature, error) {
	return k.priv.Sign(message)
}

// Verify reports whether sig is a valid signature of message by pub.
func Verify(pub solana.PublicKey, message []byte, sig solana.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, sig[:])
}

// IsOnCurve reports whether pub is a valid ed25519 curve point. Program
// derived addresses are off-curve and cannot sign.
func IsOnCurve(pub solana.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pub[:])
	return err == nil
}
