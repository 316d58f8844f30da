package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// #region signer-interface
// Signer produces a detachable signature and the public key that verifies
// it. The packet layer treats this as an opaque service.
type Signer interface {
	Sign(message []byte) (sig, pub []byte, err error)
}

// #endregion signer-interface

// #region ed25519
// Ed25519Signer signs with a raw Ed25519 private key.
type Ed25519Signer struct {
	key ed25519.PrivateKey
}

// NewEd25519Signer wraps a private key. Accepts either a 64-byte expanded
// key or a 32-byte seed.
func NewEd25519Signer(key []byte) (*Ed25519Signer, error) {
	switch len(key) {
	case ed25519.PrivateKeySize:
		return &Ed25519Signer{key: ed25519.PrivateKey(key)}, nil
	case ed25519.SeedSize:
		return &Ed25519Signer{key: ed25519.NewKeyFromSeed(key)}, nil
	}
	return nil, fmt.Errorf("ed25519 key: bad length %d", len(key))
}

// GenerateSigner creates a signer with a fresh random keypair.
func GenerateSigner() (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ed25519 keygen: %w", err)
	}
	return &Ed25519Signer{key: priv}, nil
}

// Sign returns the signature and raw public key for message.
func (s *Ed25519Signer) Sign(message []byte) ([]byte, []byte, error) {
	sig := ed25519.Sign(s.key, message)
	pub := s.key.Public().(ed25519.PublicKey)
	return sig, []byte(pub), nil
}

// #endregion ed25519

// #region verify
// Verify checks sig over message against a raw public key. Malformed key or
// signature bytes yield false, never a panic or an error.
func Verify(message, sig, pub []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}

// #endregion verify
