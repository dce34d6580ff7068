package jwtx

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aussiebroadwan/agency/pkg/cryptox"
)

// Supported JWT signing algorithms
const (
	AlgorithmEdDSA = "EdDSA"
	AlgorithmHS256 = "HS256"
)

// KeyManager owns the signing keys of an instance and the matching Verifier.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	algorithm string
	signers   []Signer
	mu        sync.RWMutex
}

// KeyManagerOptions configures the KeyManager for a specific use case.
type KeyManagerOptions struct {
	// Algorithm specifies which signing algorithm to use: "EdDSA" or "HS256".
	Algorithm string

	// Issuer is the issuer claim (iss) that will be validated in tokens.
	Issuer string

	// NumKeys is how many ephemeral EdDSA keys to generate. Defaults to 1,
	// capped at 10. Ignored for file and secret backed keys.
	NumKeys int

	// Leeway tolerated on exp/nbf.
	Leeway time.Duration

	// Now supplies verification time; nil means time.Now.
	Now func() time.Time
}

// NewEphemeralKeyManager creates a KeyManager with freshly generated EdDSA
// keys that only exist in memory. Every token becomes invalid when the process
// restarts, which suits single instance and test deployments.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}
	if opts.Algorithm != "" && opts.Algorithm != AlgorithmEdDSA {
		return nil, fmt.Errorf("jwtx: ephemeral keys require %s, got %q", AlgorithmEdDSA, opts.Algorithm)
	}

	numKeys := min(max(opts.NumKeys, 1), 10)

	signers := make([]Signer, 0, numKeys)
	for i := range numKeys {
		keyID, err := generateRandomKeyID()
		if err != nil {
			return nil, err
		}

		pemBytes, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
		}

		signer, err := NewSignerEdDSA(keyID, pemBytes)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}

	return newKeyManager(AlgorithmEdDSA, opts, signers)
}

// NewKeyManagerFromPEM creates a KeyManager around one Ed25519 PKCS8 key.
// The kid is derived from the key so every instance loading the same file
// agrees on it.
func NewKeyManagerFromPEM(opts KeyManagerOptions, pemKey []byte) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	kid := "agency-" + cryptox.FingerprintToken(string(pemKey))[:16]
	signer, err := NewSignerEdDSA(kid, pemKey)
	if err != nil {
		return nil, err
	}
	return newKeyManager(AlgorithmEdDSA, opts, []Signer{signer})
}

// NewHS256KeyManager creates a KeyManager around a shared HMAC secret.
func NewHS256KeyManager(opts KeyManagerOptions, secret []byte) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	kid := "agency-" + cryptox.FingerprintToken(string(secret))[:16]
	signer, err := NewSignerHS256(kid, secret)
	if err != nil {
		return nil, err
	}
	return newKeyManager(AlgorithmHS256, opts, []Signer{signer})
}

func newKeyManager(alg string, opts KeyManagerOptions, signers []Signer) (*KeyManager, error) {
	keyset := NewKeySet()
	for i, s := range signers {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("jwtx: signer %d invalid: %w", i+1, err)
		}
		if err := keyset.AddSigner(s); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add signer %d to keyset: %w", i+1, err)
		}
	}

	return &KeyManager{
		Verifier: NewVerifier(keyset, VerifyOptions{
			Issuer: opts.Issuer,
			Leeway: opts.Leeway,
			Now:    opts.Now,
		}),
		KeySet:    keyset,
		algorithm: alg,
		signers:   signers,
	}, nil
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// GetSigner returns a randomly selected signer from the available signing keys.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.IntN(len(km.signers))]
	}
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// generateRandomKeyID creates a random key identifier using cryptographic entropy.
func generateRandomKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to generate random key ID: %w", err)
	}
	return "agency-" + token, nil
}
