package jwtx

import (
	"crypto/ed25519"
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

type verificationKey struct {
	alg string
	key any // ed25519.PublicKey | []byte
}

// KeySet holds the verification keys for this instance, indexed by kid.
// It's safe for concurrent use.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]verificationKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]verificationKey)}
}

// AddSigner registers the verification half of a Signer.
func (k *KeySet) AddSigner(s Signer) error {
	switch signer := s.(type) {
	case *EdDSASigner:
		k.put(signer.KID(), AlgorithmEdDSA, signer.Public())
	case *HS256Signer:
		k.put(signer.KID(), AlgorithmHS256, signer.secret)
	default:
		return errors.New("jwtx: unsupported signer type")
	}
	return nil
}

// AddEd25519 registers a bare Ed25519 public key.
func (k *KeySet) AddEd25519(kid string, pub ed25519.PublicKey) error {
	if len(pub) != ed25519.PublicKeySize {
		return errors.New("jwtx: invalid Ed25519 public key size")
	}
	k.put(kid, AlgorithmEdDSA, pub)
	return nil
}

func (k *KeySet) put(kid, alg string, key any) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[kid] = verificationKey{alg: alg, key: key}
}

// Get returns the algorithm and key registered for kid.
func (k *KeySet) Get(kid string) (string, any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if vk, ok := k.keys[kid]; ok {
		return vk.alg, vk.key, nil
	}
	return "", nil, ErrNoKey
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}
