package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/agency/pkg/cryptox"
	"github.com/aussiebroadwan/agency/pkg/jwtx"
)

// InitKeys creates the KeyManager for the configured algorithm.
//
// Key sources:
//   - HS256: the shared GATE_SIGNING_SECRET. Every instance with the same
//     secret accepts the others' tokens.
//   - EdDSA with GATE_SIGNING_KEY_FILE: one Ed25519 key loaded from the file,
//     generated on first start. Tokens survive restarts.
//   - EdDSA without a key file: ephemeral keys held in memory. Every token
//     becomes invalid when the process restarts.
func InitKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
	}

	switch {
	case cfg.Algorithm == jwtx.AlgorithmHS256:
		km, err := jwtx.NewHS256KeyManager(opts, []byte(cfg.SigningSecret))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize HS256 key manager: %w", err)
		}
		logger.Info("signing with shared secret", "algorithm", km.Algorithm())
		return km, nil

	case cfg.SigningKeyFile != "":
		pemKey, err := cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key: %w", err)
		}
		km, err := jwtx.NewKeyManagerFromPEM(opts, pemKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize key manager: %w", err)
		}
		logger.Info("signing key loaded", "algorithm", km.Algorithm(), "path", cfg.SigningKeyFile)
		return km, nil

	default:
		km, err := jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}
		logger.Warn("using ephemeral signing keys, tokens will not survive a restart",
			"algorithm", km.Algorithm())
		return km, nil
	}
}
