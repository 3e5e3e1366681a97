package cmd

import (
	"crypto/ed25519"
	"os"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana/token"
)

const keyFileMode = 0o600

// loadKey reads a base58 encoded private key from path.
func loadKey(path string) (ed25519.PrivateKey, error) {
	if len(path) == 0 {
		return nil, errors.New("key file is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading key file %s", path)
	}

	decoded, err := base58.Decode(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid key file %s", path)
	}
	if len(decoded) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid key length in %s: %d", path, len(decoded))
	}
	return ed25519.PrivateKey(decoded), nil
}

func saveKey(path string, key ed25519.PrivateKey) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("%s already exists", path)
	}
	return os.WriteFile(path, []byte(base58.Encode(key)+"\n"), keyFileMode)
}

// parseAddress accepts either a base58 address or the path of a key file.
func parseAddress(value string) (ed25519.PublicKey, error) {
	if decoded, err := base58.Decode(value); err == nil && len(decoded) == ed25519.PublicKeySize {
		return decoded, nil
	}

	key, err := loadKey(value)
	if err != nil {
		return nil, errors.Errorf("%s is neither an address nor a key file", value)
	}
	return publicKey(key), nil
}

func parseAmount(value string) (uint64, error) {
	amount, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid amount %s", value)
	}
	return amount, nil
}

func publicKey(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}

func tokenProgram(token2022 bool) ed25519.PublicKey {
	if token2022 {
		return token.Token2022ProgramKey
	}
	return token.ProgramKey
}
