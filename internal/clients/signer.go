package clients

import (
	"crypto/ecdsa"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// KeySigner signs transactions with an in-memory secp256k1 key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner wraps a private key.
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// SignerFromHex parses a hex private key, with or without 0x prefix.
func SignerFromHex(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return NewKeySigner(key), nil
}

// SignerFromKeystore decrypts a V3 keystore file. A directory must hold exactly one key file.
func SignerFromKeystore(path, password string) (*KeySigner, error) {
	file, err := keystoreFile(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "read keystore")
	}
	key, err := keystore.DecryptKey(raw, password)
	if err != nil {
		return nil, errors.Wrapf(err, "decrypt keystore %s", filepath.Base(file))
	}

	return NewKeySigner(key.PrivateKey), nil
}

func keystoreFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, "open keystore")
	}
	if !info.IsDir() {
		return path, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", errors.Wrap(err, "list keystore")
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) != 1 {
		return "", errors.Errorf("keystore %s holds %d key files, point to one of them", path, len(files))
	}
	return files[0], nil
}

// Address account controlled by the key.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignTx signs tx for chainID with the latest signer rules.
func (s *KeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}
