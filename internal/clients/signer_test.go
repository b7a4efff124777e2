package clients

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func writeKeystore(t *testing.T, dir, password string) common.Address {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	addr := crypto.PubkeyToAddress(key.PublicKey)
	blob, err := keystore.EncryptKey(&keystore.Key{Id: uuid.New(), Address: addr, PrivateKey: key},
		password, keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "UTC--key.json"), blob, 0o600))
	return addr
}

func TestSignerFromHex(t *testing.T) {
	withPrefix, err := SignerFromHex("0x" + testKeyHex)
	require.NoError(t, err)
	bare, err := SignerFromHex(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, withPrefix.Address(), bare.Address())

	_, err = SignerFromHex("0xzz")
	assert.Error(t, err)
}

func TestSignerFromKeystore(t *testing.T) {
	dir := t.TempDir()
	addr := writeKeystore(t, dir, "secret")

	t.Run("directory with one key", func(t *testing.T) {
		s, err := SignerFromKeystore(dir, "secret")
		require.NoError(t, err)
		assert.Equal(t, addr, s.Address())
	})

	t.Run("explicit file", func(t *testing.T) {
		s, err := SignerFromKeystore(filepath.Join(dir, "UTC--key.json"), "secret")
		require.NoError(t, err)
		assert.Equal(t, addr, s.Address())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := SignerFromKeystore(dir, "nope")
		assert.Error(t, err)
	})

	t.Run("ambiguous directory", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))
		_, err := SignerFromKeystore(dir, "secret")
		assert.Error(t, err)
	})
}

func TestKeySigner_SignTx(t *testing.T) {
	s, err := SignerFromHex(testKeyHex)
	require.NoError(t, err)

	chainID := big.NewInt(1337)
	to := common.HexToAddress("0x1c0")
	tx := types.NewTx(&types.DynamicFeeTx{ChainID: chainID, Nonce: 1, Gas: 21000, To: &to,
		GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(2), Value: big.NewInt(0)})

	signed, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), from)
}
