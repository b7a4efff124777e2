package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/icofund/internal/domain"
)

func envOf(vars map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "icofund.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, domain.WrapFull, cfg.Wrap)
	assert.Equal(t, domain.ApproveCeiling, cfg.Approve.Mode)
	assert.Equal(t, "10.000000000000000000eth", cfg.Approve.Ceiling.Format())
	assert.Equal(t, DefaultQuote, cfg.Quote)
	assert.Equal(t, common.Address{}, cfg.Addresses.ICO)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeYAML(t, `
rpc_url: http://node:8545
ico_address: "0x1111111111111111111111111111111111111111"
weth_address: "0x2222222222222222222222222222222222222222"
batch_size: 20
rpc_retries: 0
receipt_poll_interval: 500ms
wrap_policy: shortfall
approve_policy: exact
quote: ""
log_level: debug
`)
	env := envOf(map[string]string{
		EnvICO:      "0x3333333333333333333333333333333333333333",
		EnvPassword: "secret",
	})

	cfg, err := load(path, env)
	require.NoError(t, err)

	assert.Equal(t, "http://node:8545", cfg.RPCURL)
	assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), cfg.Addresses.ICO)
	assert.Equal(t, common.HexToAddress("0x2222222222222222222222222222222222222222"), cfg.Addresses.WETH)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 0, cfg.RPCRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.ReceiptPollInterval)
	assert.Equal(t, DefaultLogPollInterval, cfg.LogPollInterval)
	assert.Equal(t, domain.WrapShortfall, cfg.Wrap)
	assert.Equal(t, domain.ApproveExact, cfg.Approve.Mode)
	assert.Empty(t, cfg.Quote)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad address", yaml: "ico_address: nope\n"},
		{name: "bad duration", yaml: "log_poll_interval: soon\n"},
		{name: "bad wrap policy", yaml: "wrap_policy: half\n"},
		{name: "bad approve policy", yaml: "approve_policy: unlimited\n"},
		{name: "bad ceiling", yaml: "approve_ceiling: lots\n"},
		{name: "bad log level", yaml: "log_level: loud\n"},
		{name: "negative batch", yaml: "batch_size: -1\n"},
		{name: "bad env address", yaml: "", env: map[string]string{EnvSCM: "0x12"}},
		{name: "broken yaml", yaml: "rpc_url: [\n"},
		{name: "bad deployment address", yaml: "deployments:\n  1:\n    ico: nope\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(writeYAML(t, tt.yaml), envOf(tt.env))
			require.Error(t, err)
		})
	}
}

func TestLoad_Deployments(t *testing.T) {
	path := writeYAML(t, `
deployments:
  1:
    ico: "0x1111111111111111111111111111111111111111"
  5:
    ico: "0x4444444444444444444444444444444444444444"
    weth: "0x5555555555555555555555555555555555555555"
`)

	cfg, err := load(path, envOf(nil))
	require.NoError(t, err)

	require.Len(t, cfg.Deployments, 2)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), cfg.Deployments[1].ICO)
	assert.Equal(t, common.Address{}, cfg.Deployments[1].WETH)
	assert.Equal(t, common.HexToAddress("0x4444444444444444444444444444444444444444"), cfg.Deployments[5].ICO)
	assert.Equal(t, common.HexToAddress("0x5555555555555555555555555555555555555555"), cfg.Deployments[5].WETH)
	assert.Equal(t, common.Address{}, cfg.Addresses.ICO)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "absent.yaml"), envOf(nil))
	require.Error(t, err)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	quote := "USDC"
	require.NoError(t, WriteFile(path, File{
		RPCURL:     "http://localhost:7545",
		ICOAddress: "0x1111111111111111111111111111111111111111",
		Quote:      &quote,
	}))

	cfg, err := load(path, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7545", cfg.RPCURL)
	assert.Equal(t, "USDC", cfg.Quote)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), cfg.Addresses.ICO)
}

func TestApply_Overrides(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Apply(Overrides{RPCURL: "http://other:8545", LogLevel: "warn"}))
	assert.Equal(t, "http://other:8545", cfg.RPCURL)
	assert.Equal(t, "warn", cfg.LogLevel)

	require.Error(t, cfg.Apply(Overrides{LogLevel: "verbose"}))
}
