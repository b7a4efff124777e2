package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/config"
	"github.com/vadiminshakov/icofund/internal"
	"github.com/vadiminshakov/icofund/internal/domain"
	"github.com/vadiminshakov/icofund/internal/storage/journal"
)

func testSession(t *testing.T) (*session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s := newSession(&out)
	s.newApp = func(context.Context, config.Config, *zap.Logger) (*internal.App, error) {
		t.Fatal("node must not be dialed")
		return nil, nil
	}
	s.confirm = func(string, string) (bool, error) {
		t.Fatal("unexpected prompt")
		return false, nil
	}
	t.Cleanup(s.close)
	return s, &out
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "icofund.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(s *session, args ...string) error {
	cmd := s.rootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestHistory_ListsJournal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	store, err := journal.NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(journal.Entry{RunID: "3f2a9c1e-aaaa", Workflow: "fund", Step: "wrap", Status: journal.StatusConfirmed, TxHash: common.HexToHash("0xd1").Hex()}))
	require.NoError(t, store.Append(journal.Entry{RunID: "77777777-bbbb", Workflow: "claim", Step: "claim", Status: journal.StatusFailed, Detail: "execution reverted"}))
	require.NoError(t, store.Close())

	cfgPath := writeConfig(t, "journal_dir: "+dir+"\n")

	s, out := testSession(t)
	require.NoError(t, run(s, "--config", cfgPath, "history"))
	assert.Contains(t, out.String(), "3f2a9c1e")
	assert.Contains(t, out.String(), "wrap")
	assert.Contains(t, out.String(), "execution reverted")

	s, out = testSession(t)
	require.NoError(t, run(s, "--config", cfgPath, "history", "7777"))
	assert.Contains(t, out.String(), "claim")
	assert.NotContains(t, out.String(), "wrap")
}

func TestFund_InvalidAmountFailsBeforeDialing(t *testing.T) {
	s, _ := testSession(t)

	err := run(s, "ico", "fund", "1.5potatoes")
	var parseErr *domain.ParseError
	require.True(t, errors.As(err, &parseErr), "got %v", err)

	s, _ = testSession(t)
	require.EqualError(t, run(s, "ico", "fund", "0"), "amount must be positive")
}

func TestInvalidAddressArgument(t *testing.T) {
	s, _ := testSession(t)
	err := run(s, "weth", "allowance", "0x12", "0x1111111111111111111111111111111111111111")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

func TestBadLogLevelFlag(t *testing.T) {
	s, _ := testSession(t)
	require.Error(t, run(s, "--log-level", "loud", "history"))
}

func TestConfirm(t *testing.T) {
	s := newSession(&bytes.Buffer{})

	s.opts.yes = true
	s.confirm = func(string, string) (bool, error) { return false, nil }
	require.NoError(t, s.Confirm("Send?", ""))

	s.opts.yes = false
	require.ErrorIs(t, s.Confirm("Send?", ""), ErrCancelled)

	s.confirm = func(string, string) (bool, error) { return true, nil }
	require.NoError(t, s.Confirm("Send?", ""))
}

func TestCommandTree(t *testing.T) {
	root := newSession(&bytes.Buffer{}).rootCmd()

	find := func(path ...string) bool {
		cmd, _, err := root.Find(path)
		return err == nil && cmd.Name() == path[len(path)-1]
	}

	for _, sub := range []string{"info", "balance", "fund", "claim", "wait"} {
		assert.True(t, find("ico", sub), "ico %s", sub)
	}
	for _, sub := range []string{"balance", "transfer", "allowance", "approve", "deposit", "withdraw"} {
		assert.True(t, find("weth", sub), "weth %s", sub)
	}
	assert.True(t, find("scm", "approve"))
	assert.False(t, find("scm", "deposit"))
}

func amount(t *testing.T, c *domain.Currency, s string) domain.Amount {
	t.Helper()
	a, err := domain.ParseAmount(c, s)
	require.NoError(t, err)
	return a
}

func TestPrinter_Ledger(t *testing.T) {
	state := domain.LedgerState{
		Height:     120,
		Phase:      domain.PhaseOngoing,
		LeftEth:    amount(t, domain.Ether, "5eth"),
		LeftScm:    amount(t, domain.SCM, "500scm"),
		ICO:        common.HexToAddress("0x1"),
		CloseTime:  time.Unix(1700000000, 0),
		FinishTime: time.Unix(1700086400, 0),
	}

	var out bytes.Buffer
	newPrinter(&out).ledger(state, "12345.00 USDT")
	assert.Contains(t, out.String(), "State: Ongoing")
	assert.Contains(t, out.String(), "Left ETH: 5.000000000000000000eth (~12345.00 USDT)")
	assert.Contains(t, out.String(), "Left SCM: 500.000000000000000000scm")
	assert.NotContains(t, out.String(), "Close time")

	state.Phase = domain.PhaseFromCode(7)
	out.Reset()
	newPrinter(&out).ledger(state, "")
	assert.Contains(t, out.String(), "State: Unknown (7)")
	assert.Contains(t, out.String(), "Close time: "+time.Unix(1700000000, 0).Local().Format(timeLayout))
}

func TestPrinter_Report(t *testing.T) {
	report := domain.WorkflowReport{
		Steps: []domain.Step{
			domain.SkippedStep("wrap", "balance sufficient"),
			domain.SubmittedStep("fund", common.HexToHash("0xf0")),
		},
		Receipt: &domain.Receipt{
			Block:  9,
			Funded: amount(t, domain.Ether, "1eth"),
			Tokens: amount(t, domain.SCM, "100scm"),
		},
		Balances: []domain.Balance{{Label: "ICO balance", Amount: amount(t, domain.SCM, "100scm")}},
	}

	var out bytes.Buffer
	newPrinter(&out).report(report)
	assert.Contains(t, out.String(), "wrap: skipped (balance sufficient)")
	assert.Contains(t, out.String(), "fund: submitted tx "+common.HexToHash("0xf0").Hex())
	assert.Contains(t, out.String(), "Funded: 1.000000000000000000eth")
	assert.Contains(t, out.String(), "ICO balance: 100.000000000000000000scm")
}
