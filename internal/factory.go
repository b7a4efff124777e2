// Package internal wires configuration, node client, contracts and services into a workflow runner.
package internal

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/config"
	"github.com/vadiminshakov/icofund/internal/clients"
	"github.com/vadiminshakov/icofund/internal/contracts"
	"github.com/vadiminshakov/icofund/internal/domain"
	"github.com/vadiminshakov/icofund/internal/services/conditioning"
	"github.com/vadiminshakov/icofund/internal/services/funding"
	"github.com/vadiminshakov/icofund/internal/services/pricer"
	"github.com/vadiminshakov/icofund/internal/services/snapshot"
	"github.com/vadiminshakov/icofund/internal/services/wait"
	"github.com/vadiminshakov/icofund/internal/services/workflow"
	"github.com/vadiminshakov/icofund/internal/storage/journal"
)

// App runtime of one command invocation.
type App struct {
	Config    config.Config
	Addresses contracts.Addresses
	Runner    *workflow.Runner

	client  *clients.EthClient
	journal *journal.WALStore
	logger  *zap.Logger
}

// NewApp dials the node, resolves contract addresses and builds the runner.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := clients.DialEth(ctx, cfg.RPCURL, clients.EthOptions{
		Retries:             cfg.RPCRetries,
		ReceiptPollInterval: cfg.ReceiptPollInterval,
		LogPollInterval:     cfg.LogPollInterval,
	}, logger)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, client: client, logger: logger}
	if err := app.build(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (a *App) build(ctx context.Context) error {
	addrs, err := resolveAddresses(ctx, a.client, a.Config.Addresses, a.Config.Deployments, a.logger)
	if err != nil {
		return err
	}
	a.Addresses = addrs

	ico := clients.NewICO(a.client.Bind("ICO", addrs.ICO, contracts.ICOABI))
	scm := clients.NewToken(a.client.Bind("SCM", addrs.SCM, contracts.ERC20ABI), domain.SCM)
	weth := clients.NewToken(a.client.Bind("WETH", addrs.WETH, contracts.WETH9ABI), domain.Ether)

	seq, err := conditioning.NewSequence(weth, a.Config.Wrap, a.Config.Approve, a.logger)
	if err != nil {
		return err
	}

	deps := workflow.Deps{
		Snapshots:    snapshot.New(a.client, a.Config.BatchSize, a.logger),
		ICO:          ico,
		SCM:          scm,
		WETH:         weth,
		Conditioning: seq,
		Funding:      funding.NewExecutor(ico, a.logger),
		Wait:         wait.NewEngine(ico, wait.SystemClock(), a.logger),
		QuoteSymbol:  a.Config.Quote,
		Logger:       a.logger,
	}

	if a.Config.JournalDir != "" {
		store, err := journal.NewWALStore(a.Config.JournalDir)
		if err != nil {
			return err
		}
		a.journal = store
		deps.Journal = store
	}

	if a.Config.Quote != "" {
		deps.Pricer = pricer.NewBinancePricer(pricer.NewBinanceClient(a.Config.PriceURL))
	}

	a.Runner, err = workflow.NewRunner(deps)
	return err
}

// resolveAddresses applies overrides and the configured deployment table, then reads SCM and WETH
// from the ICO contract unless they were set explicitly.
func resolveAddresses(ctx context.Context, client *clients.EthClient, overrides contracts.Addresses,
	deployments map[uint64]contracts.Addresses, logger *zap.Logger) (contracts.Addresses, error) {
	addrs, err := contracts.Resolve(ctx, client, overrides, deployments)
	if err != nil {
		return contracts.Addresses{}, err
	}

	if overrides.SCM == (common.Address{}) || overrides.WETH == (common.Address{}) {
		ico := clients.NewICO(client.Bind("ICO", addrs.ICO, contracts.ICOABI))
		scm, weth, err := ico.TokenAddresses(ctx)
		switch {
		case err != nil && (addrs.SCM == (common.Address{}) || addrs.WETH == (common.Address{})):
			return contracts.Addresses{}, errors.Wrap(err, "read token addresses from ICO")
		case err != nil:
			logger.Warn("failed to read token addresses from ICO, using known addresses", zap.Error(err))
		default:
			if overrides.SCM == (common.Address{}) {
				addrs.SCM = scm
			}
			if overrides.WETH == (common.Address{}) {
				if addrs.WETH != (common.Address{}) && addrs.WETH != weth {
					logger.Warn("ICO uses a non-canonical WETH",
						zap.String("ico_weth", weth.Hex()), zap.String("known_weth", addrs.WETH.Hex()))
				}
				addrs.WETH = weth
			}
		}
	}

	logger.Debug("contracts resolved",
		zap.String("ico", addrs.ICO.Hex()),
		zap.String("scm", addrs.SCM.Hex()),
		zap.String("weth", addrs.WETH.Hex()))

	return addrs, nil
}

// Journal step journal, nil when disabled.
func (a *App) Journal() *journal.WALStore {
	return a.journal
}

// Close releases the node connection and the journal.
func (a *App) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("failed to close journal", zap.Error(err))
		}
	}
	a.client.Close()
}

// PasswordPrompt asks the operator for the keystore password.
type PasswordPrompt func() (string, error)

// NewSigner loads the transaction signer: a raw private key wins over the keystore.
// prompt is used when the keystore password is not configured.
func NewSigner(cfg config.Config, prompt PasswordPrompt) (domain.Signer, error) {
	if cfg.PrivateKey != "" {
		return clients.SignerFromHex(cfg.PrivateKey)
	}
	if cfg.Keystore == "" {
		return nil, errors.Errorf("no signer configured; set %s or %s", config.EnvKeystore, config.EnvPrivateKey)
	}

	password := cfg.Password
	if password == "" && prompt != nil {
		var err error
		if password, err = prompt(); err != nil {
			return nil, errors.Wrap(err, "read keystore password")
		}
	}

	return clients.SignerFromKeystore(cfg.Keystore, password)
}
