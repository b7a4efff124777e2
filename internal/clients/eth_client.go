package clients

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/internal/services/snapshot"
	"github.com/vadiminshakov/icofund/pkg/retrier"
)

const (
	defaultReceiptPollInterval = 2 * time.Second
	defaultLogPollInterval     = 4 * time.Second
)

// EthOptions tunes the node client.
type EthOptions struct {
	// Retries for idempotent reads. Transactions are never resent.
	Retries             int
	ReceiptPollInterval time.Duration
	LogPollInterval     time.Duration
}

// EthClient JSON-RPC access to an Ethereum node.
type EthClient struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	retrier *retrier.Retrier
	logger  *zap.Logger

	receiptPoll time.Duration
	logPoll     time.Duration

	chainMu sync.Mutex
	chainID *big.Int
}

// DialEth connects to the node at url (http, ws or ipc).
func DialEth(ctx context.Context, url string, opts EthOptions, logger *zap.Logger) (*EthClient, error) {
	if url == "" {
		return nil, errors.New("rpc url is required")
	}

	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}

	return NewEthClient(rc, opts, logger), nil
}

// NewEthClient wraps an established RPC connection.
func NewEthClient(rc *rpc.Client, opts EthOptions, logger *zap.Logger) *EthClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ReceiptPollInterval <= 0 {
		opts.ReceiptPollInterval = defaultReceiptPollInterval
	}
	if opts.LogPollInterval <= 0 {
		opts.LogPollInterval = defaultLogPollInterval
	}

	c := &EthClient{
		rpc:         rc,
		eth:         ethclient.NewClient(rc),
		logger:      logger,
		receiptPoll: opts.ReceiptPollInterval,
		logPoll:     opts.LogPollInterval,
	}
	c.retrier = retrier.New(
		retrier.WithMaxRetries(opts.Retries),
		retrier.WithRetryIf(isTransient),
		retrier.WithOnRetry(func(attempt int, err error) {
			c.logger.Warn("retrying rpc call", zap.Int("attempt", attempt), zap.Error(err))
		}),
	)

	return c
}

// Close the underlying connection.
func (c *EthClient) Close() {
	c.rpc.Close()
}

// BlockNumber current head height.
func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return retrier.DoWithData(c.retrier, ctx, c.eth.BlockNumber)
}

// NetworkID node network id, used to pick well-known deployments.
func (c *EthClient) NetworkID(ctx context.Context) (uint64, error) {
	id, err := retrier.DoWithData(c.retrier, ctx, c.eth.NetworkID)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

// ChainID replay-protection id used for signing, cached after the first call.
func (c *EthClient) ChainID(ctx context.Context) (*big.Int, error) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()

	if c.chainID != nil {
		return c.chainID, nil
	}
	id, err := retrier.DoWithData(c.retrier, ctx, c.eth.ChainID)
	if err != nil {
		return nil, errors.Wrap(err, "fetch chain id")
	}
	c.chainID = id
	return id, nil
}

// CheckHeight fails when the node cannot serve state at height.
func (c *EthClient) CheckHeight(ctx context.Context, height uint64) error {
	head, err := c.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if height > head {
		return errors.Errorf("block %d is ahead of head %d", height, head)
	}

	_, err = retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (*big.Int, error) {
		return c.eth.BalanceAt(ctx, common.Address{}, new(big.Int).SetUint64(height))
	})
	return err
}

// CallAt single eth_call at height; nil height means latest.
func (c *EthClient) CallAt(ctx context.Context, to common.Address, data []byte, height *uint64) ([]byte, error) {
	var block *big.Int
	if height != nil {
		block = new(big.Int).SetUint64(*height)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}

	return retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]byte, error) {
		return c.eth.CallContract(ctx, msg, block)
	})
}

// BatchCall sends all calls pinned to height in one JSON-RPC batch.
// A transport failure fails the whole batch; a call error is reported per result.
func (c *EthClient) BatchCall(ctx context.Context, height uint64, calls []snapshot.Call) ([]snapshot.Result, error) {
	block := hexutil.EncodeUint64(height)
	elems := make([]rpc.BatchElem, len(calls))
	outs := make([]hexutil.Bytes, len(calls))
	for i, call := range calls {
		elems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args:   []any{callArg(call.To, call.Data), block},
			Result: &outs[i],
		}
	}

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		for i := range elems {
			elems[i].Error = nil
		}
		return c.rpc.BatchCallContext(ctx, elems)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "eth_call batch of %d at block %d", len(calls), height)
	}

	results := make([]snapshot.Result, len(calls))
	for i, elem := range elems {
		if elem.Error != nil {
			results[i] = snapshot.Result{Err: elem.Error}
			continue
		}
		results[i] = snapshot.Result{Data: outs[i]}
	}

	return results, nil
}

func callArg(to common.Address, data []byte) map[string]any {
	return map[string]any{
		"to":    to,
		"data":  hexutil.Bytes(data),
		"input": hexutil.Bytes(data),
	}
}
