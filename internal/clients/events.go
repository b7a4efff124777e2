package clients

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/pkg/retrier"
)

type logKey struct {
	block common.Hash
	index uint
}

// WatchLogs streams logs matching q from q.FromBlock on.
//
// Over websocket or ipc it subscribes and backfills past logs with eth_getLogs;
// when the node cannot push notifications it polls eth_getLogs on a ticker.
func (c *EthClient) WatchLogs(ctx context.Context, q ethereum.FilterQuery) (<-chan types.Log, event.Subscription, error) {
	out := make(chan types.Log, 16)

	live := make(chan types.Log, 16)
	liveQuery := q
	liveQuery.FromBlock, liveQuery.ToBlock = nil, nil

	sub, err := c.eth.SubscribeFilterLogs(ctx, liveQuery, live)
	if err != nil {
		c.logger.Debug("log subscription unavailable, polling", zap.Error(err))
		return out, c.pollLogs(ctx, q, out), nil
	}

	return out, event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()

		seen := make(map[logKey]struct{})
		past, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]types.Log, error) {
			return c.eth.FilterLogs(ctx, q)
		})
		if err != nil {
			return errors.Wrap(err, "backfill logs")
		}
		for _, l := range past {
			seen[logKey{l.BlockHash, l.Index}] = struct{}{}
			if !deliver(out, l, quit) {
				return nil
			}
		}

		for {
			select {
			case l := <-live:
				if _, dup := seen[logKey{l.BlockHash, l.Index}]; dup {
					continue
				}
				if !deliver(out, l, quit) {
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func (c *EthClient) pollLogs(ctx context.Context, q ethereum.FilterQuery, out chan<- types.Log) event.Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(c.logPoll)
		defer ticker.Stop()

		var next uint64
		if q.FromBlock != nil {
			next = q.FromBlock.Uint64()
		}

		for {
			head, err := c.BlockNumber(ctx)
			if err != nil && !isTransient(err) {
				return err
			}
			if err == nil && head >= next {
				window := q
				window.FromBlock = new(big.Int).SetUint64(next)
				window.ToBlock = new(big.Int).SetUint64(head)

				logs, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]types.Log, error) {
					return c.eth.FilterLogs(ctx, window)
				})
				if err != nil {
					return errors.Wrapf(err, "get logs %d..%d", next, head)
				}
				for _, l := range logs {
					if !deliver(out, l, quit) {
						return nil
					}
				}
				next = head + 1
			}

			select {
			case <-quit:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})
}

func deliver(out chan<- types.Log, l types.Log, quit <-chan struct{}) bool {
	select {
	case out <- l:
		return true
	case <-quit:
		return false
	}
}
