package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/icofund/internal/domain"
)

// Contract ABI bound to an address on the node.
type Contract struct {
	name    string
	address common.Address
	abi     *abi.ABI
	client  *EthClient
}

// Bind attaches an ABI to address.
func (c *EthClient) Bind(name string, address common.Address, parsed *abi.ABI) *Contract {
	return &Contract{name: name, address: address, abi: parsed, client: c}
}

func (c *Contract) Name() string            { return c.name }
func (c *Contract) Address() common.Address { return c.address }
func (c *Contract) ABI() *abi.ABI           { return c.abi }

// Call reads method at the latest block.
func (c *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s.%s", c.name, method)
	}

	raw, err := c.client.CallAt(ctx, c.address, data, nil)
	if err != nil {
		if reason, ok := revertReason(err); ok {
			return nil, &domain.RevertError{Method: method, Reason: reason}
		}
		return nil, &domain.RemoteCallError{Contract: c.name, Method: method, Err: err}
	}

	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, &domain.RemoteCallError{Contract: c.name, Method: method, Err: errors.Wrap(err, "decode result")}
	}
	return out, nil
}

// Transact submits method and waits until it is mined.
func (c *Contract) Transact(ctx context.Context, signer domain.Signer, method string, args ...any) (*types.Receipt, error) {
	return c.TransactValue(ctx, signer, nil, method, args...)
}

// TransactValue submits a payable call carrying value wei.
func (c *Contract) TransactValue(ctx context.Context, signer domain.Signer, value *big.Int, method string, args ...any) (*types.Receipt, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s.%s", c.name, method)
	}

	return c.client.SendAndWait(ctx, signer, TxRequest{
		To:       c.address,
		Data:     data,
		Value:    value,
		Contract: c.name,
		Method:   method,
	})
}

// WatchEvent streams logs of the named event from fromBlock on.
func (c *Contract) WatchEvent(ctx context.Context, name string, fromBlock uint64) (<-chan types.Log, event.Subscription, error) {
	ev, ok := c.abi.Events[name]
	if !ok {
		return nil, nil, errors.Errorf("%s has no event %s", c.name, name)
	}

	return c.client.WatchLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{ev.ID}},
	})
}

func (c *Contract) callBig(ctx context.Context, method string, args ...any) (*big.Int, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &domain.RemoteCallError{Contract: c.name, Method: method, Err: errors.New("empty result")}
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("%s.%s returned %T, want uint256", c.name, method, out[0])
	}
	return v, nil
}

func (c *Contract) callAddress(ctx context.Context, method string) (common.Address, error) {
	out, err := c.Call(ctx, method)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) == 0 {
		return common.Address{}, &domain.RemoteCallError{Contract: c.name, Method: method, Err: errors.New("empty result")}
	}
	v, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, errors.Errorf("%s.%s returned %T, want address", c.name, method, out[0])
	}
	return v, nil
}
