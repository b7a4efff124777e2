// Package funding submits the sale call that converts WETH into SCM allocation.
package funding

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/internal/contracts"
	"github.com/vadiminshakov/icofund/internal/domain"
)

// ReasonSaleClosed revert reason the sale uses once it stopped accepting funds.
const ReasonSaleClosed = "ICO is closed"

const (
	methodFund    = "fund"
	methodFundAny = "fundAny"
)

// saleContract submits transactions to the ICO and returns once they are mined.
type saleContract interface {
	Address() common.Address
	Transact(ctx context.Context, signer domain.Signer, method string, args ...any) (*types.Receipt, error)
}

// Executor performs exactly one funding transaction per call.
type Executor struct {
	sale   saleContract
	logger *zap.Logger
}

// NewExecutor creates a funding executor.
func NewExecutor(sale saleContract, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{sale: sale, logger: logger}
}

// Fund contributes amount under policy.
//
// Strict fails when the sale cannot absorb the whole amount. BestEffort lets the
// sale clamp the amount to what is left and fails with domain.ErrSaleClosed once
// nothing is accepted any more. The receipt reports the quantities the sale
// actually booked.
func (e *Executor) Fund(ctx context.Context, signer domain.Signer, amount domain.Amount, policy domain.FundingPolicy) (domain.Receipt, error) {
	if amount.IsZero() {
		return domain.Receipt{}, errors.New("funding amount must be positive")
	}

	method := methodFund
	if policy == domain.FundingBestEffort {
		method = methodFundAny
	}

	e.logger.Info("submitting funding transaction",
		zap.String("method", method),
		zap.String("policy", policy.String()),
		zap.String("amount", amount.Format()))

	receipt, err := e.sale.Transact(ctx, signer, method, amount.BaseUnits())
	if err != nil {
		var revert *domain.RevertError
		if errors.As(err, &revert) {
			if policy == domain.FundingBestEffort && revert.Reason == ReasonSaleClosed {
				return domain.Receipt{}, errors.Wrap(domain.ErrSaleClosed, revert.Error())
			}
			return domain.Receipt{}, revert
		}
		return domain.Receipt{}, errors.Wrapf(err, "%s %s", method, amount.Format())
	}

	result, err := e.receiptFromLogs(receipt, signer.Address())
	if err != nil {
		return domain.Receipt{}, err
	}

	e.logger.Info("funding confirmed",
		zap.String("tx", result.TxHash.Hex()),
		zap.Uint64("block", result.Block),
		zap.String("eth", result.Funded.Format()),
		zap.String("scm", result.Tokens.Format()))

	return result, nil
}

func (e *Executor) receiptFromLogs(receipt *types.Receipt, buyer common.Address) (domain.Receipt, error) {
	if receipt.BlockNumber == nil {
		return domain.Receipt{}, errors.Errorf("fund receipt for tx %s has no block number", receipt.TxHash.Hex())
	}

	fundEvent := contracts.ICOABI.Events[contracts.EventFund]

	for _, l := range receipt.Logs {
		if l.Address != e.sale.Address() || len(l.Topics) < 2 || l.Topics[0] != fundEvent.ID {
			continue
		}
		if common.BytesToAddress(l.Topics[1].Bytes()) != buyer {
			continue
		}

		values, err := fundEvent.Inputs.NonIndexed().Unpack(l.Data)
		if err != nil {
			return domain.Receipt{}, errors.Wrap(err, "decode Fund event")
		}
		if len(values) != 2 {
			return domain.Receipt{}, errors.Errorf("Fund event has %d values, want 2", len(values))
		}
		eth, okEth := values[0].(*big.Int)
		scm, okScm := values[1].(*big.Int)
		if !okEth || !okScm {
			return domain.Receipt{}, errors.New("unexpected Fund event layout")
		}

		return domain.Receipt{
			TxHash: receipt.TxHash,
			Block:  receipt.BlockNumber.Uint64(),
			Funded: domain.NewAmount(domain.Ether, eth),
			Tokens: domain.NewAmount(domain.SCM, scm),
		}, nil
	}

	return domain.Receipt{}, errors.Wrapf(domain.ErrPostCheck, "no Fund event in tx %s", receipt.TxHash.Hex())
}

