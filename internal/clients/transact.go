package clients

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/internal/domain"
	"github.com/vadiminshakov/icofund/pkg/retrier"
)

// TxRequest unsigned contract call.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	// Contract and Method name the call in errors.
	Contract string
	Method   string
}

// SendAndWait signs req with signer, broadcasts it once and waits until it is mined.
// A reverted estimate, broadcast or mined status is reported as *domain.RevertError.
func (c *EthClient) SendAndWait(ctx context.Context, signer domain.Signer, req TxRequest) (*types.Receipt, error) {
	tx, err := c.buildTx(ctx, signer.Address(), req)
	if err != nil {
		return nil, err
	}

	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, c.callError(req, err)
	}
	signed, err := signer.SignTx(tx, chainID)
	if err != nil {
		return nil, errors.Wrapf(err, "sign %s.%s", req.Contract, req.Method)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, c.callError(req, err)
	}

	c.logger.Info("transaction sent",
		zap.String("call", req.Contract+"."+req.Method),
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("nonce", signed.Nonce()),
		zap.Uint64("gas", signed.Gas()))

	receipt, err := c.WaitMined(ctx, signed.Hash())
	if err != nil {
		return nil, errors.Wrapf(err, "wait for %s", signed.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &domain.RevertError{Method: req.Method, Reason: c.replayReason(ctx, signer.Address(), req, receipt)}
	}

	c.logger.Info("transaction mined",
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed))

	return receipt, nil
}

func (c *EthClient) buildTx(ctx context.Context, from common.Address, req TxRequest) (*types.Transaction, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	msg := ethereum.CallMsg{From: from, To: &req.To, Value: value, Data: req.Data}

	gas, err := c.eth.EstimateGas(ctx, msg)
	if err != nil {
		return nil, c.callError(req, err)
	}
	gas += gas / 5

	nonce, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (uint64, error) {
		return c.eth.PendingNonceAt(ctx, from)
	})
	if err != nil {
		return nil, c.callError(req, err)
	}

	head, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (*types.Header, error) {
		return c.eth.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		return nil, c.callError(req, err)
	}

	if head.BaseFee == nil {
		price, err := retrier.DoWithData(c.retrier, ctx, c.eth.SuggestGasPrice)
		if err != nil {
			return nil, c.callError(req, err)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce: nonce, GasPrice: price, Gas: gas, To: &req.To, Value: value, Data: req.Data,
		}), nil
	}

	tip, err := retrier.DoWithData(c.retrier, ctx, c.eth.SuggestGasTipCap)
	if err != nil {
		return nil, c.callError(req, err)
	}
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, c.callError(req, err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &req.To,
		Value:     value,
		Data:      req.Data,
	}), nil
}

// WaitMined polls for the receipt of hash until it is available or ctx is done.
func (c *EthClient) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.receiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			if !isTransient(err) {
				return nil, err
			}
			c.logger.Debug("receipt poll failed", zap.String("tx", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// replayReason re-executes a failed transaction on the parent state to recover its reason.
func (c *EthClient) replayReason(ctx context.Context, from common.Address, req TxRequest, receipt *types.Receipt) string {
	if receipt.BlockNumber == nil || receipt.BlockNumber.Sign() == 0 {
		return ""
	}
	parent := new(big.Int).Sub(receipt.BlockNumber, big.NewInt(1))
	msg := ethereum.CallMsg{From: from, To: &req.To, Value: req.Value, Data: req.Data}

	_, err := c.eth.CallContract(ctx, msg, parent)
	if err == nil {
		return ""
	}
	reason, _ := revertReason(err)
	return reason
}

func (c *EthClient) callError(req TxRequest, err error) error {
	if reason, ok := revertReason(err); ok {
		return &domain.RevertError{Method: req.Method, Reason: reason}
	}
	return &domain.RemoteCallError{Contract: req.Contract, Method: req.Method, Err: err}
}
