package clients

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/icofund/internal/domain"
)

// Token ERC-20 contract whose amounts are denominated in currency.
// WETH9 additionally supports Deposit and Withdraw.
type Token struct {
	*Contract
	currency *domain.Currency
}

// NewToken wraps a bound ERC-20 contract.
func NewToken(c *Contract, currency *domain.Currency) *Token {
	return &Token{Contract: c, currency: currency}
}

// Currency denomination of the token's amounts.
func (t *Token) Currency() *domain.Currency {
	return t.currency
}

// BalanceOf token balance of owner.
func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (domain.Amount, error) {
	v, err := t.callBig(ctx, "balanceOf", owner)
	if err != nil {
		return domain.Amount{}, err
	}
	return domain.NewAmount(t.currency, v), nil
}

// Allowance amount spender may pull from owner.
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (domain.Amount, error) {
	v, err := t.callBig(ctx, "allowance", owner, spender)
	if err != nil {
		return domain.Amount{}, err
	}
	return domain.NewAmount(t.currency, v), nil
}

// Approve lets spender pull amount from the signer.
func (t *Token) Approve(ctx context.Context, signer domain.Signer, spender common.Address, amount domain.Amount) (common.Hash, error) {
	receipt, err := t.Transact(ctx, signer, "approve", spender, amount.BaseUnits())
	if err != nil {
		return common.Hash{}, err
	}
	return receipt.TxHash, nil
}

// Transfer sends amount from the signer to recipient.
func (t *Token) Transfer(ctx context.Context, signer domain.Signer, to common.Address, amount domain.Amount) (common.Hash, error) {
	receipt, err := t.Transact(ctx, signer, "transfer", to, amount.BaseUnits())
	if err != nil {
		return common.Hash{}, err
	}
	return receipt.TxHash, nil
}

// TransferFrom moves amount from owner to recipient using the signer's allowance.
func (t *Token) TransferFrom(ctx context.Context, signer domain.Signer, from, to common.Address, amount domain.Amount) (common.Hash, error) {
	receipt, err := t.Transact(ctx, signer, "transferFrom", from, to, amount.BaseUnits())
	if err != nil {
		return common.Hash{}, err
	}
	return receipt.TxHash, nil
}

// Deposit wraps amount of native currency.
func (t *Token) Deposit(ctx context.Context, signer domain.Signer, amount domain.Amount) (common.Hash, error) {
	if _, ok := t.abi.Methods["deposit"]; !ok {
		return common.Hash{}, errors.Errorf("%s does not support deposit", t.name)
	}
	receipt, err := t.TransactValue(ctx, signer, amount.BaseUnits(), "deposit")
	if err != nil {
		return common.Hash{}, err
	}
	return receipt.TxHash, nil
}

// Withdraw unwraps amount back to native currency.
func (t *Token) Withdraw(ctx context.Context, signer domain.Signer, amount domain.Amount) (common.Hash, error) {
	if _, ok := t.abi.Methods["withdraw"]; !ok {
		return common.Hash{}, errors.Errorf("%s does not support withdraw", t.name)
	}
	receipt, err := t.Transact(ctx, signer, "withdraw", amount.BaseUnits())
	if err != nil {
		return common.Hash{}, err
	}
	return receipt.TxHash, nil
}
