package workflow

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/icofund/internal/domain"
)

// Token names accepted by the token operations.
const (
	TokenWETH = "weth"
	TokenSCM  = "scm"
)

// TokenCurrency denomination used to parse amounts of the named token.
func (r *Runner) TokenCurrency(name string) (*domain.Currency, error) {
	t, err := r.token(name)
	if err != nil {
		return nil, err
	}
	return t.Currency(), nil
}

func (r *Runner) token(name string) (Token, error) {
	switch name {
	case TokenWETH:
		return r.weth, nil
	case TokenSCM:
		return r.scm, nil
	default:
		return nil, errors.Errorf("unknown token %q", name)
	}
}

// TokenBalance balance of owner.
func (r *Runner) TokenBalance(ctx context.Context, name string, owner common.Address) (domain.Amount, error) {
	t, err := r.token(name)
	if err != nil {
		return domain.Amount{}, err
	}
	return t.BalanceOf(ctx, owner)
}

// TokenAllowance amount spender may pull from owner.
func (r *Runner) TokenAllowance(ctx context.Context, name string, owner, spender common.Address) (domain.Amount, error) {
	t, err := r.token(name)
	if err != nil {
		return domain.Amount{}, err
	}
	return t.Allowance(ctx, owner, spender)
}

// TokenApprove sets the allowance of spender over the signer's tokens.
func (r *Runner) TokenApprove(ctx context.Context, signer domain.Signer, name string, spender common.Address, amount domain.Amount) (domain.WorkflowReport, error) {
	return r.tokenTx(ctx, name, "approve", amount, func(t Token) (common.Hash, error) {
		return t.Approve(ctx, signer, spender, amount)
	})
}

// TokenTransfer sends amount to recipient. With a non-nil from it spends from's
// tokens through the signer's allowance.
func (r *Runner) TokenTransfer(ctx context.Context, signer domain.Signer, name string, from *common.Address, to common.Address, amount domain.Amount) (domain.WorkflowReport, error) {
	return r.tokenTx(ctx, name, "transfer", amount, func(t Token) (common.Hash, error) {
		if from != nil && *from != signer.Address() {
			return t.TransferFrom(ctx, signer, *from, to, amount)
		}
		return t.Transfer(ctx, signer, to, amount)
	})
}

// TokenDeposit wraps native currency.
func (r *Runner) TokenDeposit(ctx context.Context, signer domain.Signer, name string, amount domain.Amount) (domain.WorkflowReport, error) {
	return r.tokenTx(ctx, name, "deposit", amount, func(t Token) (common.Hash, error) {
		return t.Deposit(ctx, signer, amount)
	})
}

// TokenWithdraw unwraps back to native currency.
func (r *Runner) TokenWithdraw(ctx context.Context, signer domain.Signer, name string, amount domain.Amount) (domain.WorkflowReport, error) {
	return r.tokenTx(ctx, name, "withdraw", amount, func(t Token) (common.Hash, error) {
		return t.Withdraw(ctx, signer, amount)
	})
}

func (r *Runner) tokenTx(ctx context.Context, name, step string, amount domain.Amount, send func(Token) (common.Hash, error)) (domain.WorkflowReport, error) {
	t, err := r.token(name)
	if err != nil {
		return domain.WorkflowReport{}, err
	}

	rn := r.begin(name + " " + step)
	rn.started(step, amount.Format())

	tx, err := send(t)
	if err != nil {
		return rn.report(), rn.fail(step, err)
	}
	s := domain.SubmittedStep(step, tx)
	s.Note = amount.Format()
	rn.record(s)

	return rn.report(), nil
}
