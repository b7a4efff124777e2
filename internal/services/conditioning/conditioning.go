// Package conditioning prepares the funder's WETH position before a sale call.
package conditioning

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/internal/domain"
)

const (
	StepWrap    = "wrap"
	StepApprove = "approve"
)

// wrappedToken WETH-like token the sale pulls funds from.
type wrappedToken interface {
	BalanceOf(ctx context.Context, owner common.Address) (domain.Amount, error)
	Allowance(ctx context.Context, owner, spender common.Address) (domain.Amount, error)
	// Deposit and Approve return once the transaction is mined.
	Deposit(ctx context.Context, signer domain.Signer, amount domain.Amount) (common.Hash, error)
	Approve(ctx context.Context, signer domain.Signer, spender common.Address, amount domain.Amount) (common.Hash, error)
}

// Options which preparatory steps the caller allows.
type Options struct {
	AllowWrap    bool
	AllowApprove bool
}

// Sequence decides and submits the wrap and approve sub-transactions.
type Sequence struct {
	token   wrappedToken
	wrap    domain.WrapPolicy
	approve domain.ApprovePolicy
	logger  *zap.Logger
}

// NewSequence creates a conditioning sequence over token.
func NewSequence(token wrappedToken, wrap domain.WrapPolicy, approve domain.ApprovePolicy, logger *zap.Logger) (*Sequence, error) {
	if token == nil {
		return nil, errors.New("wrapped token is required")
	}
	if !wrap.IsValid() {
		return nil, errors.Errorf("unknown wrap policy %q", wrap)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sequence{token: token, wrap: wrap, approve: approve, logger: logger}, nil
}

// Prepare makes sure signer holds at least amount WETH and target may spend it.
// Steps run strictly in order; the first failure aborts with *domain.StepFailedError.
// The returned steps include everything decided before the failure.
func (s *Sequence) Prepare(ctx context.Context, signer domain.Signer, target common.Address, amount domain.Amount, opts Options) ([]domain.Step, error) {
	owner := signer.Address()
	steps := make([]domain.Step, 0, 2)
	wrapped := false

	if opts.AllowWrap {
		step, err := s.ensureBalance(ctx, signer, amount)
		if err != nil {
			return steps, &domain.StepFailedError{Step: StepWrap, Cause: err}
		}
		wrapped = step.Status == domain.StepSubmitted
		steps = append(steps, step)
	}

	if !opts.AllowApprove && !wrapped {
		return steps, nil
	}

	step, err := s.ensureAllowance(ctx, signer, target, amount)
	if err != nil {
		if step.Status == domain.StepSubmitted {
			steps = append(steps, step)
		}
		return steps, &domain.StepFailedError{Step: StepApprove, Cause: err}
	}
	steps = append(steps, step)

	s.logger.Debug("conditioning done",
		zap.String("owner", owner.Hex()),
		zap.String("amount", amount.Format()),
		zap.Int("steps", len(steps)))

	return steps, nil
}

func (s *Sequence) ensureBalance(ctx context.Context, signer domain.Signer, amount domain.Amount) (domain.Step, error) {
	balance, err := s.token.BalanceOf(ctx, signer.Address())
	if err != nil {
		return domain.Step{}, errors.Wrap(err, "read WETH balance")
	}
	if !balance.LessThan(amount) {
		return domain.SkippedStep(StepWrap, ""), nil
	}

	deposit := amount
	if s.wrap == domain.WrapShortfall {
		deposit = amount.Sub(balance)
	}

	s.logger.Info("wrapping ether",
		zap.String("balance", balance.Format()),
		zap.String("deposit", deposit.Format()))

	tx, err := s.token.Deposit(ctx, signer, deposit)
	if err != nil {
		return domain.Step{}, errors.Wrapf(err, "deposit %s", deposit.Format())
	}

	step := domain.SubmittedStep(StepWrap, tx)
	step.Note = deposit.Format()
	return step, nil
}

func (s *Sequence) ensureAllowance(ctx context.Context, signer domain.Signer, target common.Address, amount domain.Amount) (domain.Step, error) {
	owner := signer.Address()

	allowance, err := s.token.Allowance(ctx, owner, target)
	if err != nil {
		return domain.Step{}, errors.Wrap(err, "read WETH allowance")
	}
	if !allowance.LessThan(amount) {
		return domain.SkippedStep(StepApprove, ""), nil
	}

	grant := s.approve.AllowanceFor(amount)

	s.logger.Info("approving WETH spend",
		zap.String("spender", target.Hex()),
		zap.String("allowance", allowance.Format()),
		zap.String("grant", grant.Format()))

	tx, err := s.token.Approve(ctx, signer, target, grant)
	if err != nil {
		return domain.Step{}, errors.Wrapf(err, "approve %s", grant.Format())
	}

	step := domain.SubmittedStep(StepApprove, tx)
	step.Note = grant.Format()

	// the approve tx is mined from here on, so failures still carry its step
	after, err := s.token.Allowance(ctx, owner, target)
	if err != nil {
		return step, errors.Wrap(err, "re-read WETH allowance")
	}
	if after.LessThan(amount) {
		return step, errors.Wrapf(domain.ErrPostCheck,
			"allowance %s is below %s after approve tx %s", after.Format(), amount.Format(), tx.Hex())
	}

	return step, nil
}
