package workflow

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/internal/contracts"
	"github.com/vadiminshakov/icofund/internal/domain"
	"github.com/vadiminshakov/icofund/internal/services/conditioning"
	"github.com/vadiminshakov/icofund/internal/services/snapshot"
)

const (
	StepFund       = "fund"
	StepClaim      = "claim"
	StepWaitClose  = "wait-close"
	StepWaitFinish = "wait-finish"
)

// FundingRequest parameters of RunFunding.
type FundingRequest struct {
	Amount  domain.Amount
	Policy  domain.FundingPolicy
	Wrap    bool
	Approve bool
}

// RunInfo reads the sale state at the current head.
func (r *Runner) RunInfo(ctx context.Context) (domain.LedgerState, error) {
	b, err := r.snapshots.Latest(ctx)
	if err != nil {
		return domain.LedgerState{}, err
	}
	reads := enqueueLedger(b, r.ico)
	if err := r.snapshots.Execute(ctx, b); err != nil {
		return domain.LedgerState{}, err
	}
	return reads.resolve()
}

// RunBalance reads what the sale holds for account: SCM allocation, or ETH contributed when eth is set.
func (r *Runner) RunBalance(ctx context.Context, account common.Address, eth bool) (domain.Amount, error) {
	method, currency := "balanceScm", domain.SCM
	if eth {
		method, currency = "balanceEth", domain.Ether
	}

	b, err := r.snapshots.Latest(ctx)
	if err != nil {
		return domain.Amount{}, err
	}
	read := snapshot.Enqueue[*big.Int](b, r.ico, method, account)
	if err := r.snapshots.Execute(ctx, b); err != nil {
		return domain.Amount{}, err
	}

	v, err := read.Get()
	if err != nil {
		return domain.Amount{}, err
	}
	return domain.NewAmount(currency, v), nil
}

// RunFunding optionally wraps and approves WETH, funds the sale and reads the result back
// at the block of the funding transaction.
func (r *Runner) RunFunding(ctx context.Context, signer domain.Signer, req FundingRequest) (domain.WorkflowReport, error) {
	rn := r.begin("fund")
	buyer := signer.Address()

	if req.Wrap || req.Approve {
		steps, err := r.conditioning.Prepare(ctx, signer, r.ico.Address(), req.Amount,
			conditioning.Options{AllowWrap: req.Wrap, AllowApprove: req.Approve})
		rn.record(steps...)
		if err != nil {
			step := "conditioning"
			var stepErr *domain.StepFailedError
			if errors.As(err, &stepErr) {
				step = stepErr.Step
			}
			return rn.report(), rn.fail(step, err)
		}
	}

	rn.started(StepFund, req.Amount.Format())
	receipt, err := r.funding.Fund(ctx, signer, req.Amount, req.Policy)
	if err != nil {
		return rn.report(), rn.fail(StepFund, err)
	}
	step := domain.SubmittedStep(StepFund, receipt.TxHash)
	step.Note = receipt.Funded.Format()
	rn.record(step)

	b, err := r.snapshots.At(ctx, receipt.Block)
	if err != nil {
		return rn.report(), rn.fail("readback", err)
	}
	ledger := enqueueLedger(b, r.ico)
	allocated := snapshot.Enqueue[*big.Int](b, r.ico, "balanceScm", buyer)
	wethLeft := snapshot.Enqueue[*big.Int](b, r.weth, "balanceOf", buyer)
	if err := r.snapshots.Execute(ctx, b); err != nil {
		return rn.report(), rn.fail("readback", err)
	}

	report := rn.report()
	report.Receipt = &receipt

	state, err := ledger.resolve()
	if err != nil {
		return report, rn.fail("readback", err)
	}
	report.Phase = state.Phase

	scm, err := allocated.Get()
	if err != nil {
		return report, rn.fail("readback", err)
	}
	wethBalance, err := wethLeft.Get()
	if err != nil {
		return report, rn.fail("readback", err)
	}
	report.Balances = []domain.Balance{
		{Label: "ICO balance", Amount: domain.NewAmount(domain.SCM, scm)},
		{Label: "WETH balance", Amount: domain.NewAmount(domain.Ether, wethBalance)},
	}

	rn.logger.Info("funding workflow done",
		zap.String("tx", receipt.TxHash.Hex()),
		zap.String("phase", state.Phase.String()))

	return report, nil
}

// RunClaim optionally waits for the sale to finish, claims the SCM allocation and
// reads the SCM token balance back at the claim block.
func (r *Runner) RunClaim(ctx context.Context, signer domain.Signer, waitForFinish bool) (domain.WorkflowReport, error) {
	rn := r.begin("claim")

	if waitForFinish {
		if err := r.waitFinish(ctx, rn); err != nil {
			return rn.report(), err
		}
	}

	rn.started(StepClaim, "")
	receipt, err := r.ico.Claim(ctx, signer)
	if err != nil {
		return rn.report(), rn.fail(StepClaim, err)
	}
	rn.record(domain.SubmittedStep(StepClaim, receipt.TxHash))

	if receipt.BlockNumber == nil {
		return rn.report(), rn.fail(StepClaim, errors.New("claim receipt has no block number"))
	}
	b, err := r.snapshots.At(ctx, receipt.BlockNumber.Uint64())
	if err != nil {
		return rn.report(), rn.fail("readback", err)
	}
	state := snapshot.Enqueue[uint8](b, r.ico, "state")
	balance := snapshot.Enqueue[*big.Int](b, r.scm, "balanceOf", signer.Address())
	if err := r.snapshots.Execute(ctx, b); err != nil {
		return rn.report(), rn.fail("readback", err)
	}

	report := rn.report()
	code, err := state.Get()
	if err != nil {
		return report, rn.fail("readback", err)
	}
	report.Phase = domain.PhaseFromCode(code)

	scm, err := balance.Get()
	if err != nil {
		return report, rn.fail("readback", err)
	}
	report.Balances = []domain.Balance{{Label: "SCM balance", Amount: domain.NewAmount(domain.SCM, scm)}}

	return report, nil
}

// RunWait blocks until the sale is finished: it waits for IcoClosed when the sale is
// still ongoing, sleeps until the finish time and reports the phase read back afterwards.
func (r *Runner) RunWait(ctx context.Context) (domain.WorkflowReport, error) {
	rn := r.begin("wait")
	if err := r.waitFinish(ctx, rn); err != nil {
		return rn.report(), err
	}

	b, err := r.snapshots.Latest(ctx)
	if err != nil {
		return rn.report(), rn.fail("readback", err)
	}
	stateRead := snapshot.Enqueue[uint8](b, r.ico, "state")
	if err := r.snapshots.Execute(ctx, b); err != nil {
		return rn.report(), rn.fail("readback", err)
	}
	code, err := stateRead.Get()
	if err != nil {
		return rn.report(), rn.fail("readback", err)
	}

	report := rn.report()
	report.Phase = domain.PhaseFromCode(code)
	if !report.Phase.IsKnown() {
		rn.logger.Warn("sale reports an unknown phase after finish time", zap.Uint8("code", code))
	}
	return report, nil
}

func (r *Runner) waitFinish(ctx context.Context, rn *run) error {
	b, err := r.snapshots.Latest(ctx)
	if err != nil {
		return rn.fail(StepWaitClose, err)
	}
	stateRead := snapshot.Enqueue[uint8](b, r.ico, "state")
	if err := r.snapshots.Execute(ctx, b); err != nil {
		return rn.fail(StepWaitClose, err)
	}
	code, err := stateRead.Get()
	if err != nil {
		return rn.fail(StepWaitClose, err)
	}

	if domain.PhaseFromCode(code) == domain.PhaseOngoing {
		rn.logger.Info("waiting for ICO to close", zap.Uint64("from_block", b.Height()))
		if err := r.wait.Await(ctx, domain.AwaitEvent(contracts.EventIcoClosed, b.Height())); err != nil {
			return rn.fail(StepWaitClose, err)
		}
		rn.record(domain.WaitedStep(StepWaitClose, contracts.EventIcoClosed))
	}

	b, err = r.snapshots.Latest(ctx)
	if err != nil {
		return rn.fail(StepWaitFinish, err)
	}
	finishRead := snapshot.Enqueue[*big.Int](b, r.ico, "finishTime")
	if err := r.snapshots.Execute(ctx, b); err != nil {
		return rn.fail(StepWaitFinish, err)
	}
	finish, err := finishRead.Get()
	if err != nil {
		return rn.fail(StepWaitFinish, err)
	}

	deadline := domain.UnixTime(finish.Uint64())
	rn.logger.Info("waiting for ICO to finish", zap.Time("finish_time", deadline))
	if err := r.wait.Await(ctx, domain.AwaitDeadline(deadline)); err != nil {
		return rn.fail(StepWaitFinish, err)
	}
	rn.record(domain.WaitedStep(StepWaitFinish, deadline.Local().Format("2006-01-02 15:04:05 MST")))

	return nil
}
