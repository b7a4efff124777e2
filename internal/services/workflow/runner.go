// Package workflow composes snapshot reads, conditioning, funding and waits into the
// operations the command line exposes.
package workflow

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/internal/domain"
	"github.com/vadiminshakov/icofund/internal/services/conditioning"
	"github.com/vadiminshakov/icofund/internal/services/funding"
	"github.com/vadiminshakov/icofund/internal/services/pricer"
	"github.com/vadiminshakov/icofund/internal/services/snapshot"
	"github.com/vadiminshakov/icofund/internal/services/wait"
	"github.com/vadiminshakov/icofund/internal/storage/journal"
)

// ErrNoPricer valuation requested without a configured price source.
var ErrNoPricer = errors.New("no price source configured")

// Sale ICO contract: readable through snapshots and claimable.
type Sale interface {
	snapshot.Contract
	Claim(ctx context.Context, signer domain.Signer) (*types.Receipt, error)
}

// Token ERC-20 contract the operator can manage directly.
type Token interface {
	snapshot.Contract
	Currency() *domain.Currency
	BalanceOf(ctx context.Context, owner common.Address) (domain.Amount, error)
	Allowance(ctx context.Context, owner, spender common.Address) (domain.Amount, error)
	Approve(ctx context.Context, signer domain.Signer, spender common.Address, amount domain.Amount) (common.Hash, error)
	Transfer(ctx context.Context, signer domain.Signer, to common.Address, amount domain.Amount) (common.Hash, error)
	TransferFrom(ctx context.Context, signer domain.Signer, from, to common.Address, amount domain.Amount) (common.Hash, error)
	Deposit(ctx context.Context, signer domain.Signer, amount domain.Amount) (common.Hash, error)
	Withdraw(ctx context.Context, signer domain.Signer, amount domain.Amount) (common.Hash, error)
}

type stepJournal interface {
	Append(entry journal.Entry) error
}

// Deps collaborators of the Runner. Journal and Pricer are optional.
type Deps struct {
	Snapshots    *snapshot.Snapshotter
	ICO          Sale
	SCM          Token
	WETH         Token
	Conditioning *conditioning.Sequence
	Funding      *funding.Executor
	Wait         *wait.Engine
	Journal      stepJournal
	Pricer       pricer.Pricer
	QuoteSymbol  string
	Logger       *zap.Logger
}

// Runner executes one workflow per call.
type Runner struct {
	snapshots    *snapshot.Snapshotter
	ico          Sale
	scm          Token
	weth         Token
	conditioning *conditioning.Sequence
	funding      *funding.Executor
	wait         *wait.Engine
	journal      stepJournal
	pricer       pricer.Pricer
	quote        string
	logger       *zap.Logger
}

// NewRunner validates deps and creates a Runner.
func NewRunner(d Deps) (*Runner, error) {
	switch {
	case d.Snapshots == nil:
		return nil, errors.New("snapshotter is required")
	case d.ICO == nil:
		return nil, errors.New("ICO contract is required")
	case d.SCM == nil || d.WETH == nil:
		return nil, errors.New("SCM and WETH contracts are required")
	case d.Conditioning == nil || d.Funding == nil || d.Wait == nil:
		return nil, errors.New("conditioning, funding and wait services are required")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.QuoteSymbol == "" {
		d.QuoteSymbol = "USDT"
	}

	return &Runner{
		snapshots:    d.Snapshots,
		ico:          d.ICO,
		scm:          d.SCM,
		weth:         d.WETH,
		conditioning: d.Conditioning,
		funding:      d.Funding,
		wait:         d.Wait,
		journal:      d.Journal,
		pricer:       d.Pricer,
		quote:        d.QuoteSymbol,
		logger:       d.Logger,
	}, nil
}

// Valuation values an ether amount in the configured quote asset.
func (r *Runner) Valuation(ctx context.Context, amount domain.Amount) (decimal.Decimal, string, error) {
	if r.pricer == nil {
		return decimal.Decimal{}, "", ErrNoPricer
	}
	v, err := pricer.Value(ctx, r.pricer, amount, r.quote)
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	return v, r.quote, nil
}

// run per-invocation context: run id, scoped logger, journal writer.
type run struct {
	id       string
	workflow string
	logger   *zap.Logger
	journal  stepJournal
	steps    []domain.Step
}

func (r *Runner) begin(workflow string) *run {
	id := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", id), zap.String("workflow", workflow))
	logger.Debug("workflow started")

	return &run{id: id, workflow: workflow, logger: logger, journal: r.journal}
}

func (rn *run) started(step, detail string) {
	rn.append(journal.Entry{Step: step, Status: journal.StatusStarted, Detail: detail})
}

func (rn *run) record(steps ...domain.Step) {
	for _, s := range steps {
		rn.steps = append(rn.steps, s)

		entry := journal.Entry{Step: s.Name, Detail: s.Note}
		switch s.Status {
		case domain.StepSkipped:
			entry.Status = journal.StatusSkipped
		default:
			entry.Status = journal.StatusConfirmed
		}
		if s.TxHash != (common.Hash{}) {
			entry.TxHash = s.TxHash.Hex()
		}
		rn.append(entry)

		rn.logger.Info(s.String())
	}
}

func (rn *run) fail(step string, err error) error {
	rn.append(journal.Entry{Step: step, Status: journal.StatusFailed, Detail: err.Error()})
	rn.logger.Error("workflow step failed", zap.String("step", step), zap.Error(err))
	return err
}

func (rn *run) append(entry journal.Entry) {
	if rn.journal == nil {
		return
	}
	entry.RunID = rn.id
	entry.Workflow = rn.workflow
	entry.Time = time.Now().UTC()
	if err := rn.journal.Append(entry); err != nil {
		rn.logger.Warn("journal write failed", zap.Error(err))
	}
}

func (rn *run) report() domain.WorkflowReport {
	return domain.WorkflowReport{RunID: rn.id, Steps: rn.steps}
}
