package workflow

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/icofund/internal/domain"
	"github.com/vadiminshakov/icofund/internal/services/snapshot"
)

// ledgerReads sale state reads enqueued on one batch.
type ledgerReads struct {
	batch      *snapshot.Batch
	ico        common.Address
	state      *snapshot.PendingRead[uint8]
	leftEth    *snapshot.PendingRead[*big.Int]
	leftScm    *snapshot.PendingRead[*big.Int]
	closeTime  *snapshot.PendingRead[*big.Int]
	finishTime *snapshot.PendingRead[*big.Int]
	scm        *snapshot.PendingRead[common.Address]
	weth       *snapshot.PendingRead[common.Address]
}

func enqueueLedger(b *snapshot.Batch, ico snapshot.Contract) ledgerReads {
	return ledgerReads{
		batch:      b,
		ico:        ico.Address(),
		state:      snapshot.Enqueue[uint8](b, ico, "state"),
		leftEth:    snapshot.Enqueue[*big.Int](b, ico, "leftEth"),
		leftScm:    snapshot.Enqueue[*big.Int](b, ico, "leftScm"),
		closeTime:  snapshot.Enqueue[*big.Int](b, ico, "closeTime"),
		finishTime: snapshot.Enqueue[*big.Int](b, ico, "finishTime"),
		scm:        snapshot.Enqueue[common.Address](b, ico, "scm"),
		weth:       snapshot.Enqueue[common.Address](b, ico, "weth"),
	}
}

func (l ledgerReads) resolve() (domain.LedgerState, error) {
	state, err := l.state.Get()
	if err != nil {
		return domain.LedgerState{}, errors.Wrap(err, "read sale state")
	}
	leftEth, err := l.leftEth.Get()
	if err != nil {
		return domain.LedgerState{}, errors.Wrap(err, "read remaining ETH")
	}
	leftScm, err := l.leftScm.Get()
	if err != nil {
		return domain.LedgerState{}, errors.Wrap(err, "read remaining SCM")
	}
	closeTime, err := l.closeTime.Get()
	if err != nil {
		return domain.LedgerState{}, errors.Wrap(err, "read close time")
	}
	finishTime, err := l.finishTime.Get()
	if err != nil {
		return domain.LedgerState{}, errors.Wrap(err, "read finish time")
	}
	scm, err := l.scm.Get()
	if err != nil {
		return domain.LedgerState{}, errors.Wrap(err, "read SCM address")
	}
	weth, err := l.weth.Get()
	if err != nil {
		return domain.LedgerState{}, errors.Wrap(err, "read WETH address")
	}

	return domain.LedgerState{
		Height:     l.batch.Height(),
		Phase:      domain.PhaseFromCode(state),
		LeftEth:    domain.NewAmount(domain.Ether, leftEth),
		LeftScm:    domain.NewAmount(domain.SCM, leftScm),
		ICO:        l.ico,
		SCM:        scm,
		WETH:       weth,
		CloseTime:  domain.UnixTime(closeTime.Uint64()),
		FinishTime: domain.UnixTime(finishTime.Uint64()),
	}, nil
}
