package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// LedgerState ICO state read at a single block height.
type LedgerState struct {
	Height     uint64
	Phase      SalePhase
	LeftEth    Amount
	LeftScm    Amount
	ICO        common.Address
	SCM        common.Address
	WETH       common.Address
	CloseTime  time.Time
	FinishTime time.Time
}

// HasSchedule reports whether close and finish times are meaningful.
func (s LedgerState) HasSchedule() bool {
	return s.Phase != PhaseOngoing
}

// UnixTime converts an on-chain timestamp; zero stays the zero time.
func UnixTime(ts uint64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(int64(ts), 0)
}
