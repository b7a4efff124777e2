package domain

import "fmt"

// SalePhase lifecycle stage of the ICO contract.
type SalePhase struct {
	code uint8
}

var (
	// PhaseOngoing sale accepts funds.
	PhaseOngoing = SalePhase{code: 0}
	// PhaseClosed target reached, hold period running.
	PhaseClosed = SalePhase{code: 1}
	// PhaseFinished hold period over, tokens can be claimed.
	PhaseFinished = SalePhase{code: 2}
)

// PhaseFromCode maps the on-chain state code. Unrecognized codes are kept as-is.
func PhaseFromCode(code uint8) SalePhase {
	return SalePhase{code: code}
}

// Code returns the raw on-chain value.
func (p SalePhase) Code() uint8 {
	return p.code
}

// IsKnown reports whether this client understands the phase.
func (p SalePhase) IsKnown() bool {
	return p.code <= PhaseFinished.code
}

// String returns the string representation.
func (p SalePhase) String() string {
	switch p {
	case PhaseOngoing:
		return "Ongoing"
	case PhaseClosed:
		return "Closed"
	case PhaseFinished:
		return "Finished"
	default:
		return fmt.Sprintf("Unknown (%d)", p.code)
	}
}
