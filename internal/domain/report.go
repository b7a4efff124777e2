package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// StepStatus outcome of one workflow sub-step.
type StepStatus string

const (
	StepSkipped   StepStatus = "skipped"
	StepSubmitted StepStatus = "submitted"
	StepWaited    StepStatus = "waited"
)

// Step a sub-step the workflow took or decided to skip.
type Step struct {
	Name   string
	Status StepStatus
	TxHash common.Hash
	Note   string
}

// SkippedStep records a no-op step.
func SkippedStep(name, note string) Step {
	return Step{Name: name, Status: StepSkipped, Note: note}
}

// SubmittedStep records a mined transaction.
func SubmittedStep(name string, tx common.Hash) Step {
	return Step{Name: name, Status: StepSubmitted, TxHash: tx}
}

// WaitedStep records a completed wait.
func WaitedStep(name, note string) Step {
	return Step{Name: name, Status: StepWaited, Note: note}
}

// String renders "wrap: skipped" or "approve: submitted tx 0x...".
func (s Step) String() string {
	switch s.Status {
	case StepSubmitted:
		return fmt.Sprintf("%s: submitted tx %s", s.Name, s.TxHash.Hex())
	default:
		if s.Note != "" {
			return fmt.Sprintf("%s: %s (%s)", s.Name, s.Status, s.Note)
		}
		return fmt.Sprintf("%s: %s", s.Name, s.Status)
	}
}

// Balance labelled amount shown to the operator.
type Balance struct {
	Label  string
	Amount Amount
}

// WorkflowReport outcome of one workflow invocation.
type WorkflowReport struct {
	RunID    string
	Steps    []Step
	Balances []Balance
	Phase    SalePhase
	Receipt  *Receipt
}

// Step returns the recorded step with the given name.
func (r WorkflowReport) Step(name string) (Step, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}
