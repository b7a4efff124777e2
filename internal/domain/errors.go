package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrHeightUnavailable the node cannot serve state at the requested block.
	ErrHeightUnavailable = errors.New("block height unavailable")
	// ErrRemoteCallFailed a remote read or write failed in transport.
	ErrRemoteCallFailed = errors.New("remote call failed")
	// ErrReverted the contract rejected the call.
	ErrReverted = errors.New("execution reverted")
	// ErrSaleClosed the sale no longer accepts funds.
	ErrSaleClosed = errors.New("sale is closed")
	// ErrPostCheck state after a confirmed step does not match expectations.
	ErrPostCheck = errors.New("post-condition not met")
)

// ParseError malformed amount text.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Input, e.Reason)
}

// RemoteCallError failure of one contract call.
type RemoteCallError struct {
	Contract string
	Method   string
	Err      error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Contract, e.Method, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

func (e *RemoteCallError) Is(target error) bool { return target == ErrRemoteCallFailed }

// RevertError contract call rejected with a revert reason.
type RevertError struct {
	Method string
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: execution reverted", e.Method)
	}
	return fmt.Sprintf("%s: execution reverted: %s", e.Method, e.Reason)
}

func (e *RevertError) Is(target error) bool { return target == ErrReverted }

// StepFailedError a conditioning sub-step failed; nothing after it ran.
type StepFailedError struct {
	Step  string
	Cause error
}

func (e *StepFailedError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Cause)
}

func (e *StepFailedError) Unwrap() error { return e.Cause }
