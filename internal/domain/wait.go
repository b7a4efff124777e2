package domain

import (
	"fmt"
	"time"
)

// WaitKind discriminates WaitCondition.
type WaitKind int

const (
	// WaitEvent waits for an on-chain event.
	WaitEvent WaitKind = iota
	// WaitDeadline waits for a wall-clock instant.
	WaitDeadline
)

// WaitCondition is either AwaitEvent(kind, fromBlock) or AwaitDeadline(instant).
type WaitCondition struct {
	Kind      WaitKind
	Event     string
	FromBlock uint64
	Deadline  time.Time
}

// AwaitEvent waits for the first event of the given kind at or after fromBlock.
func AwaitEvent(event string, fromBlock uint64) WaitCondition {
	return WaitCondition{Kind: WaitEvent, Event: event, FromBlock: fromBlock}
}

// AwaitDeadline waits until the instant has passed.
func AwaitDeadline(deadline time.Time) WaitCondition {
	return WaitCondition{Kind: WaitDeadline, Deadline: deadline}
}

// String returns a human-readable string representation.
func (w WaitCondition) String() string {
	switch w.Kind {
	case WaitEvent:
		return fmt.Sprintf("event %s from block %d", w.Event, w.FromBlock)
	case WaitDeadline:
		return fmt.Sprintf("deadline %s", w.Deadline.Format(time.RFC3339))
	default:
		return "unknown wait condition"
	}
}
