// Package wait blocks a workflow until an on-chain event or a wall-clock deadline.
package wait

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/internal/domain"
)

// State progress of the engine's current wait.
type State int

const (
	StateIdle State = iota
	StateSubscribed
	StateSleeping
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribed:
		return "subscribed"
	case StateSleeping:
		return "sleeping"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Clock time source of the engine.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock wall clock.
func SystemClock() Clock { return systemClock{} }

// eventSource streams logs of one named contract event starting at fromBlock.
type eventSource interface {
	WatchEvent(ctx context.Context, name string, fromBlock uint64) (<-chan types.Log, event.Subscription, error)
}

// Engine resolves one wait condition at a time.
type Engine struct {
	source eventSource
	clock  Clock
	logger *zap.Logger

	mu    sync.Mutex
	state State
}

// NewEngine creates a wait engine. A nil clock means the system clock.
func NewEngine(source eventSource, clock Clock, logger *zap.Logger) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{source: source, clock: clock, logger: logger}
}

// State current engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Await dispatches on the condition kind.
func (e *Engine) Await(ctx context.Context, cond domain.WaitCondition) error {
	switch cond.Kind {
	case domain.WaitEvent:
		_, err := e.AwaitEvent(ctx, cond.Event, cond.FromBlock)
		return err
	case domain.WaitDeadline:
		_, err := e.AwaitDeadline(ctx, cond.Deadline)
		return err
	default:
		return errors.Errorf("unsupported wait condition %v", cond.Kind)
	}
}

// AwaitEvent returns the first log of the named event emitted at or after fromBlock.
// There is no timeout; only context cancellation ends the wait early.
func (e *Engine) AwaitEvent(ctx context.Context, name string, fromBlock uint64) (types.Log, error) {
	if e.source == nil {
		return types.Log{}, errors.New("no event source configured")
	}

	logs, sub, err := e.source.WatchEvent(ctx, name, fromBlock)
	if err != nil {
		return types.Log{}, errors.Wrapf(err, "subscribe to %s", name)
	}
	defer sub.Unsubscribe()

	e.setState(StateSubscribed)
	e.logger.Info("waiting for event", zap.String("event", name), zap.Uint64("from_block", fromBlock))

	for {
		select {
		case l, ok := <-logs:
			if !ok {
				return types.Log{}, errors.Errorf("%s event stream closed", name)
			}
			if l.Removed {
				continue
			}
			e.setState(StateResolved)
			e.logger.Info("event received",
				zap.String("event", name),
				zap.Uint64("block", l.BlockNumber),
				zap.String("tx", l.TxHash.Hex()))
			return l, nil
		case err := <-sub.Err():
			if err == nil {
				return types.Log{}, errors.Errorf("%s subscription ended", name)
			}
			return types.Log{}, errors.Wrapf(err, "%s subscription", name)
		case <-ctx.Done():
			return types.Log{}, ctx.Err()
		}
	}
}

// AwaitDeadline sleeps until deadline and reports how long it slept.
// A deadline in the past resolves immediately without arming a timer.
func (e *Engine) AwaitDeadline(ctx context.Context, deadline time.Time) (time.Duration, error) {
	remaining := deadline.Sub(e.clock.Now())
	if remaining <= 0 {
		e.setState(StateResolved)
		return 0, nil
	}

	e.setState(StateSleeping)
	e.logger.Info("sleeping until deadline",
		zap.Time("deadline", deadline),
		zap.Duration("remaining", remaining))

	select {
	case <-e.clock.After(remaining):
		e.setState(StateResolved)
		return remaining, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
