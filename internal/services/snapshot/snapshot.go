// Package snapshot reads several contract values at one pinned block height.
package snapshot

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/icofund/internal/domain"
)

// DefaultMaxBatchSize reads per JSON-RPC round trip.
const DefaultMaxBatchSize = 100

var (
	// ErrNotExecuted the batch has not been executed yet.
	ErrNotExecuted = errors.New("batch not executed")
	// ErrAlreadyExecuted a batch can be executed once.
	ErrAlreadyExecuted = errors.New("batch already executed")

	errNoResult = errors.New("no result received")
)

// Call raw eth_call payload.
type Call struct {
	To   common.Address
	Data []byte
}

// Result raw return data of one call, or its individual error.
type Result struct {
	Data []byte
	Err  error
}

// Transport executes grouped reads at a block height.
type Transport interface {
	BlockNumber(ctx context.Context) (uint64, error)
	// CheckHeight fails if the node cannot serve state at height.
	CheckHeight(ctx context.Context, height uint64) error
	// BatchCall performs all calls in a single round trip, results in call order.
	BatchCall(ctx context.Context, height uint64, calls []Call) ([]Result, error)
}

// Contract target of a read.
type Contract interface {
	Name() string
	Address() common.Address
	ABI() *abi.ABI
}

type read struct {
	contract Contract
	method   string
	call     Call
	packErr  error

	result Result
}

// Batch reads registered with Enqueue and dispatched together by Execute.
type Batch struct {
	transport Transport
	height    uint64
	logger    *zap.Logger

	mu      sync.Mutex
	reads   []*read
	started bool
	done    bool
}

// Open pins the batch to height.
func Open(ctx context.Context, transport Transport, height uint64, logger *zap.Logger) (*Batch, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := transport.CheckHeight(ctx, height); err != nil {
		return nil, errors.Wrapf(domain.ErrHeightUnavailable, "block %d: %v", height, err)
	}

	return &Batch{transport: transport, height: height, logger: logger}, nil
}

// Height block every read of the batch observes.
func (b *Batch) Height() uint64 {
	return b.height
}

// Len number of enqueued reads.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reads)
}

// PendingRead typed handle resolved after Execute.
type PendingRead[T any] struct {
	batch *Batch
	r     *read
}

// Enqueue registers a read of method on contract. Nothing is sent until Execute.
func Enqueue[T any](b *Batch, contract Contract, method string, args ...any) *PendingRead[T] {
	r := &read{contract: contract, method: method}

	data, err := contract.ABI().Pack(method, args...)
	if err != nil {
		r.packErr = errors.Wrapf(err, "pack %s.%s", contract.Name(), method)
	} else {
		r.call = Call{To: contract.Address(), Data: data}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads = append(b.reads, r)

	return &PendingRead[T]{batch: b, r: r}
}

// Execute dispatches all reads in chunks of at most maxBatchSize, chunks in parallel.
// Per-read failures are reported by the pending reads; Execute itself only fails
// when the batch was already executed or the context is done.
func (b *Batch) Execute(ctx context.Context, maxBatchSize int) error {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}

	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyExecuted
	}
	b.started = true
	pending := make([]*read, 0, len(b.reads))
	for _, r := range b.reads {
		if r.packErr == nil {
			r.result = Result{Err: errNoResult}
			pending = append(pending, r)
		}
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.done = true
		b.mu.Unlock()
	}()

	chunks := 0
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(pending); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]
		chunks++

		g.Go(func() error {
			return b.executeChunk(gctx, chunk)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	b.logger.Debug("batch executed",
		zap.Uint64("block", b.height),
		zap.Int("reads", len(pending)),
		zap.Int("round_trips", chunks))
	return nil
}

func (b *Batch) executeChunk(ctx context.Context, chunk []*read) error {
	calls := make([]Call, len(chunk))
	for i, r := range chunk {
		calls[i] = r.call
	}

	results, err := b.transport.BatchCall(ctx, b.height, calls)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil && len(results) != len(calls) {
		err = fmt.Errorf("batch returned %d results for %d calls", len(results), len(calls))
	}
	for i, r := range chunk {
		if err != nil {
			r.result = Result{Err: err}
			continue
		}
		r.result = results[i]
	}

	return nil
}

// Get returns the decoded value or the error specific to this read.
func (p *PendingRead[T]) Get() (T, error) {
	var zero T

	p.batch.mu.Lock()
	done := p.batch.done
	p.batch.mu.Unlock()

	r := p.r
	if r.packErr != nil {
		return zero, r.packErr
	}
	if !done {
		return zero, ErrNotExecuted
	}
	if r.result.Err != nil {
		return zero, &domain.RemoteCallError{Contract: r.contract.Name(), Method: r.method, Err: r.result.Err}
	}

	out, err := r.contract.ABI().Unpack(r.method, r.result.Data)
	if err != nil {
		return zero, &domain.RemoteCallError{Contract: r.contract.Name(), Method: r.method, Err: errors.Wrap(err, "decode result")}
	}
	if len(out) == 0 {
		return zero, &domain.RemoteCallError{Contract: r.contract.Name(), Method: r.method, Err: errors.New("empty result")}
	}

	v, ok := out[0].(T)
	if !ok {
		return zero, errors.Errorf("%s.%s returned %T, want %T", r.contract.Name(), r.method, out[0], zero)
	}

	return v, nil
}

// Snapshotter opens batches on a transport with a fixed chunk size.
type Snapshotter struct {
	transport    Transport
	maxBatchSize int
	logger       *zap.Logger
}

// New creates a Snapshotter.
func New(transport Transport, maxBatchSize int, logger *zap.Logger) *Snapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &Snapshotter{transport: transport, maxBatchSize: maxBatchSize, logger: logger}
}

// MaxBatchSize configured chunk size.
func (s *Snapshotter) MaxBatchSize() int {
	return s.maxBatchSize
}

// At opens a batch pinned to height.
func (s *Snapshotter) At(ctx context.Context, height uint64) (*Batch, error) {
	return Open(ctx, s.transport, height, s.logger)
}

// Latest opens a batch pinned to the current head.
func (s *Snapshotter) Latest(ctx context.Context) (*Batch, error) {
	height, err := s.transport.BlockNumber(ctx)
	if err != nil {
		return nil, &domain.RemoteCallError{Contract: "node", Method: "eth_blockNumber", Err: err}
	}
	return s.At(ctx, height)
}

// Execute runs the batch with the configured chunk size.
func (s *Snapshotter) Execute(ctx context.Context, b *Batch) error {
	return b.Execute(ctx, s.maxBatchSize)
}
