package snapshot

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/icofund/internal/contracts"
	"github.com/vadiminshakov/icofund/internal/domain"
)

type testContract struct {
	name string
	addr common.Address
	abi  *abi.ABI
}

func (c testContract) Name() string            { return c.name }
func (c testContract) Address() common.Address { return c.addr }
func (c testContract) ABI() *abi.ABI           { return c.abi }

var ico = testContract{name: "ICO", addr: common.HexToAddress("0x1c0"), abi: contracts.ICOABI}

// heightTransport answers every call with the height it was asked for.
type heightTransport struct {
	mu          sync.Mutex
	heights     []uint64
	roundTrips  int
	heightErr   error
	failMethod  string
	failChunkOf string
}

func (h *heightTransport) BlockNumber(context.Context) (uint64, error) { return 42, nil }

func (h *heightTransport) CheckHeight(context.Context, uint64) error { return h.heightErr }

func (h *heightTransport) BatchCall(_ context.Context, height uint64, calls []Call) ([]Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.roundTrips++

	results := make([]Result, len(calls))
	for i, c := range calls {
		h.heights = append(h.heights, height)

		method, err := ico.abi.MethodById(c.Data[:4])
		if err != nil {
			return nil, err
		}
		if method.Name == h.failChunkOf {
			return nil, errors.New("payload too large")
		}
		if method.Name == h.failMethod {
			results[i] = Result{Err: errors.New("execution reverted")}
			continue
		}

		var value any
		switch method.Outputs[0].Type.T {
		case abi.UintTy:
			if method.Outputs[0].Type.Size == 8 {
				value = uint8(height)
			} else {
				value = new(big.Int).SetUint64(height)
			}
		case abi.AddressTy:
			value = common.BigToAddress(new(big.Int).SetUint64(height))
		}
		data, err := method.Outputs.Pack(value)
		if err != nil {
			return nil, err
		}
		results[i] = Result{Data: data}
	}

	return results, nil
}

func TestBatch_AllReadsObserveHeight(t *testing.T) {
	transport := &heightTransport{}
	ctx := context.Background()

	b, err := Open(ctx, transport, 42, nil)
	require.NoError(t, err)

	bigReads := []*PendingRead[*big.Int]{
		Enqueue[*big.Int](b, ico, "leftEth"),
		Enqueue[*big.Int](b, ico, "leftScm"),
		Enqueue[*big.Int](b, ico, "closeTime"),
		Enqueue[*big.Int](b, ico, "finishTime"),
		Enqueue[*big.Int](b, ico, "balanceEth", common.HexToAddress("0xabc")),
	}
	state := Enqueue[uint8](b, ico, "state")
	weth := Enqueue[common.Address](b, ico, "weth")
	assert.Equal(t, 7, b.Len())

	require.NoError(t, b.Execute(ctx, 3))

	assert.Equal(t, 3, transport.roundTrips)
	require.Len(t, transport.heights, 7)
	for _, h := range transport.heights {
		assert.Equal(t, uint64(42), h)
	}

	for _, r := range bigReads {
		v, err := r.Get()
		require.NoError(t, err)
		assert.Equal(t, int64(42), v.Int64())
	}
	s, err := state.Get()
	require.NoError(t, err)
	assert.Equal(t, uint8(42), s)

	w, err := weth.Get()
	require.NoError(t, err)
	assert.Equal(t, common.BigToAddress(big.NewInt(42)), w)
}

func TestBatch_SiblingFailureIsolated(t *testing.T) {
	transport := &heightTransport{failMethod: "leftScm"}
	ctx := context.Background()

	b, err := Open(ctx, transport, 7, nil)
	require.NoError(t, err)

	leftEth := Enqueue[*big.Int](b, ico, "leftEth")
	leftScm := Enqueue[*big.Int](b, ico, "leftScm")
	require.NoError(t, b.Execute(ctx, 10))

	v, err := leftEth.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int64())

	_, err = leftScm.Get()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRemoteCallFailed))
	var rce *domain.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, "leftScm", rce.Method)
}

func TestBatch_ChunkFailureOnlyAffectsItsReads(t *testing.T) {
	transport := &heightTransport{failChunkOf: "finishTime"}
	ctx := context.Background()

	b, err := Open(ctx, transport, 9, nil)
	require.NoError(t, err)

	first := Enqueue[*big.Int](b, ico, "leftEth")
	second := Enqueue[*big.Int](b, ico, "leftScm")
	third := Enqueue[*big.Int](b, ico, "closeTime")
	fourth := Enqueue[*big.Int](b, ico, "finishTime")
	require.NoError(t, b.Execute(ctx, 2))

	for _, r := range []*PendingRead[*big.Int]{first, second} {
		_, err := r.Get()
		assert.NoError(t, err)
	}
	for _, r := range []*PendingRead[*big.Int]{third, fourth} {
		_, err := r.Get()
		assert.True(t, errors.Is(err, domain.ErrRemoteCallFailed))
	}
}

func TestOpen_HeightUnavailable(t *testing.T) {
	transport := &heightTransport{heightErr: errors.New("missing trie node")}

	_, err := Open(context.Background(), transport, 1, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrHeightUnavailable))
}

func TestBatch_Lifecycle(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, &heightTransport{}, 5, nil)
	require.NoError(t, err)

	r := Enqueue[*big.Int](b, ico, "leftEth")
	_, err = r.Get()
	assert.ErrorIs(t, err, ErrNotExecuted)

	require.NoError(t, b.Execute(ctx, 0))
	assert.ErrorIs(t, b.Execute(ctx, 0), ErrAlreadyExecuted)
}

func TestBatch_PackAndTypeErrors(t *testing.T) {
	transport := &heightTransport{}
	ctx := context.Background()
	b, err := Open(ctx, transport, 5, nil)
	require.NoError(t, err)

	missingArg := Enqueue[*big.Int](b, ico, "balanceEth")
	wrongType := Enqueue[uint8](b, ico, "leftEth")
	require.NoError(t, b.Execute(ctx, 10))

	_, err = missingArg.Get()
	assert.Error(t, err)
	_, err = wrongType.Get()
	assert.Error(t, err)

	// the unpackable read never reached the node
	assert.Len(t, transport.heights, 1)
}

func TestSnapshotter_Latest(t *testing.T) {
	s := New(&heightTransport{}, 0, nil)
	assert.Equal(t, DefaultMaxBatchSize, s.MaxBatchSize())

	b, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), b.Height())

	r := Enqueue[*big.Int](b, ico, "target")
	require.NoError(t, s.Execute(context.Background(), b))
	v, err := r.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())
}
