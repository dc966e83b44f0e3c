package checker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	lb "github.com/liquidation-bot/liquidation-bot"
)

type fakeGateway struct {
	calls      [][]lb.Address
	resultsFor func(batch []lb.Address) ([]bool, error)
}

func (f *fakeGateway) CurrentBlock(context.Context) (uint64, error) { return 0, nil }
func (f *fakeGateway) FetchPositionEvents(context.Context, uint64, uint64) ([]lb.PositionChange, error) {
	return nil, nil
}
func (f *fakeGateway) Liquidate(context.Context, lb.Address) (lb.TxHandle, error) { return lb.TxHandle{}, nil }
func (f *fakeGateway) Await(context.Context, lb.TxHandle) (lb.Receipt, error)     { return lb.Receipt{}, nil }

func (f *fakeGateway) IsLiquidatable(_ context.Context, batch []lb.Address) ([]bool, error) {
	f.calls = append(f.calls, batch)
	return f.resultsFor(batch)
}

func addrs(n int) []lb.Address {
	out := make([]lb.Address, n)
	for i := range out {
		out[i] = lb.AddressFromHex(hexOf(i))
	}
	return out
}

func hexOf(i int) string {
	const hexDigits = "0123456789abcdef"
	b := []byte("0x0000000000000000000000000000000000000000")
	pos := len(b) - 1
	for i > 0 && pos > 1 {
		b[pos] = hexDigits[i%16]
		i /= 16
		pos--
	}
	return string(b)
}

func TestChecker_Scan_ChunksInOrder(t *testing.T) {
	snapshot := addrs(25)
	gw := &fakeGateway{resultsFor: func(batch []lb.Address) ([]bool, error) {
		out := make([]bool, len(batch))
		for i := range out {
			out[i] = true
		}
		return out, nil
	}}
	c := New(gw, 10)

	var chunks [][]lb.Address
	c.Scan(context.Background(), snapshot, func(r ChunkResult) {
		require.Nil(t, r.Err)
		chunks = append(chunks, r.Liquidatable)
	})

	require.Len(t, gw.calls, 3)
	require.Len(t, gw.calls[0], 10)
	require.Len(t, gw.calls[1], 10)
	require.Len(t, gw.calls[2], 5)
	require.Equal(t, snapshot[0:10], gw.calls[0])
	require.Equal(t, snapshot[10:20], gw.calls[1])
	require.Equal(t, snapshot[20:25], gw.calls[2])
	require.Len(t, chunks, 3)
}

func TestChecker_Scan_FiltersNonLiquidatable(t *testing.T) {
	snapshot := addrs(4)
	gw := &fakeGateway{resultsFor: func(batch []lb.Address) ([]bool, error) {
		return []bool{true, false, true, false}, nil
	}}
	c := New(gw, 10)

	var got []lb.Address
	c.Scan(context.Background(), snapshot, func(r ChunkResult) {
		got = r.Liquidatable
	})

	require.Equal(t, []lb.Address{snapshot[0], snapshot[2]}, got)
}

func TestChecker_Scan_ContinuesPastChunkError(t *testing.T) {
	snapshot := addrs(21)
	callCount := 0
	gw := &fakeGateway{resultsFor: func(batch []lb.Address) ([]bool, error) {
		callCount++
		if callCount == 2 {
			return nil, errors.New("rpc exploded")
		}
		out := make([]bool, len(batch))
		return out, nil
	}}
	c := New(gw, 10)

	var results []ChunkResult
	c.Scan(context.Background(), snapshot, func(r ChunkResult) {
		results = append(results, r)
	})

	require.Len(t, results, 3)
	require.Nil(t, results[0].Err)
	require.NotNil(t, results[1].Err)
	require.Equal(t, 10, results[1].Err.ChunkStart)
	require.Equal(t, 20, results[1].Err.ChunkEnd)
	require.Nil(t, results[2].Err)
}

func TestChecker_Scan_StopsOnCancelledContext(t *testing.T) {
	snapshot := addrs(30)
	gw := &fakeGateway{resultsFor: func(batch []lb.Address) ([]bool, error) {
		out := make([]bool, len(batch))
		return out, nil
	}}
	c := New(gw, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	c.Scan(ctx, snapshot, func(ChunkResult) { calls++ })
	require.Zero(t, calls)
}
