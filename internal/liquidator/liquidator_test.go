package liquidator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	lb "github.com/liquidation-bot/liquidation-bot"
	"github.com/liquidation-bot/liquidation-bot/internal/checker"
)

// signerAddr stands in for the bot's own signing address — distinct from
// every trader address, so a test that accidentally attributes a failure to
// handle.From instead of handle.Trader is caught rather than masked.
var signerAddr = lb.AddressFromHex("0x00000000000000000000000000000000000001")

type fakeGateway struct {
	mu sync.Mutex

	liquidateErr      map[string]error // keyed by trader string; consumed once then cleared
	awaitErr          map[string]error // keyed by trader string; consumed once then cleared
	stillLiquidatable map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		liquidateErr:      map[string]error{},
		awaitErr:          map[string]error{},
		stillLiquidatable: map[string]bool{},
	}
}

func (f *fakeGateway) CurrentBlock(context.Context) (uint64, error) { return 0, nil }
func (f *fakeGateway) FetchPositionEvents(context.Context, uint64, uint64) ([]lb.PositionChange, error) {
	return nil, nil
}

func (f *fakeGateway) IsLiquidatable(_ context.Context, batch []lb.Address) ([]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(batch))
	for i, a := range batch {
		out[i] = f.stillLiquidatable[a.String()]
	}
	return out, nil
}

func (f *fakeGateway) Liquidate(_ context.Context, trader lb.Address) (lb.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.liquidateErr[trader.String()]; ok {
		delete(f.liquidateErr, trader.String())
		return lb.TxHandle{}, err
	}
	// From is the signer's own address, matching the real gateway; Trader
	// is the position being liquidated. Keeping these distinct here is
	// what lets a test catch a handler that attributes a failure to the
	// wrong address.
	return lb.TxHandle{Hash: common.HexToHash("0x01"), From: signerAddr, Trader: trader}, nil
}

func (f *fakeGateway) Await(_ context.Context, handle lb.TxHandle) (lb.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.awaitErr[handle.Trader.String()]; ok {
		delete(f.awaitErr, handle.Trader.String())
		return lb.Receipt{}, err
	}
	return lb.Receipt{TxHash: handle.Hash, Status: true}, nil
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	require.Fail(t, "condition never became true")
}

func TestLiquidator_EnqueueAndLiquidate(t *testing.T) {
	gw := newFakeGateway()
	chk := checker.New(gw, 10)
	liq := New(gw, chk, lb.LiquidatorConfig{RetryInterval: 10 * time.Millisecond})

	var mu sync.Mutex
	var events []lb.Event
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go liq.Run(ctx, func(e lb.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	trader := lb.AddressFromHex("0x000000000000000000000000000000000000aa")
	liq.Enqueue([]lb.Address{trader})

	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e.Kind == lb.EventTraderLiquidated {
				return true
			}
		}
		return false
	})
}

func TestLiquidator_FailureThenRequalifiesAway(t *testing.T) {
	gw := newFakeGateway()
	trader := lb.AddressFromHex("0x000000000000000000000000000000000000bb")
	gw.liquidateErr[trader.String()] = errors.New("liquidation reverted")
	gw.stillLiquidatable[trader.String()] = false // no longer liquidatable once re-checked

	chk := checker.New(gw, 10)
	liq := New(gw, chk, lb.LiquidatorConfig{RetryInterval: 10 * time.Millisecond})

	var mu sync.Mutex
	var events []lb.Event
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go liq.Run(ctx, func(e lb.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	liq.Enqueue([]lb.Address{trader})

	waitUntil(t, time.Second, func() bool {
		return len(liq.erroredAddresses()) == 0 && !liq.pendingContains(trader)
	})

	mu.Lock()
	defer mu.Unlock()
	var sawError bool
	for _, e := range events {
		if e.Kind == lb.EventError {
			sawError = true
		}
	}
	require.True(t, sawError)
}

func (l *Liquidator) pendingContains(a lb.Address) bool {
	_, ok := l.get(a.String())
	return ok
}

func TestLiquidator_AwaitFailureAttributesLiquidationErrorToTrader(t *testing.T) {
	gw := newFakeGateway()
	trader := lb.AddressFromHex("0x000000000000000000000000000000000000dd")
	gw.awaitErr[trader.String()] = &lb.RevertError{Cause: errors.New("tx reverted")}
	gw.stillLiquidatable[trader.String()] = true // stays pending across the retry

	chk := checker.New(gw, 10)
	liq := New(gw, chk, lb.LiquidatorConfig{RetryInterval: 10 * time.Millisecond})

	var mu sync.Mutex
	var events []lb.Event
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go liq.Run(ctx, func(e lb.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	liq.Enqueue([]lb.Address{trader})

	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e.Kind == lb.EventError {
				return true
			}
		}
		return false
	})

	mu.Lock()
	defer mu.Unlock()
	var liquidationErr *lb.LiquidationError
	for _, e := range events {
		if e.Kind == lb.EventError {
			require.ErrorAs(t, e.Error.Cause, &liquidationErr)
			break
		}
	}
	require.NotNil(t, liquidationErr)
	require.Equal(t, trader, liquidationErr.Trader, "failure must be attributed to the trader, not the signer's own address")
}

func TestLiquidator_EnqueueDedupes(t *testing.T) {
	gw := newFakeGateway()
	chk := checker.New(gw, 10)
	liq := New(gw, chk, lb.LiquidatorConfig{RetryInterval: time.Second})

	trader := lb.AddressFromHex("0x000000000000000000000000000000000000cc")
	liq.Enqueue([]lb.Address{trader})
	liq.Enqueue([]lb.Address{trader})

	require.Len(t, liq.snapshotOrder(), 1)
}
