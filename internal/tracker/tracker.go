// Package tracker owns the set of currently open positions, reconstructed
// by scanning chain history backward from the current tip and forward as
// new blocks arrive. Shaped after the indexer pack repo's Fetcher, which
// walks bounded block windows backward/forward against a chain tip in the
// same two-direction way.
package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	lb "github.com/liquidation-bot/liquidation-bot"
	"github.com/liquidation-bot/liquidation-bot/internal/gateway"
)

// positionState is the Tracker's internal per-trader bookkeeping (spec §3).
type positionState struct {
	lastBlock   uint64
	lastTxIndex uint32
	open        bool
}

// Tracker reconstructs the open-position set from chain history. All
// mutation happens under mu inside StepHistory/StepForward, which may run
// on separate goroutines; OpenPositions hands out an immutable copy so downstream
// stages never observe a half-updated map (spec §3 lifecycle).
type Tracker struct {
	gw gateway.Gateway

	genesis        uint64
	maxBlocksPerQuery uint64

	mu              sync.Mutex
	positions       map[string]*positionState // keyed by Address.String()
	addrByKey       map[string]lb.Address
	historyFrontier uint64
	tipSeen         uint64
	historyComplete bool
	initialized     bool
}

// New constructs a Tracker for the given genesis block and query window
// size. It does not touch the chain until StepHistory/StepForward is first
// called — the initial frontier/tip are set lazily from the Gateway's
// current block on the first step, matching spec §4.2's state machine.
func New(gw gateway.Gateway, genesis, maxBlocksPerQuery uint64) *Tracker {
	return &Tracker{
		gw:                gw,
		genesis:           genesis,
		maxBlocksPerQuery: maxBlocksPerQuery,
		positions:         make(map[string]*positionState),
		addrByKey:         make(map[string]lb.Address),
	}
}

func (t *Tracker) ensureInitialized(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.initialized {
		return nil
	}

	tip, err := t.gw.CurrentBlock(ctx)
	if err != nil {
		return &lb.FetchError{Cause: err}
	}

	t.historyFrontier = tip
	if tip > 0 {
		t.tipSeen = tip - 1
	}
	t.initialized = true
	return nil
}

// OpenPositions returns a stable-ordered (by lowercase address) snapshot of
// every trader currently believed to hold an open position.
func (t *Tracker) OpenPositions() []lb.Address {
	t.mu.Lock()
	defer t.mu.Unlock()

	open := make([]lb.Address, 0, len(t.positions))
	for key, state := range t.positions {
		if state.open {
			open = append(open, t.addrByKey[key])
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].String() < open[j].String() })
	return open
}

// HistoryComplete reports whether the backward scan has reached genesis.
// Once true, it stays true for the process lifetime (spec §3 invariant).
func (t *Tracker) HistoryComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.historyComplete
}

// HistoryBlocksLeft reports how many blocks remain in the backward scan.
func (t *Tracker) HistoryBlocksLeft() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.historyComplete || t.historyFrontier < t.genesis {
		return 0
	}
	return t.historyFrontier - t.genesis + 1
}

// StepHistory reads one backward window and merges its events. It either
// succeeds atomically or leaves all state untouched (spec §4.2 failure
// semantics).
func (t *Tracker) StepHistory(ctx context.Context) error {
	if err := t.ensureInitialized(ctx); err != nil {
		return err
	}

	t.mu.Lock()
	if t.historyComplete {
		t.mu.Unlock()
		return nil
	}
	frontier := t.historyFrontier
	t.mu.Unlock()

	windowStart := t.genesis
	if frontier >= t.genesis+t.maxBlocksPerQuery-1 {
		windowStart = frontier - t.maxBlocksPerQuery + 1
	}
	if windowStart < t.genesis {
		windowStart = t.genesis
	}

	events, err := t.gw.FetchPositionEvents(ctx, windowStart, frontier)
	if err != nil {
		return &lb.FetchError{From: windowStart, To: frontier, Cause: err}
	}

	t.mu.Lock()
	t.merge(events)
	if windowStart == t.genesis {
		t.historyComplete = true
	}
	t.historyFrontier = windowStart - 1 // may underflow past genesis; only read via HistoryBlocksLeft/HistoryComplete guards
	t.mu.Unlock()
	return nil
}

// StepForward reads one forward window past the last-seen tip and merges
// its events.
func (t *Tracker) StepForward(ctx context.Context) error {
	if err := t.ensureInitialized(ctx); err != nil {
		return err
	}

	currentTip, err := t.gw.CurrentBlock(ctx)
	if err != nil {
		return &lb.FetchError{Cause: err}
	}

	t.mu.Lock()
	from := t.tipSeen + 1
	t.mu.Unlock()

	if from > currentTip {
		return nil // nothing new since the last forward step
	}

	to := currentTip
	if to > from+t.maxBlocksPerQuery-1 {
		to = from + t.maxBlocksPerQuery - 1
	}

	events, err := t.gw.FetchPositionEvents(ctx, from, to)
	if err != nil {
		return &lb.FetchError{From: from, To: to, Cause: err}
	}

	t.mu.Lock()
	t.merge(events)
	t.tipSeen = to
	t.mu.Unlock()
	return nil
}

// merge applies the commutative, idempotent ordering rule of spec §4.2:
// an incoming event is discarded if the stored lastSeen is already
// strictly greater in (block, txIndex) order; otherwise it overwrites
// lastSeen and updates open accordingly. Callers must hold t.mu.
func (t *Tracker) merge(events []lb.PositionChange) {
	for _, e := range events {
		key := e.Trader.String()
		state, ok := t.positions[key]
		if !ok {
			state = &positionState{}
			t.positions[key] = state
			t.addrByKey[key] = e.Trader
		}

		if state.lastBlock > e.Block || (state.lastBlock == e.Block && state.lastTxIndex > e.TxIndex) {
			continue // stored value is strictly greater than e; discard e
		}

		state.lastBlock = e.Block
		state.lastTxIndex = e.TxIndex
		switch e.Kind {
		case lb.Opened:
			state.open = true
		case lb.Closed:
			state.open = false
		case lb.Modified:
			// no change to open/closed status
		default:
			panic(fmt.Sprintf("tracker: unknown position change kind %v", e.Kind))
		}
	}
}
