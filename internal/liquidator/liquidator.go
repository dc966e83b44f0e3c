// Package liquidator implements the Liquidator: it holds the working set of
// traders known to be liquidatable, submits liquidation transactions for
// them, and re-qualifies failures before retrying. Grounded on the
// other_examples LiquidationKeeper's check-then-execute-then-requalify
// shape, adapted from a DB-row polling loop to a channel-woken working set.
package liquidator

import (
	"context"
	"sync"
	"time"

	lb "github.com/liquidation-bot/liquidation-bot"
	"github.com/liquidation-bot/liquidation-bot/internal/checker"
	"github.com/liquidation-bot/liquidation-bot/internal/gateway"
)

type pendingEntry struct {
	addr       lb.Address
	enqueuedAt time.Time
	errored    bool
}

// Liquidator owns the pending working set exclusively (spec §5 resource
// model); every method that touches it takes mu.
type Liquidator struct {
	gw      gateway.Gateway
	checker *checker.Checker

	delay         time.Duration
	retryInterval time.Duration

	mu      sync.Mutex
	order   []string // insertion-order keys into pending, for FIFO attempts
	pending map[string]*pendingEntry

	wake chan struct{}
}

// New constructs a Liquidator. checker is used solely for the
// re-qualification step after a failed attempt (spec §4.4 step 5).
func New(gw gateway.Gateway, chk *checker.Checker, cfg lb.LiquidatorConfig) *Liquidator {
	return &Liquidator{
		gw:            gw,
		checker:       chk,
		delay:         cfg.LiquidationDelay,
		retryInterval: cfg.RetryInterval,
		pending:       make(map[string]*pendingEntry),
		wake:          make(chan struct{}, 1),
	}
}

// Enqueue adds every address in addrs to the pending set (addresses
// already pending are left with their original enqueue time) and wakes the
// worker loop.
func (l *Liquidator) Enqueue(addrs []lb.Address) {
	if len(addrs) == 0 {
		return
	}

	l.mu.Lock()
	now := time.Now()
	for _, a := range addrs {
		key := a.String()
		if _, ok := l.pending[key]; ok {
			continue
		}
		l.pending[key] = &pendingEntry{addr: a, enqueuedAt: now}
		l.order = append(l.order, key)
	}
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drives the enqueue → delay → attempt → re-qualify loop of spec §4.4
// until ctx is cancelled. emit is called once per TraderLiquidated,
// LiquidationError, or CheckError event.
func (l *Liquidator) Run(ctx context.Context, emit func(lb.Event)) {
	for {
		if l.isEmpty() {
			select {
			case <-ctx.Done():
				return
			case <-l.wake:
			}
			continue
		}

		hadError := l.attemptRound(ctx, emit)
		if ctx.Err() != nil {
			return
		}

		if !hadError {
			continue
		}

		l.requalify(ctx, emit)
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retryInterval):
		case <-l.wake:
		}
	}
}

func (l *Liquidator) isEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order) == 0
}

// attemptRound makes one FIFO pass over pending, skipping any trader still
// inside its liquidationDelay window, and reports whether at least one
// attempt failed.
func (l *Liquidator) attemptRound(ctx context.Context, emit func(lb.Event)) bool {
	hadError := false

	for _, key := range l.snapshotOrder() {
		if ctx.Err() != nil {
			return hadError
		}

		entry, ok := l.get(key)
		if !ok {
			continue // removed by a concurrent re-qualification pass
		}
		if l.delay > 0 && time.Since(entry.enqueuedAt) < l.delay {
			continue
		}

		handle, err := l.gw.Liquidate(ctx, entry.addr)
		if err == nil {
			_, err = l.gw.Await(ctx, handle)
		}

		if err != nil {
			hadError = true
			l.markErrored(key)
			emit(lb.Event{Kind: lb.EventError, Error: &lb.ErrorPayload{Kind: "liquidation", Cause: asLiquidationError(entry.addr, err)}})
			continue
		}

		l.remove(key)
		emit(lb.Event{
			Kind:             lb.EventTraderLiquidated,
			TraderLiquidated: &lb.TraderLiquidatedPayload{Trader: entry.addr, TxHash: handle.Hash.Hex()},
		})
	}

	return hadError
}

// asLiquidationError reports every failed attempt (submit or confirm) as a
// *lb.LiquidationError attributed to trader, spec §4.4's contract. Liquidate
// already returns one for submit-time failures; Await does not know about
// the working-set entry, so its errors are wrapped here instead of twice.
func asLiquidationError(trader lb.Address, err error) error {
	if le, ok := err.(*lb.LiquidationError); ok {
		return le
	}
	return &lb.LiquidationError{Trader: trader, Cause: err}
}

// requalify re-runs every errored trader through the Checker and drops any
// that are no longer liquidatable (spec §4.4 step 5) — the sole bound on
// retry effort (spec §9 Open Question: no max-attempts counter).
func (l *Liquidator) requalify(ctx context.Context, emit func(lb.Event)) {
	errored := l.erroredAddresses()
	if len(errored) == 0 {
		return
	}

	l.checker.Scan(ctx, errored, func(result checker.ChunkResult) {
		if result.Err != nil {
			emit(lb.Event{Kind: lb.EventError, Error: &lb.ErrorPayload{Kind: "check", Cause: result.Err}})
			return
		}

		stillLiquidatable := make(map[string]bool, len(result.Liquidatable))
		for _, a := range result.Liquidatable {
			stillLiquidatable[a.String()] = true
		}
		for _, a := range errored {
			key := a.String()
			if !stillLiquidatable[key] {
				l.remove(key)
			}
		}
	})
}

func (l *Liquidator) snapshotOrder() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, len(l.order))
	copy(keys, l.order)
	return keys
}

func (l *Liquidator) get(key string) (pendingEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.pending[key]
	if !ok {
		return pendingEntry{}, false
	}
	return *e, true
}

func (l *Liquidator) markErrored(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.pending[key]; ok {
		e.errored = true
	}
}

func (l *Liquidator) erroredAddresses() []lb.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	addrs := make([]lb.Address, 0, len(l.order))
	for _, key := range l.order {
		if e, ok := l.pending[key]; ok && e.errored {
			addrs = append(addrs, e.addr)
		}
	}
	return addrs
}

func (l *Liquidator) remove(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.pending[key]; !ok {
		return
	}
	delete(l.pending, key)
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}
