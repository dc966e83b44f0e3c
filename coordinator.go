package liquidationbot

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/liquidation-bot/liquidation-bot/internal/checker"
	"github.com/liquidation-bot/liquidation-bot/internal/liquidator"
	"github.com/liquidation-bot/liquidation-bot/internal/report"
	"github.com/liquidation-bot/liquidation-bot/internal/tracker"
)

// Coordinator wires the Chain Gateway, Position Tracker, Liquidatability
// Checker, and Liquidator into one supervised pipeline (spec §5),
// renamed from the teacher's Blackhole/RunStrategy1 orchestration method.
// Every stage's ticking cadence is driven here, not inside the stage
// itself — Tracker and Checker are pure step functions the Coordinator
// schedules; only Liquidator owns its own internal run loop (it must react
// to Enqueue calls between ticks).
type Coordinator struct {
	tracker    *tracker.Tracker
	checker    *checker.Checker
	liquidator *liquidator.Liquidator

	cfg       PipelineConfig
	reporters []report.Reporter
	logger    *zap.Logger

	events chan Event
}

// NewCoordinator wires the four stages together. The Tracker/Checker/
// Liquidator (each already bound to the same Gateway) and the reporter set
// are all assembled by the caller (cmd/main.go) — the Coordinator only
// owns their scheduling.
func NewCoordinator(trk *tracker.Tracker, chk *checker.Checker, liq *liquidator.Liquidator, cfg PipelineConfig, reporters []report.Reporter, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		tracker:    trk,
		checker:    chk,
		liquidator: liq,
		cfg:        cfg,
		reporters:  reporters,
		logger:     logger,
		events:     make(chan Event, 64),
	}
}

// Run drives every stage until ctx is cancelled or one of them returns an
// error, which cancels the rest via errgroup (spec §5's single shared
// cancellation token). The Reporter fan-out runs outside the group: it
// must keep draining c.events until every other stage has actually
// stopped producing, not merely until ctx is cancelled, or the terminal
// EventBotStopped would race stages still flushing their last events.
func (c *Coordinator) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error { return c.historyLoop(gctx) })
	group.Go(func() error { return c.forwardLoop(gctx) })
	group.Go(func() error { return c.checkLoop(gctx) })
	group.Go(func() error { c.liquidator.Run(gctx, c.emit); return nil })

	reportDone := make(chan struct{})
	go func() {
		defer close(reportDone)
		c.reportLoop()
	}()

	err := group.Wait()

	c.emit(Event{Kind: EventBotStopped})
	close(c.events)
	<-reportDone
	return err
}

func (c *Coordinator) emit(e Event) {
	select {
	case c.events <- e:
	default:
		c.logger.Warn("event buffer full, dropping event", zap.Int("kind", int(e.Kind)))
	}
}

// reportLoop owns the single consumer side of c.events for the whole
// pipeline lifetime, so report.FanOut never runs concurrently with itself.
// It exits only once Run closes c.events, after every producing stage has
// already stopped — so it naturally drains whatever they emitted on the
// way out, including the terminal EventBotStopped.
func (c *Coordinator) reportLoop() {
	for e := range c.events {
		report.FanOut(c.reporters, e, c.logger)
	}
}

// historyLoop steps the Tracker's backward history scan at historyInterval
// until it completes, then returns — spec §3's one-time backfill. Reported
// progress shares the same snapshot publication path as forwardLoop.
func (c *Coordinator) historyLoop(ctx context.Context) error {
	interval := c.cfg.Tracker.HistoryInterval
	if interval <= 0 {
		interval = DefaultHistoryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.tracker.HistoryComplete() {
			return nil
		}
		if err := c.tracker.StepHistory(ctx); err != nil {
			c.emit(Event{Kind: EventError, Error: &ErrorPayload{Kind: "fetch", Cause: err}})
		} else {
			c.publishSnapshot()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// forwardLoop steps the Tracker forward at refetchInterval for the process
// lifetime (spec §3's steady-state polling).
func (c *Coordinator) forwardLoop(ctx context.Context) error {
	interval := c.cfg.Tracker.RefetchInterval
	if interval <= 0 {
		interval = DefaultRefetchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := c.tracker.StepForward(ctx); err != nil {
			c.emit(Event{Kind: EventError, Error: &ErrorPayload{Kind: "fetch", Cause: err}})
			continue
		}
		c.publishSnapshot()
	}
}

func (c *Coordinator) publishSnapshot() {
	open := c.tracker.OpenPositions()
	c.emit(Event{Kind: EventTradersFetched, TradersFetched: &TradersFetchedPayload{
		Count:             len(open),
		HistoryComplete:   c.tracker.HistoryComplete(),
		HistoryBlocksLeft: c.tracker.HistoryBlocksLeft(),
	}})
}

// checkLoop pulls the Tracker's current open-position set directly at its
// own recheckInterval cadence and hands every liquidatable trader it finds
// to the Liquidator (spec §4.3/§4.4 handoff). It must not wait on a push
// from historyLoop/forwardLoop: those run at HistoryInterval/RefetchInterval,
// which are typically slower than recheckInterval, and liquidatability can
// change from price movement alone without the open-position set changing
// at all — gating the scan on a fresh snapshot would throttle the Checker
// down to the Tracker's cadence instead of its own.
func (c *Coordinator) checkLoop(ctx context.Context) error {
	interval := c.cfg.Checker.RecheckInterval
	if interval <= 0 {
		interval = DefaultRecheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		snapshot := c.tracker.OpenPositions()

		var internalErr error
		c.checker.Scan(ctx, snapshot, func(result checker.ChunkResult) {
			if result.Err != nil {
				c.emit(Event{Kind: EventError, Error: &ErrorPayload{Kind: "check", Cause: result.Err}})
				if ie, ok := result.Err.Cause.(*InternalError); ok && internalErr == nil {
					internalErr = ie
				}
				return
			}
			c.emit(Event{Kind: EventTradersChecked, TradersChecked: &TradersCheckedPayload{Liquidatable: result.Liquidatable}})
			c.liquidator.Enqueue(result.Liquidatable)
		})
		if internalErr != nil {
			return internalErr
		}
	}
}
