// Package checker implements the Liquidatability Checker: given a snapshot
// of open positions, it produces the subset currently eligible for
// liquidation, in configurable-size chunks, tolerating per-chunk failures.
package checker

import (
	"context"

	lb "github.com/liquidation-bot/liquidation-bot"
	"github.com/liquidation-bot/liquidation-bot/internal/gateway"
)

// ChunkResult is one partial result from a Scan: exactly one of
// Liquidatable or Err is set.
type ChunkResult struct {
	Liquidatable []lb.Address
	Err          *lb.CheckError
}

// Checker scans an open-position snapshot against the Gateway's batched
// IsLiquidatable call.
type Checker struct {
	gw                 gateway.Gateway
	maxTradersPerCheck int
}

// New constructs a Checker. maxTradersPerCheck must be positive; callers
// validate this at config-load time (lb.PipelineConfig.Validate), not here.
func New(gw gateway.Gateway, maxTradersPerCheck int) *Checker {
	return &Checker{gw: gw, maxTradersPerCheck: maxTradersPerCheck}
}

// Scan partitions snapshot into chunks of maxTradersPerCheck, in input
// order, and calls emit once per chunk. A chunk failure does not abort the
// scan: the next chunk is still attempted (spec §4.3). emit is called
// synchronously from Scan's goroutine; it must not block.
func (c *Checker) Scan(ctx context.Context, snapshot []lb.Address, emit func(ChunkResult)) {
	total := len(snapshot)
	for start := 0; start < total; start += c.maxTradersPerCheck {
		if ctx.Err() != nil {
			return
		}

		end := start + c.maxTradersPerCheck
		if end > total {
			end = total
		}
		chunk := snapshot[start:end]

		results, err := c.gw.IsLiquidatable(ctx, chunk)
		if err != nil {
			emit(ChunkResult{Err: &lb.CheckError{ChunkStart: start, ChunkEnd: end, Total: total, Cause: err}})
			continue
		}

		liquidatable := make([]lb.Address, 0, len(chunk))
		for i, ok := range results {
			if ok {
				liquidatable = append(liquidatable, chunk[i])
			}
		}
		emit(ChunkResult{Liquidatable: liquidatable})
	}
}
