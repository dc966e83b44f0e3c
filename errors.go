package liquidationbot

import "fmt"

// TransientChainError marks an RPC-layer failure (timeout, transport drop)
// that callers should retry; the Chain Gateway wraps every retried call in
// a bounded backoff before this error ever reaches a pipeline stage.
type TransientChainError struct {
	Op    string
	Cause error
}

func (e *TransientChainError) Error() string {
	return fmt.Sprintf("transient chain error during %s: %v", e.Op, e.Cause)
}
func (e *TransientChainError) Unwrap() error { return e.Cause }

// RevertError means the chain rejected a transaction outright; it is
// surfaced without retry, per spec §4.1.
type RevertError struct {
	Trader Address
	Cause  error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("liquidation reverted for %s: %v", e.Trader, e.Cause)
}
func (e *RevertError) Unwrap() error { return e.Cause }

// ReplacedError means a submitted transaction's nonce was consumed by a
// different transaction before it was mined (e.g. a resubmission at a
// higher gas price).
type ReplacedError struct {
	Trader Address
	Cause  error
}

func (e *ReplacedError) Error() string {
	return fmt.Sprintf("liquidation tx replaced for %s: %v", e.Trader, e.Cause)
}
func (e *ReplacedError) Unwrap() error { return e.Cause }

// FetchError wraps a Position Tracker scan-window failure. Transient; the
// tracker's state is left unchanged and the next tick retries (spec §4.2).
type FetchError struct {
	From, To uint64
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch position events [%d, %d]: %v", e.From, e.To, e.Cause)
}
func (e *FetchError) Unwrap() error { return e.Cause }

// CheckError names the exact chunk of an open-position snapshot the
// Liquidatability Checker failed to evaluate. The scan continues with the
// next chunk (spec §4.3).
type CheckError struct {
	ChunkStart, ChunkEnd, Total int
	Cause                       error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check liquidatability [%d, %d) of %d: %v", e.ChunkStart, e.ChunkEnd, e.Total, e.Cause)
}
func (e *CheckError) Unwrap() error { return e.Cause }

// LiquidationError wraps a failed submit-or-confirm attempt for a single
// trader. The Liquidator re-qualifies the trader before any retry (spec
// §4.4).
type LiquidationError struct {
	Trader Address
	Cause  error
}

func (e *LiquidationError) Error() string {
	return fmt.Sprintf("liquidate %s: %v", e.Trader, e.Cause)
}
func (e *LiquidationError) Unwrap() error { return e.Cause }

// ConfigError marks a bad startup parameter. Fatal: the process exits with
// non-zero status before the pipeline starts (spec §7).
type ConfigError struct {
	Field string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %v", e.Field, e.Cause)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// InternalError marks an invariant violation (e.g. the Gateway returning a
// result array of the wrong length). Fatal: the pipeline stops and emits a
// terminal Error event before exit (spec §7).
type InternalError struct {
	Invariant string
	Cause     error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal invariant violated (%s): %v", e.Invariant, e.Cause)
}
func (e *InternalError) Unwrap() error { return e.Cause }
