// Package liquidationbot wires the Chain Gateway, Position Tracker,
// Liquidatability Checker, and Liquidator into one supervised pipeline
// that finds and liquidates undercollateralized positions on an
// EVM-compatible derivatives exchange.
package liquidationbot

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte account identifier, always compared and rendered
// lowercase regardless of the checksum casing a caller passes in.
type Address struct {
	inner common.Address
}

// NewAddress wraps a go-ethereum address.
func NewAddress(a common.Address) Address { return Address{inner: a} }

// AddressFromHex parses a hex-encoded address, accepting mixed-case
// checksummed input.
func AddressFromHex(hex string) Address {
	return Address{inner: common.HexToAddress(hex)}
}

// Common returns the underlying go-ethereum address value, for callers
// crossing into the go-ethereum API surface (ABI packing, log filters).
func (a Address) Common() common.Address { return a.inner }

// String renders the address lowercase, per spec.
func (a Address) String() string { return strings.ToLower(a.inner.Hex()) }

// Equal compares two addresses case-insensitively (both are stored as the
// same 20 bytes internally, so this is a byte comparison).
func (a Address) Equal(b Address) bool { return a.inner == b.inner }

// Kind classifies a PositionChange by what it did to the trader's position.
type Kind int

const (
	// Opened marks the event that first opens a position (pre-trade size
	// zero on both legs).
	Opened Kind = iota
	// Closed marks the event that fully closes a position (post-trade
	// size zero on both legs).
	Closed
	// Modified marks any other change to an already-open position.
	Modified
)

func (k Kind) String() string {
	switch k {
	case Opened:
		return "Opened"
	case Closed:
		return "Closed"
	case Modified:
		return "Modified"
	default:
		return "Unknown"
	}
}

// PositionChange is a single position-lifecycle event derived from a raw
// chain log by the Chain Gateway, independent of which ABI variant (v4 or
// v4.1) produced it.
type PositionChange struct {
	Trader  Address
	Block   uint64
	TxIndex uint32
	Kind    Kind
}

// Before reports whether c sorts strictly before other in (block, txIndex)
// order — the only ordering this system depends on (spec §5).
func (c PositionChange) Before(other PositionChange) bool {
	if c.Block != other.Block {
		return c.Block < other.Block
	}
	return c.TxIndex < other.TxIndex
}

// Receipt is the outcome of an awaited liquidation transaction.
type Receipt struct {
	TxHash common.Hash
	Status bool // true: mined successfully, false: mined but reverted
}

// TxHandle identifies a submitted, not-yet-confirmed transaction.
type TxHandle struct {
	Hash   common.Hash
	From   Address // the signer's own address, used to detect nonce replacement
	Trader Address // the position being liquidated, attributed on failure
	Nonce  uint64
}

// DeploymentVersion selects which exchange-contract ABI schema the Chain
// Gateway decodes events against.
type DeploymentVersion string

const (
	// V4 is the flat-field position-changed event schema.
	V4 DeploymentVersion = "v4"
	// V4_1 is the nested "cpd" struct position-changed event schema.
	V4_1 DeploymentVersion = "v4.1"
)
