// Package txtypes holds the wire-adjacent types shared between
// pkg/contractclient and pkg/txlistener: the kind of transaction being
// submitted, the confirmed receipt shape, and a decoded-call result.
package txtypes

// Kind selects the transaction envelope used when submitting a call.
type Kind int

const (
	// Standard is a plain EIP-1559 dynamic-fee transaction.
	Standard Kind = iota
	// Legacy is a pre-EIP-1559 transaction, kept for chains/providers that
	// reject dynamic-fee envelopes.
	Legacy
)

// Log is a single decoded event log entry.
type Log struct {
	EventName string
	Parameter map[string]interface{}
}

// TxReceipt mirrors the teacher's JSON-RPC-shaped receipt: numeric fields
// are kept as decimal strings rather than *big.Int, so callers decide how
// much precision they need.
type TxReceipt struct {
	TxHash            string
	BlockNumber       string
	GasUsed           string
	EffectiveGasPrice string
	Status            string // "0x1" success, "0x0" reverted
	Logs              []Log
}

// Succeeded reports whether the receipt's status indicates the transaction
// was mined without reverting.
func (r *TxReceipt) Succeeded() bool {
	return r != nil && r.Status == "0x1"
}

// DecodedTransaction is the result of decoding a transaction's calldata
// against a known ABI.
type DecodedTransaction struct {
	MethodName string
	Parameter  map[string]interface{}
}
