// Package txlistener polls an RPC endpoint for a transaction's receipt,
// the way the teacher repo waits for swap/mint confirmations before
// proceeding to the next step of a multi-transaction flow.
package txlistener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/liquidation-bot/liquidation-bot/pkg/txtypes"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultTimeout       = 2 * time.Minute
)

// Option configures a TxListener.
type Option func(*TxListener)

// WithPollInterval sets how often the listener polls for a receipt.
func WithPollInterval(d time.Duration) Option {
	return func(l *TxListener) { l.pollInterval = d }
}

// WithTimeout sets the maximum time WaitForTransaction will wait before
// giving up with ErrTimeout.
func WithTimeout(d time.Duration) Option {
	return func(l *TxListener) { l.timeout = d }
}

// ErrTimeout is returned when a transaction is not mined within the
// configured timeout.
var ErrTimeout = errors.New("txlistener: timed out waiting for transaction")

// ErrReplaced is returned when the transaction's nonce was observed mined
// under a different hash (another transaction replaced it, e.g. a
// resubmission with higher gas).
var ErrReplaced = errors.New("txlistener: transaction replaced")

// TxListener polls for transaction receipts by hash.
type TxListener struct {
	client       *ethclient.Client
	pollInterval time.Duration
	timeout      time.Duration
}

// NewTxListener constructs a TxListener with sane defaults, overridable
// via Option.
func NewTxListener(client *ethclient.Client, opts ...Option) *TxListener {
	l := &TxListener{
		client:       client,
		pollInterval: defaultPollInterval,
		timeout:      defaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WaitForTransaction blocks, polling on the configured interval, until the
// transaction identified by hash is mined, the context is cancelled, or the
// configured timeout elapses.
func (l *TxListener) WaitForTransaction(ctx context.Context, hash common.Hash) (*txtypes.TxReceipt, error) {
	return l.wait(ctx, hash, nil, 0)
}

// WaitForTransactionFrom behaves like WaitForTransaction, but additionally
// detects nonce replacement: if the submitting address's on-chain nonce
// advances past the submitted nonce while hash is still unmined, another
// transaction took its place (e.g. a gas-price bump) and ErrReplaced is
// returned instead of waiting out the full timeout.
func (l *TxListener) WaitForTransactionFrom(ctx context.Context, hash common.Hash, from common.Address, nonce uint64) (*txtypes.TxReceipt, error) {
	return l.wait(ctx, hash, &from, nonce)
}

func (l *TxListener) wait(ctx context.Context, hash common.Hash, from *common.Address, nonce uint64) (*txtypes.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := l.client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			return toTxReceipt(hash, receipt), nil
		case errors.Is(err, ethereum.NotFound):
			if from != nil {
				if mined, err := l.client.NonceAt(ctx, *from, nil); err == nil && mined > nonce {
					return nil, ErrReplaced
				}
			}
		default:
			return nil, fmt.Errorf("fetch receipt for %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func toTxReceipt(hash common.Hash, receipt *gethtypes.Receipt) *txtypes.TxReceipt {
	status := "0x0"
	if receipt.Status == gethtypes.ReceiptStatusSuccessful {
		status = "0x1"
	}

	// Event decoding is contract-specific and left to
	// contractclient.ParseReceipt, which has the ABI; this listener only
	// reports receipt-level status and gas accounting.
	return &txtypes.TxReceipt{
		TxHash:            hash.Hex(),
		BlockNumber:       receipt.BlockNumber.String(),
		GasUsed:           fmt.Sprintf("%d", receipt.GasUsed),
		EffectiveGasPrice: receipt.EffectiveGasPrice.String(),
		Status:            status,
	}
}
