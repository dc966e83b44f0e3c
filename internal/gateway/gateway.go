// Package gateway hides the two supported exchange-contract ABI schema
// variants ("v4" and "v4.1") behind a single interface, the way the
// teacher's Blackhole type hid per-contract ABI differences behind one
// ContractClient method set.
package gateway

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	lb "github.com/liquidation-bot/liquidation-bot"
	"github.com/liquidation-bot/liquidation-bot/pkg/contractclient"
	"github.com/liquidation-bot/liquidation-bot/pkg/txlistener"
	"github.com/liquidation-bot/liquidation-bot/pkg/txtypes"
)

const callTimeout = 30 * time.Second

// Gateway is the only component in this bot aware that two different
// exchange-contract ABI schemas exist; everything downstream is polymorphic
// over lb.PositionChange alone (spec §9).
type Gateway interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	// FetchPositionEvents returns position-lifecycle events for the
	// inclusive range [from, to], ordered by (block, txIndex) ascending.
	FetchPositionEvents(ctx context.Context, from, to uint64) ([]lb.PositionChange, error)
	// IsLiquidatable batches a read-only eligibility check; the result
	// slice is always the same length as batch.
	IsLiquidatable(ctx context.Context, batch []lb.Address) ([]bool, error)
	Liquidate(ctx context.Context, trader lb.Address) (lb.TxHandle, error)
	Await(ctx context.Context, handle lb.TxHandle) (lb.Receipt, error)
}

type gateway struct {
	client *ethclient.Client

	eventABI     abi.ABI
	eventAddress common.Address

	liquidateClient contractclient.ContractClient
	checkerClient   contractclient.ContractClient

	signer   Signer
	listener *txlistener.TxListener

	maxRetries int
	logger     *zap.Logger
}

// New builds the production Gateway for cfg.DeploymentVersion, binding the
// event-decoding contract, the liquidate-call contract, and the
// liquidation-check contract according to spec §4.1/§6.
func New(cfg lb.GatewayConfig, client *ethclient.Client, signer Signer, logger *zap.Logger) (Gateway, error) {
	checkerABI := mustParseABI(liquidationBotAPIABI)
	checkerClient := contractclient.NewContractClient(client, common.HexToAddress(cfg.LiquidationBotApiAddress), checkerABI)

	g := &gateway{
		client:        client,
		checkerClient: checkerClient,
		signer:        signer,
		listener:      txlistener.NewTxListener(client, txlistener.WithPollInterval(2*time.Second), txlistener.WithTimeout(2*time.Minute)),
		maxRetries:    cfg.MaxRetries,
		logger:        logger,
	}

	switch cfg.DeploymentVersion {
	case lb.V4:
		combined := mustParseABI(positionChangedV4ABI)
		g.eventABI = combined
		g.eventAddress = common.HexToAddress(cfg.ExchangeAddress)
		g.liquidateClient = contractclient.NewContractClient(client, g.eventAddress, combined)
	case lb.V4_1:
		g.eventABI = mustParseABI(positionChangedV4_1ABI)
		g.eventAddress = common.HexToAddress(cfg.ExchangeLedgerAddress)
		liquidateABI := mustParseABI(liquidateV4_1ABI)
		g.liquidateClient = contractclient.NewContractClient(client, common.HexToAddress(cfg.TradeRouterAddress), liquidateABI)
	default:
		return nil, &lb.ConfigError{Field: "deploymentVersion", Cause: fmt.Errorf("unsupported version %q", cfg.DeploymentVersion)}
	}

	return g, nil
}

// retry wraps fn with the bounded exponential backoff spec §4.1 requires:
// up to maxRetries attempts for errors classified as transient, none for
// RevertError/ReplacedError/InternalError/ConfigError. The returned error,
// on exhaustion, is always an *lb.TransientChainError; permanent
// classifications are returned unwrapped.
func (g *gateway) retry(ctx context.Context, op string, fn func() error) error {
	classify := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		g.logger.Warn("retrying transient chain error", zap.String("op", op), zap.Error(err))
		return &lb.TransientChainError{Op: op, Cause: err}
	}

	if g.maxRetries <= 1 {
		err := classify()
		if perm, ok := err.(*backoff.PermanentError); ok {
			return perm.Err
		}
		return err
	}

	// WithMaxRetries counts retries after the first attempt.
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(g.maxRetries-1)), ctx)
	return backoff.Retry(classify, policy)
}

// isTransient decides whether an error from the RPC layer is worth
// retrying. RevertError and ReplacedError are deliberately excluded: spec
// §4.1 surfaces those without retry. InternalError marks an invariant
// violation no retry would fix.
func isTransient(err error) bool {
	switch err.(type) {
	case *lb.RevertError, *lb.ReplacedError, *lb.InternalError, *lb.ConfigError:
		return false
	default:
		return true
	}
}

func (g *gateway) CurrentBlock(ctx context.Context) (uint64, error) {
	var block uint64
	err := g.retry(ctx, "CurrentBlock", func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		n, err := g.client.BlockNumber(callCtx)
		if err != nil {
			return err
		}
		block = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return block, nil
}

func (g *gateway) FetchPositionEvents(ctx context.Context, from, to uint64) ([]lb.PositionChange, error) {
	var events []lb.PositionChange
	err := g.retry(ctx, "FetchPositionEvents", func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		query := ethereum.FilterQuery{
			FromBlock: newBig(from),
			ToBlock:   newBig(to),
			Addresses: []common.Address{g.eventAddress},
			Topics:    [][]common.Hash{{g.eventABI.Events["PositionChanged"].ID}},
		}
		logs, err := g.client.FilterLogs(callCtx, query)
		if err != nil {
			return err
		}

		decoded := make([]lb.PositionChange, 0, len(logs))
		for _, log := range logs {
			change, err := g.decodePositionChanged(log)
			if err != nil {
				return err
			}
			decoded = append(decoded, change)
		}
		events = decoded
		return nil
	})
	if err != nil {
		return nil, &lb.FetchError{From: from, To: to, Cause: err}
	}

	sortPositionChanges(events)
	return events, nil
}

// decodePositionChanged maps a raw log to the common lb.PositionChange
// shape, hiding which ABI schema produced it (spec §4.1/§6).
func (g *gateway) decodePositionChanged(log gethtypes.Log) (lb.PositionChange, error) {
	if len(log.Topics) < 2 {
		return lb.PositionChange{}, fmt.Errorf("position-changed log missing indexed trader topic")
	}
	trader := lb.NewAddress(common.BytesToAddress(log.Topics[1].Bytes()))

	params := make(map[string]interface{})
	if err := g.eventABI.UnpackIntoMap(params, "PositionChanged", log.Data); err != nil {
		return lb.PositionChange{}, fmt.Errorf("unpack PositionChanged: %w", err)
	}

	var prevAsset, prevStable, newAsset, newStable = extractLegs(params)

	kind := lb.Modified
	switch {
	case isZero(prevAsset) && isZero(prevStable):
		kind = lb.Opened
	case isZero(newAsset) && isZero(newStable):
		kind = lb.Closed
	}

	return lb.PositionChange{
		Trader:  trader,
		Block:   log.BlockNumber,
		TxIndex: uint32(log.TxIndex),
		Kind:    kind,
	}, nil
}

func (g *gateway) IsLiquidatable(ctx context.Context, batch []lb.Address) ([]bool, error) {
	exchange := g.eventAddress
	addrs := make([]common.Address, len(batch))
	for i, a := range batch {
		addrs[i] = a.Common()
	}

	var result []bool
	err := g.retry(ctx, "IsLiquidatable", func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		outputs, err := g.checkerClient.Call(callCtx, nil, "isLiquidatable", exchange, addrs)
		if err != nil {
			return err
		}
		if len(outputs) != 1 {
			return &lb.InternalError{Invariant: "isLiquidatable returns exactly one output", Cause: fmt.Errorf("got %d outputs", len(outputs))}
		}
		bools, ok := outputs[0].([]bool)
		if !ok {
			return &lb.InternalError{Invariant: "isLiquidatable output is []bool", Cause: fmt.Errorf("got %T", outputs[0])}
		}
		result = bools
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(result) != len(batch) {
		return nil, &lb.InternalError{Invariant: "isLiquidatable result length equals input length", Cause: fmt.Errorf("got %d results for %d traders", len(result), len(batch))}
	}
	return result, nil
}

func (g *gateway) Liquidate(ctx context.Context, trader lb.Address) (lb.TxHandle, error) {
	opts, err := g.signer.TransactOpts(ctx)
	if err != nil {
		return lb.TxHandle{}, &lb.LiquidationError{Trader: trader, Cause: fmt.Errorf("signer: %w", err)}
	}

	// Resolve the nonce here, once, rather than inside contractclient.Send:
	// Await's replacement detection needs the exact submitted nonce, and
	// spec §5 requires liquidations be submitted sequentially against a
	// single nonce source.
	nonce, err := g.client.PendingNonceAt(ctx, opts.From)
	if err != nil {
		return lb.TxHandle{}, &lb.LiquidationError{Trader: trader, Cause: fmt.Errorf("resolve nonce: %w", err)}
	}
	opts.Nonce = new(big.Int).SetUint64(nonce)

	var hash common.Hash
	err = g.retry(ctx, "Liquidate", func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		h, err := g.liquidateClient.Send(callCtx, txtypes.Standard, nil, opts, "liquidate", trader.Common())
		if err != nil {
			return err
		}
		hash = h
		return nil
	})
	if err != nil {
		return lb.TxHandle{}, &lb.LiquidationError{Trader: trader, Cause: err}
	}

	return lb.TxHandle{Hash: hash, From: g.signer.Address(), Trader: trader, Nonce: nonce}, nil
}

func (g *gateway) Await(ctx context.Context, handle lb.TxHandle) (lb.Receipt, error) {
	receipt, err := g.listener.WaitForTransactionFrom(ctx, handle.Hash, handle.From.Common(), handle.Nonce)
	switch {
	case err == nil:
		if !receipt.Succeeded() {
			return lb.Receipt{}, &lb.RevertError{Trader: handle.Trader, Cause: fmt.Errorf("tx %s mined with reverted status", handle.Hash)}
		}
		return lb.Receipt{TxHash: handle.Hash, Status: true}, nil
	case err == txlistener.ErrReplaced:
		return lb.Receipt{}, &lb.ReplacedError{Trader: handle.Trader, Cause: err}
	case err == txlistener.ErrTimeout:
		return lb.Receipt{}, &lb.TransientChainError{Op: "Await", Cause: err}
	default:
		return lb.Receipt{}, &lb.TransientChainError{Op: "Await", Cause: err}
	}
}
