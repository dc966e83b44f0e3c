// Package contractclient wraps a single on-chain contract (one address,
// one ABI) behind read/write/decode methods, hiding go-ethereum's raw
// abi/bind plumbing from callers such as internal/gateway.
package contractclient

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/liquidation-bot/liquidation-bot/pkg/txtypes"
)

// ContractClient performs read calls, writes, and calldata decoding against
// a single contract address/ABI pair.
type ContractClient interface {
	// Call performs a read-only eth_call and unpacks the outputs.
	// caller may be nil to use the zero address as msg.sender.
	Call(ctx context.Context, caller *common.Address, method string, args ...interface{}) ([]interface{}, error)
	// Send builds, signs (via opts) and submits a transaction, returning
	// its hash immediately without waiting for it to be mined.
	Send(ctx context.Context, kind txtypes.Kind, gasLimit *uint64, opts *bind.TransactOpts, method string, args ...interface{}) (common.Hash, error)
	// TransactionData fetches the raw calldata of a mined transaction.
	TransactionData(ctx context.Context, hash common.Hash) ([]byte, error)
	// DecodeTransaction decodes calldata against this client's ABI.
	DecodeTransaction(data []byte) (*txtypes.DecodedTransaction, error)
	// ParseReceipt decodes every log in a receipt that this contract emitted
	// with an event known to its ABI. Logs from other addresses or with
	// unknown event IDs are skipped; a known event that fails to unpack
	// is returned as an error.
	ParseReceipt(receipt *gethtypes.Receipt) ([]txtypes.Log, error)
	Abi() abi.ABI
	ContractAddress() common.Address
}

type contractClient struct {
	client  *ethclient.Client
	address common.Address
	abi     abi.ABI
}

// NewContractClient binds a single contract address + ABI to an RPC client.
func NewContractClient(client *ethclient.Client, address common.Address, contractAbi abi.ABI) ContractClient {
	return &contractClient{client: client, address: address, abi: contractAbi}
}

func (c *contractClient) Abi() abi.ABI                    { return c.abi }
func (c *contractClient) ContractAddress() common.Address { return c.address }

func (c *contractClient) Call(ctx context.Context, caller *common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &c.address, Data: input}
	if caller != nil {
		msg.From = *caller
	}

	output, err := c.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	outputs, err := c.abi.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return outputs, nil
}

func (c *contractClient) Send(ctx context.Context, kind txtypes.Kind, gasLimit *uint64, opts *bind.TransactOpts, method string, args ...interface{}) (common.Hash, error) {
	if opts == nil {
		return common.Hash{}, fmt.Errorf("send %s: nil signer opts", method)
	}

	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}

	nonce := opts.Nonce
	var nonceVal uint64
	if nonce != nil {
		nonceVal = nonce.Uint64()
	} else {
		nonceVal, err = c.client.PendingNonceAt(ctx, opts.From)
		if err != nil {
			return common.Hash{}, fmt.Errorf("nonce for %s: %w", method, err)
		}
	}

	gas := uint64(0)
	if gasLimit != nil {
		gas = *gasLimit
	} else {
		estimate, err := c.client.EstimateGas(ctx, ethereum.CallMsg{From: opts.From, To: &c.address, Data: input})
		if err != nil {
			return common.Hash{}, fmt.Errorf("estimate gas for %s: %w", method, err)
		}
		gas = estimate
	}

	var rawTx *gethtypes.Transaction
	switch kind {
	case txtypes.Legacy:
		gasPrice := opts.GasPrice
		if gasPrice == nil {
			gasPrice, err = c.client.SuggestGasPrice(ctx)
			if err != nil {
				return common.Hash{}, fmt.Errorf("suggest gas price for %s: %w", method, err)
			}
		}
		rawTx = gethtypes.NewTx(&gethtypes.LegacyTx{
			Nonce:    nonceVal,
			To:       &c.address,
			Value:    valueOrZero(opts.Value),
			Gas:      gas,
			GasPrice: gasPrice,
			Data:     input,
		})
	default:
		tip := opts.GasTipCap
		cap := opts.GasFeeCap
		if tip == nil || cap == nil {
			head, err := c.client.HeaderByNumber(ctx, nil)
			if err != nil {
				return common.Hash{}, fmt.Errorf("header for %s: %w", method, err)
			}
			if tip == nil {
				tip = big.NewInt(1_500_000_000)
			}
			if cap == nil {
				cap = new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
			}
		}
		chainID, err := c.client.NetworkID(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("chain id for %s: %w", method, err)
		}
		rawTx = gethtypes.NewTx(&gethtypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonceVal,
			To:        &c.address,
			Value:     valueOrZero(opts.Value),
			Gas:       gas,
			GasTipCap: tip,
			GasFeeCap: cap,
			Data:      input,
		})
	}

	signed, err := opts.Signer(opts.From, rawTx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign %s: %w", method, err)
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send %s: %w", method, err)
	}

	return signed.Hash(), nil
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func (c *contractClient) TransactionData(ctx context.Context, hash common.Hash) ([]byte, error) {
	tx, _, err := c.client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("fetch tx %s: %w", hash.Hex(), err)
	}
	return tx.Data(), nil
}

func (c *contractClient) DecodeTransaction(data []byte) (*txtypes.DecodedTransaction, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("decode transaction: calldata shorter than a method selector")
	}

	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return nil, fmt.Errorf("decode transaction args for %s: %w", method.Name, err)
	}

	return &txtypes.DecodedTransaction{MethodName: method.Name, Parameter: args}, nil
}

func (c *contractClient) ParseReceipt(receipt *gethtypes.Receipt) ([]txtypes.Log, error) {
	if receipt == nil {
		return nil, fmt.Errorf("parse receipt: nil receipt")
	}

	var decoded []txtypes.Log
	for _, log := range receipt.Logs {
		if log.Address != c.address || len(log.Topics) == 0 {
			continue
		}
		event, err := c.abi.EventByID(log.Topics[0])
		if err != nil {
			continue // not one of this contract's known events
		}
		params := make(map[string]interface{})
		if err := event.Inputs.UnpackIntoMap(params, log.Data); err != nil {
			return nil, fmt.Errorf("unpack event %s: %w", event.Name, err)
		}
		decoded = append(decoded, txtypes.Log{EventName: event.Name, Parameter: params})
	}
	return decoded, nil
}
