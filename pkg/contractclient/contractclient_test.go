package contractclient

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// No live-RPC tests here: the teacher dialed a real node against
// .env.test.local fixtures, which this bot's CI has no access to. Packing,
// unpacking, and decoding are pure functions of the ABI and are tested
// directly instead.
const liquidateABIJSON = `[
	{"type":"function","name":"liquidate","inputs":[{"name":"trader","type":"address"}],"outputs":[]},
	{"type":"event","name":"Liquidated","inputs":[{"name":"trader","type":"address","indexed":true},{"name":"reward","type":"uint256","indexed":false}]}
]`

func mustParseTestABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(liquidateABIJSON))
	require.NoError(t, err)
	return parsed
}

func TestContractClient_AbiAndAddress(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000001")
	parsed := mustParseTestABI(t)
	cc := NewContractClient(nil, addr, parsed)

	require.Equal(t, addr, cc.ContractAddress())
	require.Equal(t, parsed, cc.Abi())
}

func TestContractClient_DecodeTransaction(t *testing.T) {
	parsed := mustParseTestABI(t)
	cc := NewContractClient(nil, common.Address{}, parsed)

	trader := common.HexToAddress("0x00000000000000000000000000000000000002")
	calldata, err := parsed.Pack("liquidate", trader)
	require.NoError(t, err)

	decoded, err := cc.DecodeTransaction(calldata)
	require.NoError(t, err)
	require.Equal(t, "liquidate", decoded.MethodName)
	require.Equal(t, trader, decoded.Parameter["trader"])
}

func TestContractClient_DecodeTransaction_TooShort(t *testing.T) {
	cc := NewContractClient(nil, common.Address{}, mustParseTestABI(t))

	_, err := cc.DecodeTransaction([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestContractClient_ParseReceipt(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000001")
	parsed := mustParseTestABI(t)
	cc := NewContractClient(nil, addr, parsed)

	trader := common.HexToAddress("0x00000000000000000000000000000000000002")
	eventData, err := parsed.Events["Liquidated"].Inputs.NonIndexed().Pack(big.NewInt(5))
	require.NoError(t, err)

	receipt := &gethtypes.Receipt{
		Logs: []*gethtypes.Log{
			{
				Address: addr,
				Topics:  []common.Hash{parsed.Events["Liquidated"].ID, trader.Hash()},
				Data:    eventData,
			},
			{
				Address: common.HexToAddress("0xdeadbeef00000000000000000000000000dead"),
				Topics:  []common.Hash{parsed.Events["Liquidated"].ID},
			},
		},
	}

	decoded, err := cc.ParseReceipt(receipt)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Equal(t, "Liquidated", decoded[0].EventName)
}

func TestContractClient_ParseReceipt_Nil(t *testing.T) {
	cc := NewContractClient(nil, common.Address{}, mustParseTestABI(t))
	_, err := cc.ParseReceipt(nil)
	require.Error(t, err)
}
