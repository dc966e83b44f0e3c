package gateway

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	lb "github.com/liquidation-bot/liquidation-bot"
)

func TestExtractLegs_FlatV4(t *testing.T) {
	params := map[string]interface{}{
		"previousAsset":  big.NewInt(10),
		"previousStable": big.NewInt(20),
		"newAsset":       big.NewInt(30),
		"newStable":      big.NewInt(40),
	}

	prevAsset, prevStable, newAsset, newStable := extractLegs(params)
	require.Equal(t, big.NewInt(10), prevAsset)
	require.Equal(t, big.NewInt(20), prevStable)
	require.Equal(t, big.NewInt(30), newAsset)
	require.Equal(t, big.NewInt(40), newStable)
}

func TestExtractLegs_NestedV4_1(t *testing.T) {
	type cpdTuple struct {
		StartAsset  *big.Int
		StartStable *big.Int
		TotalAsset  *big.Int
		TotalStable *big.Int
	}
	params := map[string]interface{}{
		"cpd": cpdTuple{
			StartAsset:  big.NewInt(1),
			StartStable: big.NewInt(2),
			TotalAsset:  big.NewInt(3),
			TotalStable: big.NewInt(4),
		},
	}

	prevAsset, prevStable, newAsset, newStable := extractLegs(params)
	require.Equal(t, big.NewInt(1), prevAsset)
	require.Equal(t, big.NewInt(2), prevStable)
	require.Equal(t, big.NewInt(3), newAsset)
	require.Equal(t, big.NewInt(4), newStable)
}

func TestIsZero(t *testing.T) {
	require.True(t, isZero(nil))
	require.True(t, isZero(big.NewInt(0)))
	require.False(t, isZero(big.NewInt(1)))
}

func TestNewBig(t *testing.T) {
	require.Nil(t, newBig(0))
	require.Equal(t, big.NewInt(5), newBig(5))
}

func TestSortPositionChanges(t *testing.T) {
	trader := lb.AddressFromHex("0x0000000000000000000000000000000000000a")
	events := []lb.PositionChange{
		{Trader: trader, Block: 10, TxIndex: 2},
		{Trader: trader, Block: 5, TxIndex: 9},
		{Trader: trader, Block: 10, TxIndex: 0},
	}

	sortPositionChanges(events)

	require.Equal(t, uint64(5), events[0].Block)
	require.Equal(t, uint64(10), events[1].Block)
	require.Equal(t, uint32(0), events[1].TxIndex)
	require.Equal(t, uint32(2), events[2].TxIndex)
}

func TestIsTransient(t *testing.T) {
	trader := lb.AddressFromHex("0x0000000000000000000000000000000000000a")
	require.False(t, isTransient(&lb.RevertError{Trader: trader}))
	require.False(t, isTransient(&lb.ReplacedError{Trader: trader}))
	require.False(t, isTransient(&lb.InternalError{Invariant: "x"}))
	require.False(t, isTransient(&lb.ConfigError{Field: "x"}))
	require.True(t, isTransient(&lb.TransientChainError{Op: "x"}))
	require.True(t, isTransient(errors.New("boom")))
}
