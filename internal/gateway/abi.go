package gateway

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI fragments for the three contract surfaces this bot touches.
// Real deployments would load these from a Hardhat artifact via
// internal/util.LoadABIFromHardhatArtifact; they are inlined here because
// the event/method signatures are fixed by spec §6 and never vary per
// deployment the way a full contract ABI would.

const positionChangedV4ABI = `[
	{
		"anonymous": false,
		"name": "PositionChanged",
		"type": "event",
		"inputs": [
			{"name": "trader", "type": "address", "indexed": true},
			{"name": "previousAsset", "type": "uint256", "indexed": false},
			{"name": "previousStable", "type": "uint256", "indexed": false},
			{"name": "newAsset", "type": "uint256", "indexed": false},
			{"name": "newStable", "type": "uint256", "indexed": false}
		]
	},
	{
		"name": "liquidate",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "trader", "type": "address"}],
		"outputs": []
	}
]`

const positionChangedV4_1ABI = `[
	{
		"anonymous": false,
		"name": "PositionChanged",
		"type": "event",
		"inputs": [
			{"name": "trader", "type": "address", "indexed": true},
			{
				"name": "cpd",
				"type": "tuple",
				"indexed": false,
				"components": [
					{"name": "startAsset", "type": "uint256"},
					{"name": "startStable", "type": "uint256"},
					{"name": "totalAsset", "type": "uint256"},
					{"name": "totalStable", "type": "uint256"}
				]
			}
		]
	}
]`

const liquidateV4_1ABI = `[
	{
		"name": "liquidate",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "trader", "type": "address"}],
		"outputs": []
	}
]`

const liquidationBotAPIABI = `[
	{
		"name": "isLiquidatable",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "exchange", "type": "address"},
			{"name": "traders", "type": "address[]"}
		],
		"outputs": [{"name": "", "type": "bool[]"}]
	}
]`

func mustParseABI(json string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(json))
	if err != nil {
		panic("gateway: invalid inlined ABI literal: " + err.Error())
	}
	return parsed
}
