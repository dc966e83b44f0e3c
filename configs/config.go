// Package configs loads the bot's YAML configuration file and converts it
// into the strongly-typed liquidationbot.PipelineConfig the rest of the
// program runs on — the same "raw YAML struct, then ToXConfig" shape the
// teacher used for its strategy/contract-client configuration.
package configs

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	lb "github.com/liquidation-bot/liquidation-bot"
)

// Config is the root shape of config.yml.
type Config struct {
	Network                  string        `yaml:"network"`
	RPC                      string        `yaml:"rpc"`
	DeploymentVersion        string        `yaml:"deploymentVersion"`
	Contracts                ContractsYAML `yaml:"contracts"`
	GenesisBlock             uint64        `yaml:"genesisBlock"`
	Cadences                 CadencesYAML  `yaml:"cadences"`
	MaxTradersPerCheck       int           `yaml:"maxTradersPerLiquidationCheck"`
	Reporting                string        `yaml:"reporting"`
	Signer                   SignerYAML    `yaml:"signer"`
	MaxBlocksPerJsonRpcQuery uint64        `yaml:"maxBlocksPerJsonRpcQuery"`
	MaxGatewayRetries        int           `yaml:"maxGatewayRetries"`
}

// ContractsYAML addresses every contract the Gateway may need, across both
// deployment-version schemas; only the fields the resolved
// DeploymentVersion requires must be non-empty.
type ContractsYAML struct {
	ExchangeAddress          string `yaml:"exchangeAddress"`
	TradeRouterAddress       string `yaml:"tradeRouterAddress"`
	ExchangeLedgerAddress    string `yaml:"exchangeLedgerAddress"`
	LiquidationBotApiAddress string `yaml:"liquidationBotApiAddress"`
}

// CadencesYAML holds every polling/retry interval, expressed in seconds in
// the YAML file and converted to time.Duration on load.
type CadencesYAML struct {
	HistoryIntervalSec          int `yaml:"historyIntervalSec"`
	RefetchIntervalSec          int `yaml:"refetchIntervalSec"`
	RecheckIntervalSec          int `yaml:"recheckIntervalSec"`
	LiquidationRetryIntervalSec int `yaml:"liquidationRetryIntervalSec"`
	LiquidationDelaySec         int `yaml:"liquidationDelaySec"`
}

// SignerYAML selects the signer construction method. Exactly one of
// PrivateKeyEnv or MnemonicEnv should be set; both name environment
// variables (populated via godotenv in cmd/main.go) rather than literal
// secrets in the YAML file itself.
type SignerYAML struct {
	PrivateKeyEnv    string `yaml:"privateKeyEnv"`
	DecryptionKeyEnv string `yaml:"decryptionKeyEnv"`
	MnemonicEnv      string `yaml:"mnemonicEnv"`
	AccountNumber    uint32 `yaml:"accountNumber"`
	ChainID          int64  `yaml:"chainId"`
}

// LoadConfig reads and parses config.yml into a Config struct.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &config, nil
}

// ToPipelineConfig converts the raw YAML shape into the typed
// liquidationbot.PipelineConfig the Coordinator is built from, applying
// spec §6 defaults for every zero-valued cadence/limit field.
func (c *Config) ToPipelineConfig() lb.PipelineConfig {
	return lb.PipelineConfig{
		Gateway: lb.GatewayConfig{
			Network:                  c.Network,
			RPC:                      c.RPC,
			DeploymentVersion:        lb.DeploymentVersion(c.DeploymentVersion),
			ExchangeAddress:          c.Contracts.ExchangeAddress,
			TradeRouterAddress:       c.Contracts.TradeRouterAddress,
			ExchangeLedgerAddress:    c.Contracts.ExchangeLedgerAddress,
			LiquidationBotApiAddress: c.Contracts.LiquidationBotApiAddress,
			MaxBlocksPerJsonRpcQuery: orDefaultU64(c.MaxBlocksPerJsonRpcQuery, lb.DefaultMaxBlocksPerJsonRpcQuery),
			MaxRetries:               orDefaultInt(c.MaxGatewayRetries, lb.DefaultGatewayRetries),
		},
		Tracker: lb.TrackerConfig{
			GenesisBlock:      c.GenesisBlock,
			MaxBlocksPerQuery: orDefaultU64(c.MaxBlocksPerJsonRpcQuery, lb.DefaultMaxBlocksPerJsonRpcQuery),
			RefetchInterval:   orDefaultDuration(c.Cadences.RefetchIntervalSec, lb.DefaultRefetchInterval),
			HistoryInterval:   orDefaultDuration(c.Cadences.HistoryIntervalSec, lb.DefaultHistoryInterval),
		},
		Checker: lb.CheckerConfig{
			MaxTradersPerCheck: orDefaultInt(c.MaxTradersPerCheck, lb.DefaultMaxTradersPerLiquidationCheck),
			RecheckInterval:    orDefaultDuration(c.Cadences.RecheckIntervalSec, lb.DefaultRecheckInterval),
		},
		Liquidator: lb.LiquidatorConfig{
			LiquidationDelay: orDefaultDuration(c.Cadences.LiquidationDelaySec, lb.DefaultLiquidationDelay),
			RetryInterval:    orDefaultDuration(c.Cadences.LiquidationRetryIntervalSec, lb.DefaultLiquidationRetryInterval),
		},
		Signer: lb.SignerConfig{
			AccountNumber: c.Signer.AccountNumber,
		},
		Reporting: lb.ReportingBackend(c.Reporting),
	}
}

func orDefaultU64(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultDuration(secs int, def time.Duration) time.Duration {
	if secs == 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}
