package liquidationbot

import (
	"fmt"
	"time"
)

// Defaults from spec §6.
const (
	DefaultMaxBlocksPerJsonRpcQuery     = 50_000
	DefaultHistoryInterval              = 5 * time.Second
	DefaultRefetchInterval              = 20 * time.Second
	DefaultRecheckInterval              = 5 * time.Second
	DefaultLiquidationRetryInterval     = 1 * time.Second
	DefaultLiquidationDelay             = 0 * time.Second
	DefaultMaxTradersPerLiquidationCheck = 1000
	DefaultGatewayRetries                = 3
)

// SignerConfig selects how the Gateway's transactor key material is
// constructed, by an external collaborator (spec §1) — the pipeline only
// ever sees the resulting Signer interface.
type SignerConfig struct {
	PrivateKeyHex string // mutually exclusive with Mnemonic
	Mnemonic      string
	AccountNumber uint32 // in [0, 199]; derived along the all-hardened path m/44'/60'/0'/0'/{AccountNumber}', not the BIP44 path m/44'/60'/0'/0/{AccountNumber}
}

// Validate checks the signer selection is unambiguous and in range.
func (c SignerConfig) Validate() error {
	hasKey := c.PrivateKeyHex != ""
	hasMnemonic := c.Mnemonic != ""
	if hasKey == hasMnemonic {
		return &ConfigError{Field: "signer", Cause: fmt.Errorf("exactly one of private key or mnemonic must be set")}
	}
	if hasMnemonic && c.AccountNumber > 199 {
		return &ConfigError{Field: "signer.accountNumber", Cause: fmt.Errorf("must be in [0, 199], got %d", c.AccountNumber)}
	}
	return nil
}

// GatewayConfig configures the Chain Gateway.
type GatewayConfig struct {
	Network                 string
	RPC                     string
	DeploymentVersion        DeploymentVersion
	ExchangeAddress          string // v4: single exchange contract
	TradeRouterAddress       string // v4.1: router half of the pair
	ExchangeLedgerAddress    string // v4.1: ledger half of the pair
	LiquidationBotApiAddress string
	MaxBlocksPerJsonRpcQuery uint64
	MaxRetries               int
}

// Validate enforces the "never dial address \"\"" rule from spec §9: a
// resolved-empty contract address is a fatal ConfigError, not a runtime
// dial attempt.
func (c GatewayConfig) Validate() error {
	if c.RPC == "" {
		return &ConfigError{Field: "rpc", Cause: fmt.Errorf("must not be empty")}
	}
	if c.LiquidationBotApiAddress == "" {
		return &ConfigError{Field: "liquidationBotApiAddress", Cause: fmt.Errorf("no default address for network %q, version %q; refusing to dial address \"\"", c.Network, c.DeploymentVersion)}
	}
	switch c.DeploymentVersion {
	case V4:
		if c.ExchangeAddress == "" {
			return &ConfigError{Field: "exchangeAddress", Cause: fmt.Errorf("required for deploymentVersion v4")}
		}
	case V4_1:
		if c.TradeRouterAddress == "" || c.ExchangeLedgerAddress == "" {
			return &ConfigError{Field: "tradeRouterAddress/exchangeLedgerAddress", Cause: fmt.Errorf("both required for deploymentVersion v4.1")}
		}
	default:
		return &ConfigError{Field: "deploymentVersion", Cause: fmt.Errorf("unsupported version %q, want v4 or v4.1", c.DeploymentVersion)}
	}
	if c.MaxBlocksPerJsonRpcQuery == 0 {
		return &ConfigError{Field: "maxBlocksPerJsonRpcQuery", Cause: fmt.Errorf("must be > 0")}
	}
	return nil
}

// TrackerConfig configures the Position Tracker.
type TrackerConfig struct {
	GenesisBlock      uint64
	MaxBlocksPerQuery  uint64
	RefetchInterval    time.Duration
	HistoryInterval    time.Duration
}

// CheckerConfig configures the Liquidatability Checker.
type CheckerConfig struct {
	MaxTradersPerCheck int
	RecheckInterval     time.Duration
}

// LiquidatorConfig configures the Liquidator.
type LiquidatorConfig struct {
	LiquidationDelay  time.Duration
	RetryInterval     time.Duration
}

// ReportingBackend selects which Reporter implementation(s) the
// Coordinator runs.
type ReportingBackend string

const (
	ReportingConsole ReportingBackend = "console"
	ReportingMetrics ReportingBackend = "metrics"
)

// PipelineConfig aggregates every per-stage config plus the reporting
// backend selection — the fully-resolved form of spec §6's enumerated
// configuration, after CLI/YAML parsing and defaulting.
type PipelineConfig struct {
	Gateway   GatewayConfig
	Tracker   TrackerConfig
	Checker   CheckerConfig
	Liquidator LiquidatorConfig
	Signer    SignerConfig
	Reporting ReportingBackend
}

// Validate runs every sub-config's Validate and reports the first failure.
func (c PipelineConfig) Validate() error {
	if err := c.Gateway.Validate(); err != nil {
		return err
	}
	if err := c.Signer.Validate(); err != nil {
		return err
	}
	if c.Tracker.MaxBlocksPerQuery == 0 {
		return &ConfigError{Field: "tracker.maxBlocksPerQuery", Cause: fmt.Errorf("must be > 0")}
	}
	if c.Checker.MaxTradersPerCheck <= 0 {
		return &ConfigError{Field: "checker.maxTradersPerCheck", Cause: fmt.Errorf("must be > 0")}
	}
	switch c.Reporting {
	case ReportingConsole, ReportingMetrics:
	default:
		return &ConfigError{Field: "reporting", Cause: fmt.Errorf("must be console or metrics, got %q", c.Reporting)}
	}
	return nil
}
