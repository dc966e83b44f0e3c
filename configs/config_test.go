package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	lb "github.com/liquidation-bot/liquidation-bot"
)

const sampleYAML = `
network: avalanche
rpc: https://rpc.example.test
deploymentVersion: v4
contracts:
  exchangeAddress: "0x0000000000000000000000000000000000dEaD"
  liquidationBotApiAddress: "0x0000000000000000000000000000000000bEEF"
genesisBlock: 12345
cadences:
  refetchIntervalSec: 30
reporting: console
signer:
  accountNumber: 2
  chainId: 43114
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "avalanche", cfg.Network)
	require.Equal(t, "v4", cfg.DeploymentVersion)
	require.Equal(t, uint64(12345), cfg.GenesisBlock)
	require.Equal(t, uint32(2), cfg.Signer.AccountNumber)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	require.Error(t, err)
}

func TestToPipelineConfig_AppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	pipeline := cfg.ToPipelineConfig()

	require.Equal(t, 30*time.Second, pipeline.Tracker.RefetchInterval)
	require.Equal(t, lb.DefaultHistoryInterval, pipeline.Tracker.HistoryInterval)
	require.Equal(t, lb.DefaultMaxTradersPerLiquidationCheck, pipeline.Checker.MaxTradersPerCheck)
	require.Equal(t, lb.DefaultGatewayRetries, pipeline.Gateway.MaxRetries)
	require.Equal(t, lb.ReportingConsole, pipeline.Reporting)
	require.Equal(t, "0x0000000000000000000000000000000000dEaD", pipeline.Gateway.ExchangeAddress)
}

func TestToPipelineConfig_SignerAccountNumberCarriesThrough(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	pipeline := cfg.ToPipelineConfig()
	require.Equal(t, uint32(2), pipeline.Signer.AccountNumber)
}
