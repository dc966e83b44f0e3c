// Command liquidation-bot runs the Chain Gateway, Position Tracker,
// Liquidatability Checker, and Liquidator as one supervised pipeline until
// it receives a stop signal or hits an unrecoverable error.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	lb "github.com/liquidation-bot/liquidation-bot"
	"github.com/liquidation-bot/liquidation-bot/configs"
	"github.com/liquidation-bot/liquidation-bot/internal/checker"
	"github.com/liquidation-bot/liquidation-bot/internal/db"
	"github.com/liquidation-bot/liquidation-bot/internal/gateway"
	"github.com/liquidation-bot/liquidation-bot/internal/liquidator"
	"github.com/liquidation-bot/liquidation-bot/internal/report"
	"github.com/liquidation-bot/liquidation-bot/internal/tracker"
	"github.com/liquidation-bot/liquidation-bot/internal/util"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env directly

	app := &cli.App{
		Name:  "liquidation-bot",
		Usage: "find and liquidate undercollateralized positions on an EVM exchange",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "configs/config.yml", Usage: "path to config.yml"},
			&cli.StringFlag{Name: "mysql-dsn", EnvVars: []string{"LIQUIDATION_BOT_MYSQL_DSN"}, Usage: "MySQL DSN backing the metrics reporter's audit log"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := configs.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pipelineCfg := cfg.ToPipelineConfig()
	pipelineCfg.Signer, err = resolveSigner(cfg.Signer)
	if err != nil {
		return err
	}

	if err := pipelineCfg.Validate(); err != nil {
		return err
	}

	signer, err := newSigner(pipelineCfg.Signer, cfg.Signer.ChainID)
	if err != nil {
		return fmt.Errorf("build signer: %w", err)
	}

	client, err := ethclient.Dial(pipelineCfg.Gateway.RPC)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	defer client.Close()

	gw, err := gateway.New(pipelineCfg.Gateway, client, signer, logger)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	trk := tracker.New(gw, pipelineCfg.Tracker.GenesisBlock, pipelineCfg.Tracker.MaxBlocksPerQuery)
	chk := checker.New(gw, pipelineCfg.Checker.MaxTradersPerCheck)
	liq := liquidator.New(gw, chk, pipelineCfg.Liquidator)

	reporters, err := buildReporters(pipelineCfg.Reporting, c.String("mysql-dsn"), logger)
	if err != nil {
		return fmt.Errorf("build reporters: %w", err)
	}

	coord := lb.NewCoordinator(trk, chk, liq, pipelineCfg, reporters, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("liquidation-bot starting",
		zap.String("network", pipelineCfg.Gateway.Network),
		zap.String("deploymentVersion", string(pipelineCfg.Gateway.DeploymentVersion)),
		zap.String("reporting", string(pipelineCfg.Reporting)),
	)

	if err := coord.Run(ctx); err != nil {
		return fmt.Errorf("pipeline stopped: %w", err)
	}

	logger.Info("liquidation-bot stopped cleanly")
	return nil
}

// resolveSigner reads whichever secret the YAML's signer block names out of
// the process environment (populated by godotenv.Load above or the
// deployment's own secrets injection) and fills in PipelineConfig's Signer,
// leaving key material out of the YAML file entirely.
func resolveSigner(sc configs.SignerYAML) (lb.SignerConfig, error) {
	switch {
	case sc.PrivateKeyEnv != "":
		encrypted := os.Getenv(sc.PrivateKeyEnv)
		if encrypted == "" {
			return lb.SignerConfig{}, &lb.ConfigError{Field: "signer.privateKeyEnv", Cause: fmt.Errorf("environment variable %q is not set", sc.PrivateKeyEnv)}
		}
		decryptKey := os.Getenv(sc.DecryptionKeyEnv)
		if decryptKey == "" {
			return lb.SignerConfig{}, &lb.ConfigError{Field: "signer.decryptionKeyEnv", Cause: fmt.Errorf("environment variable %q is not set", sc.DecryptionKeyEnv)}
		}
		hexKey, err := util.Decrypt([]byte(decryptKey), encrypted)
		if err != nil {
			return lb.SignerConfig{}, &lb.ConfigError{Field: "signer", Cause: fmt.Errorf("decrypt private key: %w", err)}
		}
		return lb.SignerConfig{PrivateKeyHex: hexKey, AccountNumber: sc.AccountNumber}, nil

	case sc.MnemonicEnv != "":
		mnemonic := os.Getenv(sc.MnemonicEnv)
		if mnemonic == "" {
			return lb.SignerConfig{}, &lb.ConfigError{Field: "signer.mnemonicEnv", Cause: fmt.Errorf("environment variable %q is not set", sc.MnemonicEnv)}
		}
		return lb.SignerConfig{Mnemonic: mnemonic, AccountNumber: sc.AccountNumber}, nil

	default:
		return lb.SignerConfig{}, &lb.ConfigError{Field: "signer", Cause: fmt.Errorf("exactly one of privateKeyEnv or mnemonicEnv must be set")}
	}
}

func newSigner(sc lb.SignerConfig, chainID int64) (gateway.Signer, error) {
	if sc.PrivateKeyHex != "" {
		return gateway.NewPrivateKeySigner(sc.PrivateKeyHex, chainID)
	}
	return gateway.NewMnemonicSigner(sc.Mnemonic, sc.AccountNumber, chainID)
}

// buildReporters assembles the Reporter fan-out list for the resolved
// reporting backend. "metrics" always runs alongside a console reporter so
// startup/shutdown is visible in the process's own logs even when
// operators are driving off Prometheus.
func buildReporters(backend lb.ReportingBackend, mysqlDSN string, logger *zap.Logger) ([]report.Reporter, error) {
	reporters := []report.Reporter{report.NewConsoleReporter(logger)}

	if backend != lb.ReportingMetrics {
		return reporters, nil
	}

	var recorder *db.MySQLRecorder
	if mysqlDSN != "" {
		rec, err := db.NewMySQLRecorder(mysqlDSN)
		if err != nil {
			return nil, fmt.Errorf("connect audit log: %w", err)
		}
		recorder = rec
	} else {
		logger.Warn("reporting=metrics but no mysql-dsn set; liquidation audit log disabled")
	}

	reporters = append(reporters, report.NewMetricsReporter(prometheus.DefaultRegisterer, recorder, logger))
	return reporters, nil
}
