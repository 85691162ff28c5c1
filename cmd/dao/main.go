package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"voteScope/internal/chain"
	"voteScope/internal/config"
	"voteScope/internal/explorer"
	"voteScope/internal/iface"
	"voteScope/internal/retry"
)

func main() {
	root := &cobra.Command{
		Use:          "dao",
		Short:        "Create, decode and simulate Curve DAO votes",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("rpc", "", "Ethereum RPC URL (env WEB3_RPC_URL)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.StringP("output", "o", config.OutputText, "output format (text, json, yaml)")
	pf.Int("max-retries", 3, "maximum retry attempts")
	pf.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	pf.Uint64("chain-id", 1, "chain id for the ABI source")
	pf.String("etherscan-url", explorer.DefaultBaseURL, "Etherscan-compatible API URL")
	pf.String("cheat-namespace", chain.DefaultCheatNamespace, "fork cheat-code RPC namespace (anvil, hardhat)")

	root.AddCommand(
		newDecodeCmd(),
		newInterfaceCmd(),
		newVoteCmd(),
		newSimulateCmd(),
		newAuditCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func retryPolicy(cfg config.Common) retry.Policy {
	policy := retry.DefaultPolicy
	policy.MaxRetries = cfg.MaxRetries
	policy.Backoff = cfg.RetryBackoff
	return policy
}

func newLoader(cfg config.Common, logger *zap.Logger) *iface.Loader {
	source := explorer.NewClient(explorer.Config{
		BaseURL:     cfg.Explorer.BaseURL,
		APIKey:      cfg.Explorer.APIKey,
		ChainID:     cfg.Explorer.ChainID,
		Timeout:     cfg.Explorer.Timeout,
		MinInterval: cfg.Explorer.MinInterval,
		Retry:       retryPolicy(cfg),
	}, logger)
	return iface.NewLoader(source, iface.NewCache(), logger)
}

func connectChain(ctx context.Context, cfg config.Common) (*chain.Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	if cfg.CheatNamespace != "" {
		client.CheatNamespace = cfg.CheatNamespace
	}
	return client, nil
}
