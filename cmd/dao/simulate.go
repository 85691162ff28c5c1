package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voteScope/internal/config"
	"voteScope/internal/dao"
	"voteScope/internal/voting"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Pass and execute an existing vote on a forked node",
		RunE:  runSimulate,
	}
	addDecodeFlags(cmd)
	cmd.Flags().String("voter", dao.ConvexVoterProxy.Hex(), "account impersonated to vote and execute")
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if !cfg.HasVote() {
		return fmt.Errorf("--vote-id is required")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	voter, _ := cmd.Flags().GetString("voter")
	if !common.IsHexAddress(voter) {
		return fmt.Errorf("invalid voter address %q", voter)
	}

	category, err := dao.ParseVoteCategory(cfg.VoteType)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := connectChain(ctx, cfg.Common)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	app := voting.ForCategory(category, chainClient, retryPolicy(cfg.Common), logger)
	opts := voting.DefaultSimulateOptions()
	opts.Voter = common.HexToAddress(voter)
	return runSimulation(ctx, cmd.OutOrStdout(), cfg.Output, app, uint64(cfg.VoteID), opts, logger)
}

type simulationReport struct {
	VoteID   uint64 `json:"vote_id" yaml:"vote_id"`
	Voting   string `json:"voting" yaml:"voting"`
	Voter    string `json:"voter" yaml:"voter"`
	TxHash   string `json:"tx_hash" yaml:"tx_hash"`
	GasUsed  uint64 `json:"gas_used" yaml:"gas_used"`
	Executed bool   `json:"executed" yaml:"executed"`
}

func runSimulation(ctx context.Context, w io.Writer, format string, app *voting.Voting, voteID uint64, opts voting.SimulateOptions, logger *zap.Logger) error {
	receipt, err := app.Simulate(ctx, voteID, opts)
	if err != nil {
		return fmt.Errorf("simulate vote %d: %w", voteID, err)
	}

	v, err := app.GetVote(ctx, voteID)
	if err != nil {
		return err
	}
	if !v.Executed {
		logger.Warn("vote not marked executed after simulation", zap.Uint64("vote_id", voteID))
	}

	report := simulationReport{
		VoteID:   voteID,
		Voting:   app.Address.Hex(),
		Voter:    opts.Voter.Hex(),
		TxHash:   receipt.TxHash.Hex(),
		GasUsed:  receipt.GasUsed,
		Executed: v.Executed,
	}
	return writeOutput(w, format, report, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Vote %d executed on fork: tx %s, gas %d\n", report.VoteID, report.TxHash, report.GasUsed)
		return err
	})
}
