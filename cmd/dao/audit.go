package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voteScope/internal/audit"
	"voteScope/internal/config"
	"voteScope/internal/dao"
	"voteScope/internal/storage"
	"voteScope/internal/storage/postgres"
	"voteScope/internal/vote"
	"voteScope/internal/voting"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Decode a range of votes and tally the calls they made",
		Example: `  dao audit --vote-type ownership --from-id 300 --function add_gauge --input-index 0
  dao audit --pg-dsn postgres://localhost/dao --checkpoint-enabled`,
		RunE: runAudit,
	}

	category := dao.Ownership
	cmd.Flags().Var(&category, "vote-type", "vote category (ownership, parameter, emergency)")
	cmd.Flags().Uint64("from-id", 0, "first vote id (inclusive)")
	cmd.Flags().Int64("to-id", -1, "last vote id (inclusive), -1 means latest")
	cmd.Flags().Uint64("batch-size", 25, "votes per batch")
	cmd.Flags().StringSlice("function", nil, "only keep calls to these functions")
	cmd.Flags().Int("input-index", 1, "argument position counted in the tally")
	cmd.Flags().String("out", "./data/actions.jsonl", "output JSONL path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN; replaces the JSONL output and file checkpoint")
	cmd.Flags().String("checkpoint", "./data/audit_checkpoint.json", "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	return cmd
}

func runAudit(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAudit(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

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

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	var (
		sink    storage.Storage
		errSink audit.ErrorSink
		state   audit.StateStore
	)
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		sink, errSink = store, store
		if cfg.CheckpointEnabled {
			state = audit.NewNamedState(store, "audit:"+category.String())
		}
	} else {
		jsonl := storage.NewJsonlStorage(cfg.Out)
		sink = jsonl
		errSink = storage.NewJsonlStorage(errorsPath(cfg.Out))
		state = audit.NewCheckpointStore(cfg.Checkpoint, category.String(), cfg.CheckpointEnabled)
	}

	app := voting.ForCategory(category, chainClient, retryPolicy(cfg.Common), logger)
	decoder := vote.NewDecoder(newLoader(cfg.Common, logger), logger)

	runner := audit.NewRunner(audit.RunConfig{
		ChainID:    chainID.Uint64(),
		Category:   category,
		FromID:     cfg.FromID,
		ToID:       cfg.ToID,
		BatchSize:  cfg.BatchSize,
		Functions:  cfg.Functions,
		InputIndex: cfg.InputIndex,
	}, app, decoder, sink, errSink, state, logger)

	logger.Info("audit start",
		zap.Stringer("category", category),
		zap.String("voting", app.Address.Hex()),
		zap.Uint64("from", cfg.FromID),
		zap.Int64("to", cfg.ToID),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Strings("functions", cfg.Functions),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), cfg.Output, report, func(w io.Writer) error {
		return writeAuditReport(w, report, cfg.InputIndex)
	})
}

func errorsPath(out string) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "_errors" + ext
}

func writeAuditReport(w io.Writer, report *audit.Report, inputIndex int) error {
	fmt.Fprintf(w, "Audit %s: %s votes %d..%d\n", report.RunID, report.Category, report.FromID, report.ToID)
	fmt.Fprintf(w, "Votes decoded: %d  Actions: %d  Failures: %d\n", report.Votes, report.Actions, report.Failures)
	if len(report.Tally) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nCalls by function and input %d:\n", inputIndex)
	for _, entry := range report.Tally {
		fmt.Fprintf(w, "  %5d  %s  %s\n", entry.Count, entry.Function, entry.Input)
	}
	return nil
}
