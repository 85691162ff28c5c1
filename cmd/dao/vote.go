package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voteScope/internal/chain"
	"voteScope/internal/config"
	"voteScope/internal/dao"
	"voteScope/internal/vote"
	"voteScope/internal/voting"
)

// buildAction turns the loaded settings into a DAO action. client is nil in
// dry runs without an RPC URL.
type buildAction func(ctx context.Context, cfg config.VoteConfig, client *chain.Client, logger *zap.Logger) (dao.Action, error)

func newVoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Create a DAO vote",
	}

	category := dao.Ownership
	pf := cmd.PersistentFlags()
	pf.Var(&category, "vote-type", "vote category (ownership, parameter, emergency)")
	pf.String("creator", "", "account that creates the vote (must hold enough veCRV)")
	pf.String("description", "", "vote description stored as metadata")
	pf.Bool("simulate", false, "impersonate the creator, then pass and execute the vote on a fork")
	pf.Bool("dry-run", false, "print the decoded script without creating a vote")

	whitelist := voteSubcommand("whitelist", "Allow a smart contract wallet to lock CRV", buildWhitelist)
	whitelist.Flags().String("address", "", "wallet address")

	killGauge := voteSubcommand("kill-gauge", "Kill or revive a gauge", buildKillGauge)
	killGauge.Flags().String("address", "", "gauge address")
	killGauge.Flags().String("pool-type", string(dao.Stableswap), "gauge pool type")
	killGauge.Flags().Bool("kill", true, "kill (true) or revive (false)")

	params := voteSubcommand("change-parameters", "Ramp A/gamma or commit new fees for a pool", buildParameterChange)
	params.Flags().String("address", "", "pool address")
	params.Flags().String("pool-type", "", "pool type (stableswap, stableswap_factory, crypto_factory, tricrypto_ng)")
	params.Flags().StringSlice("param", nil, "parameters as name=value, e.g. A=400000,future_time=2024-06-01T00:00:00Z")

	ceiling := voteSubcommand("pegkeeper-debt-ceiling", "Set a peg keeper debt ceiling", buildDebtCeiling)
	ceiling.Flags().String("address", "", "peg keeper address")
	ceiling.Flags().String("ceiling", "", "new debt ceiling in crvUSD wei")

	fund := voteSubcommand("community-fund", "Grant vested CRV from the community fund", buildVestingGrant)
	fund.Flags().String("recipient", "", "grant recipient")
	fund.Flags().String("amount", "", "CRV amount in wei")
	fund.Flags().Duration("duration", dao.DefaultVestingDuration, "vesting duration, at least one year")
	fund.Flags().Bool("allow-disable", true, "let the DAO disable the grant")

	cmd.AddCommand(whitelist, killGauge, params, ceiling, fund)
	return cmd
}

func voteSubcommand(use, short string, build buildAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVote(cmd, build)
		},
	}
}

// scriptReport is the output of a vote command.
type scriptReport struct {
	Category string            `json:"category" yaml:"category"`
	Agent    string            `json:"agent" yaml:"agent"`
	Voting   string            `json:"voting" yaml:"voting"`
	Kind     string            `json:"kind" yaml:"kind"`
	VoteID   *uint64           `json:"vote_id,omitempty" yaml:"vote_id,omitempty"`
	Script   string            `json:"script" yaml:"script"`
	Actions  []vote.ActionView `json:"actions" yaml:"actions"`

	actions []vote.DecodedAction
}

func (r *scriptReport) writeText(w io.Writer) error {
	if r.VoteID != nil {
		fmt.Fprintf(w, "Created %s vote %d on %s\n", r.Category, *r.VoteID, r.Voting)
	} else {
		fmt.Fprintf(w, "Dry run: %s vote on %s\n", r.Category, r.Voting)
	}
	fmt.Fprintf(w, "Script: %s\n\n", r.Script)
	for i := range r.actions {
		fmt.Fprintln(w, r.actions[i].Format())
	}
	return nil
}

func runVote(cmd *cobra.Command, build buildAction) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadVote(cfgFile, cmd.Flags())
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

	var client *chain.Client
	if cfg.RPCURL != "" || !cfg.DryRun {
		client, err = connectChain(ctx, cfg.Common)
		if err != nil {
			return err
		}
		defer client.Close()
	}

	action, err := build(ctx, cfg, client, logger)
	if err != nil {
		return err
	}
	calls, err := dao.Encode(action)
	if err != nil {
		return fmt.Errorf("%s: %w", action.Kind(), err)
	}
	target := category.DAO()
	script, err := dao.AgentScript(target.Agent, calls)
	if err != nil {
		return err
	}

	logger.Info("vote script built",
		zap.String("kind", action.Kind()),
		zap.Stringer("category", category),
		zap.Int("calls", len(calls)),
		zap.Int("script_bytes", len(script)),
	)

	decoder := vote.NewDecoder(newLoader(cfg.Common, logger), logger)
	report := &scriptReport{
		Category: category.String(),
		Agent:    target.Agent.Hex(),
		Voting:   target.Voting.Hex(),
		Kind:     action.Kind(),
		Script:   hexutil.Encode(script),
	}

	if !cfg.DryRun {
		id, err := createVote(ctx, client, category, cfg, script, logger)
		if err != nil {
			return err
		}
		report.VoteID = &id
	}

	report.actions, err = decoder.DecodeScript(ctx, script)
	if err != nil {
		return err
	}
	report.Actions = vote.Views(report.actions)
	if err := writeOutput(cmd.OutOrStdout(), cfg.Output, report, report.writeText); err != nil {
		return err
	}

	if cfg.Simulate && report.VoteID != nil {
		app := voting.ForCategory(category, client, retryPolicy(cfg.Common), logger)
		return runSimulation(ctx, cmd.OutOrStdout(), cfg.Output, app, *report.VoteID, voting.DefaultSimulateOptions(), logger)
	}
	return nil
}

func createVote(ctx context.Context, client *chain.Client, category dao.VoteCategory, cfg config.VoteConfig, script []byte, logger *zap.Logger) (uint64, error) {
	creator := common.HexToAddress(cfg.Creator)
	if cfg.Simulate {
		if err := client.Impersonate(ctx, creator); err != nil {
			return 0, fmt.Errorf("impersonate creator: %w", err)
		}
		if err := client.SetBalance(ctx, creator, voting.DefaultSimulateOptions().Funding); err != nil {
			return 0, fmt.Errorf("fund creator: %w", err)
		}
	}

	app := voting.ForCategory(category, client, retryPolicy(cfg.Common), logger)
	return app.NewVote(ctx, creator, script, cfg.Description)
}

func requireAddress(name, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("--%s is required", name)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid --%s %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func buildWhitelist(_ context.Context, cfg config.VoteConfig, _ *chain.Client, _ *zap.Logger) (dao.Action, error) {
	wallet, err := requireAddress("address", cfg.Address)
	if err != nil {
		return nil, err
	}
	return dao.Whitelist{Wallet: wallet}, nil
}

func buildKillGauge(_ context.Context, cfg config.VoteConfig, _ *chain.Client, _ *zap.Logger) (dao.Action, error) {
	gauge, err := requireAddress("address", cfg.Address)
	if err != nil {
		return nil, err
	}
	poolType, err := dao.ParsePoolType(cfg.PoolType)
	if err != nil {
		return nil, err
	}
	return dao.KillGauge{GaugeType: poolType, Gauge: gauge, Kill: cfg.Kill}, nil
}

func buildParameterChange(ctx context.Context, cfg config.VoteConfig, client *chain.Client, logger *zap.Logger) (dao.Action, error) {
	pool, err := requireAddress("address", cfg.Address)
	if err != nil {
		return nil, err
	}
	poolType, err := dao.ParsePoolType(cfg.PoolType)
	if err != nil {
		return nil, err
	}
	params, err := cfg.BigParams()
	if err != nil {
		return nil, err
	}
	if err := dao.ValidatePoolParameters(poolType, params); err != nil {
		return nil, err
	}

	now := time.Now()
	if client != nil {
		ts, err := client.LatestTimestamp(ctx)
		if err != nil {
			return nil, fmt.Errorf("latest block time: %w", err)
		}
		now = ts
	}
	logger.Debug("ramp reference time", zap.Time("now", now))
	return dao.ParameterChange{PoolType: poolType, Pool: pool, Params: params, Now: now}, nil
}

func buildDebtCeiling(ctx context.Context, cfg config.VoteConfig, client *chain.Client, logger *zap.Logger) (dao.Action, error) {
	pegKeeper, err := requireAddress("address", cfg.Address)
	if err != nil {
		return nil, err
	}
	if cfg.Ceiling == "" {
		return nil, fmt.Errorf("--ceiling is required")
	}
	ceiling, err := config.ParseBigInt(cfg.Ceiling)
	if err != nil {
		return nil, err
	}

	action := dao.DebtCeiling{PegKeeper: pegKeeper, Ceiling: ceiling}
	if client == nil {
		logger.Warn("no rpc: cannot read the current debt ceiling, excess debt will not be rugged")
		return action, nil
	}
	current, err := currentDebtCeiling(ctx, client, pegKeeper)
	if err != nil {
		return nil, err
	}
	action.Rug = dao.NeedsRug(current, ceiling)
	logger.Info("debt ceiling",
		zap.String("peg_keeper", pegKeeper.Hex()),
		zap.Stringer("current", current),
		zap.Stringer("new", ceiling),
		zap.Bool("rug", action.Rug),
	)
	return action, nil
}

func currentDebtCeiling(ctx context.Context, client *chain.Client, pegKeeper common.Address) (*big.Int, error) {
	data, err := dao.EncodeCall("debt_ceiling(address)", pegKeeper)
	if err != nil {
		return nil, err
	}
	factory := dao.ControllerFactory
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &factory, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("debt_ceiling: %w", err)
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("debt_ceiling: short return data (%d bytes)", len(out))
	}
	return new(big.Int).SetBytes(out[:32]), nil
}

func buildVestingGrant(_ context.Context, cfg config.VoteConfig, _ *chain.Client, _ *zap.Logger) (dao.Action, error) {
	recipient, err := requireAddress("recipient", cfg.Recipient)
	if err != nil {
		return nil, err
	}
	if cfg.Amount == "" {
		return nil, fmt.Errorf("--amount is required")
	}
	amount, err := config.ParseBigInt(cfg.Amount)
	if err != nil {
		return nil, err
	}
	grant := dao.NewVestingGrant(recipient, amount)
	grant.Duration = cfg.Duration
	grant.AllowDisable = cfg.AllowDisable
	return grant, nil
}
