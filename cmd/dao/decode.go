package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voteScope/internal/config"
	"voteScope/internal/dao"
	"voteScope/internal/vote"
	"voteScope/internal/voting"
)

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a vote script or raw calldata",
		Example: `  dao decode --vote-type ownership --vote-id 540
  dao decode --address 0xca719728Ef172d0961768581fdF35CB116e0B7a4 --calldata 0x...`,
		RunE: runDecode,
	}
	addDecodeFlags(cmd)
	cmd.Flags().String("address", "", "contract address for raw calldata")
	cmd.Flags().String("calldata", "", "raw calldata hex")
	cmd.Flags().Bool("simulate", false, "pass and execute the vote on a fork after decoding")
	return cmd
}

func addDecodeFlags(cmd *cobra.Command) {
	category := dao.Ownership
	cmd.Flags().Var(&category, "vote-type", "vote category (ownership, parameter, emergency)")
	cmd.Flags().Int64("vote-id", -1, "vote id")
	cmd.Flags().Uint64("metadata-from-block", 10_647_812, "first block searched for the vote description")
}

// voteReport is the serializable decode result for a vote.
type voteReport struct {
	VoteID          uint64            `json:"vote_id" yaml:"vote_id"`
	Category        string            `json:"category" yaml:"category"`
	Voting          string            `json:"voting" yaml:"voting"`
	Description     string            `json:"description,omitempty" yaml:"description,omitempty"`
	Open            bool              `json:"open" yaml:"open"`
	Executed        bool              `json:"executed" yaml:"executed"`
	StartDate       string            `json:"start_date" yaml:"start_date"`
	SupportRequired float64           `json:"support_required_pct" yaml:"support_required_pct"`
	MinAcceptQuorum float64           `json:"min_accept_quorum_pct" yaml:"min_accept_quorum_pct"`
	Yea             string            `json:"yea" yaml:"yea"`
	Nay             string            `json:"nay" yaml:"nay"`
	VotingPower     string            `json:"voting_power" yaml:"voting_power"`
	Actions         []vote.ActionView `json:"actions" yaml:"actions"`

	actions []vote.DecodedAction
}

func (r *voteReport) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Vote %d (%s) on %s\n", r.VoteID, r.Category, r.Voting)
	if r.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", r.Description)
	}
	fmt.Fprintf(w, "Open: %t  Executed: %t  Started: %s\n", r.Open, r.Executed, r.StartDate)
	fmt.Fprintf(w, "Yea: %s  Nay: %s  Power: %s  (support %.2f%%, quorum %.2f%%)\n\n",
		r.Yea, r.Nay, r.VotingPower, r.SupportRequired, r.MinAcceptQuorum)
	for i := range r.actions {
		fmt.Fprintln(w, r.actions[i].Format())
	}
	return nil
}

// callReport is the serializable decode result for raw calldata.
type callReport struct {
	Address       string       `json:"address" yaml:"address"`
	Function      string       `json:"function" yaml:"function"`
	Signature     string       `json:"signature" yaml:"signature"`
	Inputs        []vote.Input `json:"inputs" yaml:"inputs"`
	Insufficient  bool         `json:"insufficient,omitempty" yaml:"insufficient,omitempty"`
	TrailingBytes int          `json:"trailing_bytes,omitempty" yaml:"trailing_bytes,omitempty"`
}

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decoder := vote.NewDecoder(newLoader(cfg.Common, logger), logger)

	if !cfg.HasVote() {
		return decodeRaw(ctx, cmd.OutOrStdout(), cfg, decoder)
	}

	category, err := dao.ParseVoteCategory(cfg.VoteType)
	if err != nil {
		return err
	}
	chainClient, err := connectChain(ctx, cfg.Common)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	app := voting.ForCategory(category, chainClient, retryPolicy(cfg.Common), logger)
	voteID := uint64(cfg.VoteID)

	logger.Info("decode start",
		zap.Stringer("category", category),
		zap.Uint64("vote_id", voteID),
		zap.String("voting", app.Address.Hex()),
	)

	report, err := buildVoteReport(ctx, app, decoder, category, voteID, cfg.MetadataFromBlock, logger)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), cfg.Output, report, report.writeText); err != nil {
		return err
	}

	if cfg.Simulate {
		return runSimulation(ctx, cmd.OutOrStdout(), cfg.Output, app, voteID, voting.DefaultSimulateOptions(), logger)
	}
	return nil
}

func buildVoteReport(ctx context.Context, app *voting.Voting, decoder *vote.Decoder, category dao.VoteCategory, voteID, fromBlock uint64, logger *zap.Logger) (*voteReport, error) {
	v, err := app.GetVote(ctx, voteID)
	if err != nil {
		return nil, err
	}

	description, err := app.Metadata(ctx, voteID, fromBlock)
	if err != nil {
		logger.Warn("vote description unavailable", zap.Uint64("vote_id", voteID), zap.Error(err))
	}

	actions, err := decoder.DecodeScript(ctx, v.Script)
	if err != nil {
		return nil, fmt.Errorf("vote %d: %w", voteID, err)
	}

	return &voteReport{
		VoteID:          voteID,
		Category:        category.String(),
		Voting:          app.Address.Hex(),
		Description:     description,
		Open:            v.Open,
		Executed:        v.Executed,
		StartDate:       v.StartDate.UTC().Format("2006-01-02 15:04:05 MST"),
		SupportRequired: voting.Percent(v.SupportRequired),
		MinAcceptQuorum: voting.Percent(v.MinAcceptQuorum),
		Yea:             v.Yea.String(),
		Nay:             v.Nay.String(),
		VotingPower:     v.VotingPower.String(),
		Actions:         vote.Views(actions),
		actions:         actions,
	}, nil
}

func decodeRaw(ctx context.Context, w io.Writer, cfg config.DecodeConfig, decoder *vote.Decoder) error {
	target := common.HexToAddress(cfg.Address)
	data, err := hexutil.Decode(cfg.Calldata)
	if err != nil {
		return fmt.Errorf("invalid calldata: %w", err)
	}

	call, err := decoder.DecodeCall(ctx, target, data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", target.Hex(), err)
	}

	action := vote.DecodedAction{Target: target, Calldata: data, Call: call}
	report := callReport{
		Address:       target.Hex(),
		Function:      call.Entry.Name,
		Signature:     call.Entry.Signature(),
		Inputs:        action.Inputs(),
		Insufficient:  call.Insufficient,
		TrailingBytes: call.TrailingBytes,
	}
	return writeOutput(w, cfg.Output, report, func(w io.Writer) error {
		_, err := io.WriteString(w, action.Format())
		return err
	})
}
