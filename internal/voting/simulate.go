package voting

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"voteScope/internal/dao"
)

// ForkBackend is a Backend on a forked chain that supports cheat codes.
type ForkBackend interface {
	Backend
	Impersonate(ctx context.Context, address common.Address) error
	SetBalance(ctx context.Context, address common.Address, wei *big.Int) error
	IncreaseTime(ctx context.Context, d time.Duration) error
	Mine(ctx context.Context) error
}

// ErrNotFork means simulation was requested against a backend without cheat
// codes.
var ErrNotFork = errors.New("backend does not support fork simulation")

// SimulateOptions picks the account that votes and executes.
type SimulateOptions struct {
	Voter   common.Address
	Funding *big.Int
}

// DefaultSimulateOptions votes with the Convex voter proxy, which holds
// enough weight to pass a vote alone.
func DefaultSimulateOptions() SimulateOptions {
	return SimulateOptions{
		Voter:   dao.ConvexVoterProxy,
		Funding: new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)),
	}
}

// Simulate passes and executes a vote on a fork: the voter votes yes, the
// clock moves past the vote period and the vote is executed. It returns the
// execution receipt.
func (v *Voting) Simulate(ctx context.Context, voteID uint64, opts SimulateOptions) (*types.Receipt, error) {
	fork, ok := v.backend.(ForkBackend)
	if !ok {
		return nil, ErrNotFork
	}
	v.logger.Info("simulate vote", zap.Uint64("vote_id", voteID), zap.String("voting", v.Address.Hex()))

	if err := fork.Impersonate(ctx, opts.Voter); err != nil {
		return nil, fmt.Errorf("impersonate %s: %w", opts.Voter.Hex(), err)
	}
	if opts.Funding != nil {
		if err := fork.SetBalance(ctx, opts.Voter, opts.Funding); err != nil {
			return nil, fmt.Errorf("fund %s: %w", opts.Voter.Hex(), err)
		}
	}

	before, err := v.GetVote(ctx, voteID)
	if err != nil {
		return nil, err
	}
	v.logger.Debug("vote stats before voting", before.logFields()...)

	v.logger.Info("cast yes vote", zap.String("voter", opts.Voter.Hex()))
	if _, err := v.send(ctx, opts.Voter, "vote", new(big.Int).SetUint64(voteID), true, false); err != nil {
		return nil, err
	}

	period, err := v.VoteTime(ctx)
	if err != nil {
		return nil, err
	}
	if err := fork.IncreaseTime(ctx, period); err != nil {
		return nil, fmt.Errorf("increase time: %w", err)
	}
	if err := fork.Mine(ctx); err != nil {
		return nil, fmt.Errorf("mine: %w", err)
	}

	after, err := v.GetVote(ctx, voteID)
	if err != nil {
		return nil, err
	}
	v.logger.Debug("vote stats after vote period", after.logFields()...)

	v.logger.Info("execute vote", zap.Uint64("vote_id", voteID))
	receipt, err := v.send(ctx, opts.Voter, "executeVote", new(big.Int).SetUint64(voteID))
	if err != nil {
		return receipt, err
	}
	v.logger.Info("vote executed", zap.Uint64("vote_id", voteID), zap.String("tx", receipt.TxHash.Hex()))
	return receipt, nil
}
