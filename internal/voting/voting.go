package voting

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"voteScope/internal/dao"
	"voteScope/internal/retry"
)

// ErrVoteNotFound means the vote id does not exist on the voting app.
var ErrVoteNotFound = errors.New("vote not found")

// Backend is the chain access a Voting needs. *chain.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendFrom(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (common.Hash, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, fromBlock uint64, address common.Address, topics [][]common.Hash) ([]types.Log, error)
}

// onePercent is 1% in the voting app's fixed-point percentages, where
// 10^18 is 100%.
const onePercent = 1e16

// Vote is the state returned by getVote.
type Vote struct {
	ID              uint64
	Open            bool
	Executed        bool
	StartDate       time.Time
	SnapshotBlock   uint64
	SupportRequired uint64
	MinAcceptQuorum uint64
	Yea             *big.Int
	Nay             *big.Int
	VotingPower     *big.Int
	Script          []byte
}

// Percent converts a voting app percentage into percent points.
func Percent(pct uint64) float64 {
	return float64(pct) / onePercent
}

func (v *Vote) logFields() []zap.Field {
	return []zap.Field{
		zap.Uint64("vote_id", v.ID),
		zap.Bool("open", v.Open),
		zap.Bool("executed", v.Executed),
		zap.Time("start_date", v.StartDate),
		zap.Uint64("snapshot_block", v.SnapshotBlock),
		zap.Float64("support_required_pct", Percent(v.SupportRequired)),
		zap.Float64("min_accept_quorum_pct", Percent(v.MinAcceptQuorum)),
		zap.Stringer("yea", v.Yea),
		zap.Stringer("nay", v.Nay),
		zap.Stringer("voting_power", v.VotingPower),
	}
}

// Voting is a client for one Aragon Voting app.
type Voting struct {
	Address common.Address
	backend Backend
	logger  *zap.Logger
	policy  retry.Policy
}

func New(address common.Address, backend Backend, policy retry.Policy, logger *zap.Logger) *Voting {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Voting{Address: address, backend: backend, logger: logger, policy: policy}
}

// ForCategory returns the voting app of a vote category.
func ForCategory(c dao.VoteCategory, backend Backend, policy retry.Policy, logger *zap.Logger) *Voting {
	return New(c.DAO().Voting, backend, policy, logger)
}

func (v *Voting) call(ctx context.Context, method string, args ...any) ([]any, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := retry.Do(ctx, v.policy, v.logger, method, func(ctx context.Context) ([]byte, error) {
		return v.backend.CallContract(ctx, ethereum.CallMsg{To: &v.Address, Data: data}, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func (v *Voting) send(ctx context.Context, from common.Address, method string, args ...any) (*types.Receipt, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	hash, err := v.backend.SendFrom(ctx, from, v.Address, nil, data)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}
	v.logger.Debug("transaction sent", zap.String("method", method), zap.String("tx", hash.Hex()))
	receipt, err := v.backend.WaitReceipt(ctx, hash)
	if err != nil {
		return receipt, fmt.Errorf("%s: %w", method, err)
	}
	return receipt, nil
}

// VotesLength returns the number of votes ever created.
func (v *Voting) VotesLength(ctx context.Context) (uint64, error) {
	out, err := v.call(ctx, "votesLength")
	if err != nil {
		return 0, err
	}
	n, ok := out[0].(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, fmt.Errorf("votesLength: unexpected value %v", out[0])
	}
	return n.Uint64(), nil
}

// VoteTime returns how long a vote stays open.
func (v *Voting) VoteTime(ctx context.Context) (time.Duration, error) {
	out, err := v.call(ctx, "voteTime")
	if err != nil {
		return 0, err
	}
	secs, ok := out[0].(uint64)
	if !ok {
		return 0, fmt.Errorf("voteTime: unexpected value %v", out[0])
	}
	return time.Duration(secs) * time.Second, nil
}

// CanExecute reports whether the vote passed and can be enacted now.
func (v *Voting) CanExecute(ctx context.Context, voteID uint64) (bool, error) {
	out, err := v.call(ctx, "canExecute", new(big.Int).SetUint64(voteID))
	if err != nil {
		return false, err
	}
	ok, _ := out[0].(bool)
	return ok, nil
}

// GetVote returns the vote state. Ids at or beyond votesLength yield
// ErrVoteNotFound.
func (v *Voting) GetVote(ctx context.Context, voteID uint64) (*Vote, error) {
	length, err := v.VotesLength(ctx)
	if err != nil {
		return nil, err
	}
	if voteID >= length {
		return nil, fmt.Errorf("%w: %d on %s (%d votes)", ErrVoteNotFound, voteID, v.Address.Hex(), length)
	}

	out, err := v.call(ctx, "getVote", new(big.Int).SetUint64(voteID))
	if err != nil {
		return nil, err
	}
	if len(out) != 10 {
		return nil, fmt.Errorf("getVote: expected 10 values, got %d", len(out))
	}

	vote := &Vote{ID: voteID}
	var ok [10]bool
	vote.Open, ok[0] = out[0].(bool)
	vote.Executed, ok[1] = out[1].(bool)
	var start uint64
	start, ok[2] = out[2].(uint64)
	vote.StartDate = time.Unix(int64(start), 0).UTC()
	vote.SnapshotBlock, ok[3] = out[3].(uint64)
	vote.SupportRequired, ok[4] = out[4].(uint64)
	vote.MinAcceptQuorum, ok[5] = out[5].(uint64)
	vote.Yea, ok[6] = out[6].(*big.Int)
	vote.Nay, ok[7] = out[7].(*big.Int)
	vote.VotingPower, ok[8] = out[8].(*big.Int)
	vote.Script, ok[9] = out[9].([]byte)
	for i, good := range ok {
		if !good {
			return nil, fmt.Errorf("getVote: unexpected type %T at %d", out[i], i)
		}
	}
	return vote, nil
}

// GetVoteScript returns the execution script of a vote.
func (v *Voting) GetVoteScript(ctx context.Context, voteID uint64) ([]byte, error) {
	vote, err := v.GetVote(ctx, voteID)
	if err != nil {
		return nil, err
	}
	return vote.Script, nil
}

// NewVote creates a vote from creator and returns its id.
func (v *Voting) NewVote(ctx context.Context, creator common.Address, script []byte, metadata string) (uint64, error) {
	receipt, err := v.send(ctx, creator, "newVote", script, metadata, false, false)
	if err != nil {
		return 0, err
	}
	id, ok := startVoteID(v.Address, receipt)
	if !ok {
		return 0, fmt.Errorf("newVote: no StartVote event in %s", receipt.TxHash.Hex())
	}
	v.logger.Info("vote created",
		zap.String("voting", v.Address.Hex()),
		zap.Uint64("vote_id", id),
		zap.String("tx", receipt.TxHash.Hex()),
	)
	return id, nil
}

func startVoteID(voting common.Address, receipt *types.Receipt) (uint64, bool) {
	parsed, err := ABI()
	if err != nil || receipt == nil {
		return 0, false
	}
	topic := parsed.Events["StartVote"].ID
	for _, log := range receipt.Logs {
		if log.Address != voting || len(log.Topics) < 2 || log.Topics[0] != topic {
			continue
		}
		id := log.Topics[1].Big()
		if id.IsUint64() {
			return id.Uint64(), true
		}
	}
	return 0, false
}

// Metadata returns the metadata string a vote was created with, searching
// StartVote events from fromBlock.
func (v *Voting) Metadata(ctx context.Context, voteID, fromBlock uint64) (string, error) {
	parsed, err := ABI()
	if err != nil {
		return "", err
	}
	event := parsed.Events["StartVote"]
	topics := [][]common.Hash{{event.ID}, {common.BigToHash(new(big.Int).SetUint64(voteID))}}

	logs, err := retry.Do(ctx, v.policy, v.logger, "StartVote", func(ctx context.Context) ([]types.Log, error) {
		return v.backend.FilterLogs(ctx, fromBlock, v.Address, topics)
	})
	if err != nil {
		return "", fmt.Errorf("filter StartVote: %w", err)
	}
	if len(logs) == 0 {
		return "", fmt.Errorf("%w: no StartVote event for %d", ErrVoteNotFound, voteID)
	}
	values, err := event.Inputs.NonIndexed().Unpack(logs[0].Data)
	if err != nil {
		return "", fmt.Errorf("unpack StartVote: %w", err)
	}
	metadata, _ := values[0].(string)
	return metadata, nil
}
