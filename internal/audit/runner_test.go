package audit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voteScope/internal/dao"
	"voteScope/internal/iface"
	"voteScope/internal/model"
	"voteScope/internal/vote"
	"voteScope/internal/voting"
)

const gaugeOwnerABI = `[
  {"type":"function","name":"set_killed","inputs":[{"name":"_gauge","type":"address"},{"name":"_is_killed","type":"bool"}],"outputs":[]}
]`

const checkerABI = `[
  {"type":"function","name":"approveWallet","inputs":[{"name":"_wallet","type":"address"}],"outputs":[]}
]`

type fakeLoader map[common.Address]string

func (f fakeLoader) GetContractInterface(_ context.Context, address common.Address) (*iface.Interface, error) {
	raw, ok := f[address]
	if !ok {
		return nil, iface.ErrInterfaceUnavailable
	}
	return iface.New(address, []byte(raw))
}

type fakeVotes struct {
	scripts map[uint64][]byte
	broken  map[uint64]error
	length  uint64
	fetched []uint64
}

func (f *fakeVotes) VotesLength(context.Context) (uint64, error) { return f.length, nil }

func (f *fakeVotes) GetVote(_ context.Context, id uint64) (*voting.Vote, error) {
	f.fetched = append(f.fetched, id)
	if err := f.broken[id]; err != nil {
		return nil, err
	}
	if id >= f.length {
		return nil, fmt.Errorf("%w: %d", voting.ErrVoteNotFound, id)
	}
	return &voting.Vote{ID: id, Executed: true, StartDate: time.Unix(1_700_000_000, 0), Script: f.scripts[id]}, nil
}

type memSink struct {
	actions []model.ActionRecord
	errors  []model.AuditError
}

func (m *memSink) PutActionBatch(_ context.Context, records []model.ActionRecord) error {
	m.actions = append(m.actions, records...)
	return nil
}

func (m *memSink) PutErrorBatch(_ context.Context, records []model.AuditError) error {
	m.errors = append(m.errors, records...)
	return nil
}

type memState struct {
	last  uint64
	ok    bool
	saves []uint64
}

func (m *memState) Load(context.Context) (uint64, bool, error) { return m.last, m.ok, nil }

func (m *memState) Save(_ context.Context, id uint64) error {
	m.saves = append(m.saves, id)
	m.last, m.ok = id, true
	return nil
}

func ownershipScript(t *testing.T, actions ...dao.Action) []byte {
	t.Helper()
	calls, err := dao.Encode(actions...)
	require.NoError(t, err)
	script, err := dao.AgentScript(dao.Ownership.DAO().Agent, calls)
	require.NoError(t, err)
	return script
}

var (
	gaugeA = common.HexToAddress("0x762648808ef8b25c6d92270b1c84ec97df3bed6b")
	gaugeB = common.HexToAddress("0x1cEBdB0856dd985fAe9b8fEa2262469360B8a3a6")
	wallet = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func newFixture(t *testing.T) (*fakeVotes, *vote.Decoder) {
	votes := &fakeVotes{
		length: 5,
		scripts: map[uint64][]byte{
			0: ownershipScript(t,
				dao.Whitelist{Wallet: wallet},
				dao.KillGauge{GaugeType: dao.Stableswap, Gauge: gaugeA, Kill: true},
			),
			2: {0x00, 0x00, 0x00, 0x02},
			3: ownershipScript(t,
				dao.KillGauge{GaugeType: dao.Stableswap, Gauge: gaugeA, Kill: false},
				dao.KillGauge{GaugeType: dao.Stableswap, Gauge: gaugeB, Kill: true},
			),
		},
		broken: map[uint64]error{1: errors.New("execution reverted")},
	}
	decoder := vote.NewDecoder(fakeLoader{
		dao.StableswapGaugeOwner: gaugeOwnerABI,
		dao.SmartWalletChecker:   checkerABI,
	}, zap.NewNop())
	return votes, decoder
}

func TestRunnerAuditsAndTallies(t *testing.T) {
	votes, decoder := newFixture(t)
	sink := &memSink{}
	state := &memState{}

	runner := NewRunner(RunConfig{
		ChainID:    1,
		Category:   dao.Ownership,
		ToID:       -1,
		BatchSize:  2,
		Functions:  []string{"set_killed"},
		InputIndex: 0,
	}, votes, decoder, sink, sink, state, nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, uint64(0), report.FromID)
	assert.Equal(t, uint64(4), report.ToID)
	assert.Equal(t, 3, report.Votes)
	assert.Equal(t, 3, report.Actions)
	assert.Equal(t, 2, report.Failures)
	assert.Equal(t, []uint64{1, 3, 4}, state.saves)

	assert.Equal(t, []model.TallyEntry{
		{Function: "set_killed", Input: gaugeA.Hex(), Count: 2},
		{Function: "set_killed", Input: gaugeB.Hex(), Count: 1},
	}, report.Tally)

	require.Len(t, sink.actions, 3)
	first := sink.actions[0]
	assert.Equal(t, report.RunID, first.RunID)
	assert.Equal(t, "ownership", first.Category)
	assert.Equal(t, uint64(0), first.VoteID)
	assert.Equal(t, 1, first.ActionIndex)
	assert.Equal(t, "set_killed(address,bool)", first.Signature)
	assert.Equal(t, dao.StableswapGaugeOwner.Hex(), first.Target)
	assert.Equal(t, dao.Ownership.DAO().Agent.Hex(), first.Agent)
	require.Len(t, first.Inputs, 2)
	assert.Equal(t, model.ActionInput{Name: "_is_killed", Type: "bool", Value: "true"}, first.Inputs[1])

	require.Len(t, sink.errors, 2)
	assert.Equal(t, uint64(1), sink.errors[0].VoteID)
	assert.Equal(t, StageFetch, sink.errors[0].Stage)
	assert.Equal(t, uint64(2), sink.errors[1].VoteID)
	assert.Equal(t, StageScript, sink.errors[1].Stage)
	assert.Contains(t, sink.errors[1].Error, dao.ErrInvalidScript.Error())
}

func TestRunnerKeepsUndecodableActions(t *testing.T) {
	votes, _ := newFixture(t)
	sink := &memSink{}

	// No interfaces available: every action is recorded with its error.
	decoder := vote.NewDecoder(fakeLoader{}, nil)
	runner := NewRunner(RunConfig{Category: dao.Ownership, FromID: 3, ToID: 3, BatchSize: 10, RunID: "fixed"},
		votes, decoder, sink, nil, nil, nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed", report.RunID)
	assert.Empty(t, report.Tally)
	require.Len(t, sink.actions, 2)
	for _, rec := range sink.actions {
		assert.Empty(t, rec.Function)
		assert.Contains(t, rec.Error, iface.ErrInterfaceUnavailable.Error())
		assert.NotEmpty(t, rec.Calldata)
	}
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	votes, decoder := newFixture(t)
	sink := &memSink{}
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	state := NewCheckpointStore(path, "ownership", true)
	require.NoError(t, state.Save(context.Background(), 3))

	runner := NewRunner(RunConfig{Category: dao.Ownership, ToID: -1, BatchSize: 5}, votes, decoder, sink, sink, state, nil)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(4), report.FromID)
	assert.Equal(t, []uint64{4}, votes.fetched)
	assert.Zero(t, report.Actions)

	last, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(4), last)

	// Nothing left on the next run.
	votes.fetched = nil
	report, err = runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, votes.fetched)
	assert.Equal(t, uint64(5), report.FromID)
}

func TestCheckpointStoreIgnoresOtherCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	ctx := context.Background()
	require.NoError(t, NewCheckpointStore(path, "parameter", true).Save(ctx, 9))

	_, ok, err := NewCheckpointStore(path, "ownership", true).Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = NewCheckpointStore(path, "parameter", false).Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeBackend map[string]uint64

func (f fakeBackend) LoadState(_ context.Context, name string) (uint64, bool, error) {
	v, ok := f[name]
	return v, ok, nil
}

func (f fakeBackend) SaveState(_ context.Context, name string, id uint64) error {
	f[name] = id
	return nil
}

func TestNamedState(t *testing.T) {
	backend := fakeBackend{}
	s := NewNamedState(backend, "audit:ownership")
	require.NoError(t, s.Save(context.Background(), 12))
	assert.Equal(t, uint64(12), backend["audit:ownership"])

	last, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(12), last)
}
