package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voteScope/internal/dao"
	"voteScope/internal/model"
	"voteScope/internal/storage"
	"voteScope/internal/vote"
	"voteScope/internal/voting"
)

// Stages reported on audit errors.
const (
	StageFetch  = "fetch"
	StageScript = "script"
)

// VoteSource reads votes from a Voting app. *voting.Voting satisfies it.
type VoteSource interface {
	VotesLength(ctx context.Context) (uint64, error)
	GetVote(ctx context.Context, voteID uint64) (*voting.Vote, error)
}

// ScriptDecoder decodes vote scripts. *vote.Decoder satisfies it.
type ScriptDecoder interface {
	DecodeScript(ctx context.Context, script []byte) ([]vote.DecodedAction, error)
}

// ErrorSink receives per-vote failures.
type ErrorSink interface {
	PutErrorBatch(ctx context.Context, records []model.AuditError) error
}

// RunConfig holds runtime settings for an audit.
type RunConfig struct {
	RunID    string
	ChainID  uint64
	Category dao.VoteCategory
	FromID   uint64
	// ToID is inclusive; negative means the latest vote.
	ToID      int64
	BatchSize uint64
	// Functions limits records and tallies to these names when non-empty.
	Functions  []string
	InputIndex int
}

// Report summarizes one audit run.
type Report struct {
	RunID    string             `json:"run_id" yaml:"run_id"`
	Category string             `json:"category" yaml:"category"`
	FromID   uint64             `json:"from_id" yaml:"from_id"`
	ToID     uint64             `json:"to_id" yaml:"to_id"`
	Votes    int                `json:"votes" yaml:"votes"`
	Actions  int                `json:"actions" yaml:"actions"`
	Failures int                `json:"failures" yaml:"failures"`
	Tally    []model.TallyEntry `json:"tally" yaml:"tally"`
}

// Runner walks vote ids in batches, decodes every script and writes the
// actions to storage.
type Runner struct {
	cfg     RunConfig
	votes   VoteSource
	decoder ScriptDecoder
	storage storage.Storage
	errSink ErrorSink
	state   StateStore
	logger  *zap.Logger
}

// NewRunner builds a Runner with its dependencies. errSink and state may be nil.
func NewRunner(cfg RunConfig, votes VoteSource, decoder ScriptDecoder, sink storage.Storage, errSink ErrorSink, state StateStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Runner{
		cfg:     cfg,
		votes:   votes,
		decoder: decoder,
		storage: sink,
		errSink: errSink,
		state:   state,
		logger:  logger.With(zap.String("run_id", cfg.RunID), zap.Stringer("category", cfg.Category)),
	}
}

// Run executes the audit loop.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.votes == nil {
		return nil, fmt.Errorf("vote source is nil")
	}
	if r.decoder == nil {
		return nil, fmt.Errorf("decoder is nil")
	}
	if r.storage == nil {
		return nil, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}

	report := &Report{RunID: r.cfg.RunID, Category: r.cfg.Category.String()}

	from := r.cfg.FromID
	var to uint64
	if r.cfg.ToID >= 0 {
		to = uint64(r.cfg.ToID)
	} else {
		length, err := r.votes.VotesLength(ctx)
		if err != nil {
			return nil, fmt.Errorf("votes length: %w", err)
		}
		if length == 0 {
			r.logger.Info("no votes")
			return report, nil
		}
		to = length - 1
	}

	if r.state != nil {
		last, ok, err := r.state.Load(ctx)
		if err != nil {
			return nil, err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_vote_id", last), zap.Uint64("from", from))
		}
	}
	report.FromID, report.ToID = from, to

	if from > to {
		r.logger.Info("nothing to audit", zap.Uint64("from", from), zap.Uint64("to", to))
		return report, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	tally := NewTally()
	filter := make(map[string]struct{}, len(r.cfg.Functions))
	for _, fn := range r.cfg.Functions {
		filter[fn] = struct{}{}
	}

	for _, idRange := range ranges {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		r.logger.Info("audit votes", zap.Uint64("from", idRange.From), zap.Uint64("to", idRange.To))

		var (
			records  []model.ActionRecord
			failures []model.AuditError
		)
		ingestedAt := time.Now().UTC()
		for id := idRange.From; ; id++ {
			recs, failure := r.auditVote(ctx, id, ingestedAt, filter, tally)
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			if failure != nil {
				failures = append(failures, *failure)
			} else {
				report.Votes++
			}
			records = append(records, recs...)
			if id == idRange.To {
				break
			}
		}

		if err := r.storage.PutActionBatch(ctx, records); err != nil {
			return report, fmt.Errorf("store actions: %w", err)
		}
		if r.errSink != nil {
			if err := r.errSink.PutErrorBatch(ctx, failures); err != nil {
				return report, fmt.Errorf("store audit errors: %w", err)
			}
		}
		if r.state != nil {
			if err := r.state.Save(ctx, idRange.To); err != nil {
				return report, err
			}
		}

		report.Actions += len(records)
		report.Failures += len(failures)
		r.logger.Info("batch complete",
			zap.Int("actions", len(records)),
			zap.Int("failures", len(failures)),
			zap.Uint64("from", idRange.From),
			zap.Uint64("to", idRange.To),
		)
	}

	report.Tally = tally.Entries()
	return report, nil
}

func (r *Runner) auditVote(ctx context.Context, id uint64, ingestedAt time.Time, filter map[string]struct{}, tally *Tally) ([]model.ActionRecord, *model.AuditError) {
	fail := func(stage string, err error) *model.AuditError {
		r.logger.Warn("audit vote failed", zap.Uint64("vote_id", id), zap.String("stage", stage), zap.Error(err))
		return &model.AuditError{
			RunID:    r.cfg.RunID,
			Category: r.cfg.Category.String(),
			VoteID:   id,
			Stage:    stage,
			Error:    err.Error(),
		}
	}

	v, err := r.votes.GetVote(ctx, id)
	if err != nil {
		if errors.Is(err, voting.ErrVoteNotFound) {
			r.logger.Debug("vote not found", zap.Uint64("vote_id", id))
		}
		return nil, fail(StageFetch, err)
	}
	if len(v.Script) == 0 {
		return nil, nil
	}

	actions, err := r.decoder.DecodeScript(ctx, v.Script)
	if err != nil {
		return nil, fail(StageScript, err)
	}

	records := make([]model.ActionRecord, 0, len(actions))
	for _, action := range actions {
		fn := action.Function()
		if len(filter) > 0 {
			if _, ok := filter[fn]; !ok {
				continue
			}
		}
		if fn != "" {
			if in, ok := action.Input(r.cfg.InputIndex); ok {
				tally.Add(fn, in.String())
			}
		}
		records = append(records, buildActionRecord(r.cfg.RunID, r.cfg.ChainID, r.cfg.Category, v, action, ingestedAt))
	}
	return records, nil
}
