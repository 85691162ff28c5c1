package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"voteScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS vote_actions (
	category      TEXT        NOT NULL,
	vote_id       BIGINT      NOT NULL,
	action_index  INT         NOT NULL,
	run_id        TEXT        NOT NULL,
	chain_id      BIGINT      NOT NULL,
	executed      BOOLEAN     NOT NULL,
	start_date    BIGINT      NOT NULL,
	agent         TEXT,
	target        TEXT        NOT NULL,
	value         TEXT,
	function      TEXT,
	signature     TEXT,
	inputs        JSONB,
	calldata      TEXT        NOT NULL,
	warning       TEXT,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (category, vote_id, action_index)
);
CREATE TABLE IF NOT EXISTS audit_errors (
	run_id     TEXT        NOT NULL,
	category   TEXT        NOT NULL,
	vote_id    BIGINT      NOT NULL,
	stage      TEXT        NOT NULL,
	error      TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS audit_state (
	name              TEXT        PRIMARY KEY,
	last_vote_id      BIGINT      NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for audited vote actions.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the audit tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// PutActionBatch inserts or updates decoded actions keyed by vote and position.
func (s *Store) PutActionBatch(ctx context.Context, records []model.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		var inputs any
		if len(r.Inputs) > 0 {
			b, err := json.Marshal(r.Inputs)
			if err != nil {
				return fmt.Errorf("marshal inputs: %w", err)
			}
			inputs = string(b)
		}
		batch.Queue(`
			INSERT INTO vote_actions (
				category, vote_id, action_index, run_id, chain_id, executed, start_date,
				agent, target, value, function, signature, inputs, calldata, warning, error,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
			ON CONFLICT (category, vote_id, action_index)
			DO UPDATE SET
				run_id = EXCLUDED.run_id,
				executed = EXCLUDED.executed,
				agent = EXCLUDED.agent,
				target = EXCLUDED.target,
				value = EXCLUDED.value,
				function = EXCLUDED.function,
				signature = EXCLUDED.signature,
				inputs = EXCLUDED.inputs,
				calldata = EXCLUDED.calldata,
				warning = EXCLUDED.warning,
				error = EXCLUDED.error,
				updated_at = now()
		`,
			r.Category,
			int64(r.VoteID),
			r.ActionIndex,
			r.RunID,
			int64(r.ChainID),
			r.Executed,
			int64(r.StartDate),
			nullable(r.Agent),
			r.Target,
			nullable(r.Value),
			nullable(r.Function),
			nullable(r.Signature),
			inputs,
			r.Calldata,
			nullable(r.Warning),
			nullable(r.Error),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutErrorBatch appends per-vote audit failures.
func (s *Store) PutErrorBatch(ctx context.Context, records []model.AuditError) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{r.RunID, r.Category, int64(r.VoteID), r.Stage, r.Error})
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"audit_errors"},
		[]string{"run_id", "category", "vote_id", "stage", "error"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// LoadState returns the last audited vote id for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var id int64
	row := s.pool.QueryRow(ctx, `SELECT last_vote_id FROM audit_state WHERE name=$1`, name)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(id), true, nil
}

// SaveState upserts the last audited vote id for a name.
func (s *Store) SaveState(ctx context.Context, name string, voteID uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_state (name, last_vote_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_vote_id = EXCLUDED.last_vote_id, updated_at = now()
	`, name, int64(voteID))
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
