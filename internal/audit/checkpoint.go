package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateStore remembers the last audited vote id between runs.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, lastVoteID uint64) error
}

// Checkpoint tracks the last audited vote.
type Checkpoint struct {
	Category   string `json:"category"`
	LastVoteID uint64 `json:"last_vote_id"`
	UpdatedAt  string `json:"updated_at"`
}

// CheckpointStore persists checkpoints to disk.
type CheckpointStore struct {
	path     string
	category string
	enabled  bool
}

func NewCheckpointStore(path, category string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, category: category, enabled: enabled}
}

// Load ignores checkpoints written for another vote category.
func (c *CheckpointStore) Load(_ context.Context) (uint64, bool, error) {
	if !c.enabled {
		return 0, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return 0, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Category != c.category {
		return 0, false, nil
	}

	return cp.LastVoteID, true, nil
}

func (c *CheckpointStore) Save(_ context.Context, lastVoteID uint64) error {
	if !c.enabled {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cp := Checkpoint{
		Category:   c.category,
		LastVoteID: lastVoteID,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	return nil
}

// StateBackend is a keyed state table such as postgres.Store.
type StateBackend interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, lastVoteID uint64) error
}

// NamedState adapts a StateBackend row to StateStore.
type NamedState struct {
	backend StateBackend
	name    string
}

func NewNamedState(backend StateBackend, name string) *NamedState {
	return &NamedState{backend: backend, name: name}
}

func (s *NamedState) Load(ctx context.Context) (uint64, bool, error) {
	return s.backend.LoadState(ctx, s.name)
}

func (s *NamedState) Save(ctx context.Context, lastVoteID uint64) error {
	return s.backend.SaveState(ctx, s.name, lastVoteID)
}
