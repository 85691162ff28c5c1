package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// AuditConfig holds configuration for the audit command.
type AuditConfig struct {
	Common
	VoteType string `validate:"oneof=ownership parameter emergency"`
	FromID   uint64
	// ToID is inclusive; a negative value means the latest vote.
	ToID              int64
	BatchSize         uint64 `validate:"gt=0"`
	// Functions limits the tally to these function names; empty means all.
	Functions         []string
	InputIndex        int `validate:"gte=0"`
	Out               string
	PGDSN             string
	Checkpoint        string
	CheckpointEnabled bool
}

// LoadAudit merges config file, environment variables, and flags into AuditConfig.
func LoadAudit(cfgFile string, flags *pflag.FlagSet) (AuditConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"vote-type":          "ownership",
		"to-id":              int64(-1),
		"batch-size":         uint64(25),
		"input-index":        1,
		"out":                "./data/actions.jsonl",
		"checkpoint":         "./data/audit_checkpoint.json",
		"checkpoint-enabled": true,
	})
	if err != nil {
		return AuditConfig{}, err
	}

	cfg := AuditConfig{
		Common:            loadCommon(v),
		VoteType:          v.GetString("vote-type"),
		FromID:            v.GetUint64("from-id"),
		ToID:              v.GetInt64("to-id"),
		BatchSize:         v.GetUint64("batch-size"),
		Functions:         getStringSlice(v, "function"),
		InputIndex:        v.GetInt("input-index"),
		Out:               v.GetString("out"),
		PGDSN:             v.GetString("pg-dsn"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
	}
	if err := Validate(cfg); err != nil {
		return AuditConfig{}, err
	}
	if cfg.ToID >= 0 && uint64(cfg.ToID) < cfg.FromID {
		return AuditConfig{}, fmt.Errorf("to-id must be >= from-id")
	}
	return cfg, nil
}
