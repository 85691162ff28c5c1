package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	Common
	VoteType string `validate:"omitempty,oneof=ownership parameter emergency"`
	VoteID   int64  `validate:"gte=-1"`
	Address  string `validate:"omitempty,eth_addr"`
	Calldata string `validate:"omitempty,hexadecimal"`
	Simulate bool
	// MetadataFromBlock is where the StartVote event search begins.
	MetadataFromBlock uint64
}

// HasVote reports whether a vote was selected rather than raw calldata.
func (c DecodeConfig) HasVote() bool {
	return c.VoteID >= 0
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"vote-type":           "ownership",
		"vote-id":             int64(-1),
		"metadata-from-block": uint64(10_647_812),
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		Common:            loadCommon(v),
		VoteType:          v.GetString("vote-type"),
		VoteID:            v.GetInt64("vote-id"),
		Address:           v.GetString("address"),
		Calldata:          v.GetString("calldata"),
		Simulate:          v.GetBool("simulate"),
		MetadataFromBlock: v.GetUint64("metadata-from-block"),
	}
	if err := Validate(cfg); err != nil {
		return DecodeConfig{}, err
	}
	if !cfg.HasVote() && (cfg.Address == "" || cfg.Calldata == "") {
		return DecodeConfig{}, fmt.Errorf("either --vote-id or both --address and --calldata are required")
	}
	if cfg.Simulate && !cfg.HasVote() {
		return DecodeConfig{}, fmt.Errorf("--simulate needs --vote-id")
	}
	return cfg, nil
}
