package config

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
)

// VoteConfig holds configuration for the vote creation commands.
type VoteConfig struct {
	Common
	VoteType    string `validate:"oneof=ownership parameter emergency"`
	Creator     string `validate:"required,eth_addr"`
	Description string `validate:"required"`
	Simulate    bool
	// DryRun prints the script without submitting it.
	DryRun bool

	Address   string `validate:"omitempty,eth_addr"`
	Recipient string `validate:"omitempty,eth_addr"`
	PoolType  string `validate:"omitempty,oneof=stableswap stableswap_factory crypto_factory tricrypto_ng"`
	Kill      bool
	Amount    string
	Ceiling   string
	Duration  time.Duration
	// AllowDisable lets the DAO stop a community fund grant.
	AllowDisable bool
	Params       map[string]string
}

// LoadVote merges config file, environment variables, and flags into VoteConfig.
func LoadVote(cfgFile string, flags *pflag.FlagSet) (VoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"vote-type":     "ownership",
		"kill":          true,
		"duration":      365 * 24 * time.Hour,
		"allow-disable": true,
	})
	if err != nil {
		return VoteConfig{}, err
	}

	cfg := VoteConfig{
		Common:       loadCommon(v),
		VoteType:     v.GetString("vote-type"),
		Creator:      v.GetString("creator"),
		Description:  v.GetString("description"),
		Simulate:     v.GetBool("simulate"),
		DryRun:       v.GetBool("dry-run"),
		Address:      v.GetString("address"),
		Recipient:    v.GetString("recipient"),
		PoolType:     v.GetString("pool-type"),
		Kill:         v.GetBool("kill"),
		Amount:       v.GetString("amount"),
		Ceiling:      v.GetString("ceiling"),
		Duration:     v.GetDuration("duration"),
		AllowDisable: v.GetBool("allow-disable"),
		Params:       getStringMap(v, "param"),
	}
	if err := Validate(cfg); err != nil {
		return VoteConfig{}, err
	}
	return cfg, nil
}

// BigParams converts Params into integers. future_time also accepts an
// RFC3339 timestamp.
func (c VoteConfig) BigParams() (map[string]*big.Int, error) {
	out := make(map[string]*big.Int, len(c.Params))
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		raw := c.Params[k]
		if k == "future_time" {
			ts, err := ParseTimestamp(raw)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", k, err)
			}
			out[k] = new(big.Int).SetUint64(ts)
			continue
		}
		n, err := ParseBigInt(raw)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

// ParseBigInt parses a non-negative decimal integer. Underscores are
// allowed as digit separators.
func ParseBigInt(input string) (*big.Int, error) {
	s := strings.ReplaceAll(strings.TrimSpace(input), "_", "")
	if s == "" {
		return nil, fmt.Errorf("empty number")
	}
	if !isNumeric(s) {
		// Small values may come from config files as numbers.
		n, err := cast.ToUint64E(input)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", input)
		}
		return new(big.Int).SetUint64(n), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", input)
	}
	return n, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
