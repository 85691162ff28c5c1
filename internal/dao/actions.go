package dao

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Invocation is one contract call an action makes: target, function
// signature and arguments in order.
type Invocation struct {
	Target    common.Address
	Signature string
	Args      []any
}

// Method returns the function name of the invocation.
func (i Invocation) Method() string {
	if idx := strings.IndexByte(i.Signature, '('); idx >= 0 {
		return i.Signature[:idx]
	}
	return i.Signature
}

// Call is an encoded invocation, ready to be wrapped into a vote script.
type Call struct {
	Target common.Address
	Data   []byte
}

// Action is something a passed vote does. Each variant expands into one or
// more invocations.
type Action interface {
	Kind() string
	Invocations() ([]Invocation, error)
}

// Encode serializes actions into calls, preserving order.
func Encode(actions ...Action) ([]Call, error) {
	var calls []Call
	for _, action := range actions {
		invs, err := action.Invocations()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", action.Kind(), err)
		}
		for _, inv := range invs {
			data, err := EncodeCall(inv.Signature, inv.Args...)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", action.Kind(), err)
			}
			calls = append(calls, Call{Target: inv.Target, Data: data})
		}
	}
	return calls, nil
}

// PoolType identifies the pool family; gauges share the same families.
type PoolType string

const (
	Stableswap        PoolType = "stableswap"
	StableswapFactory PoolType = "stableswap_factory"
	CryptoFactory     PoolType = "crypto_factory"
	TricryptoNG       PoolType = "tricrypto_ng"
)

var PoolTypes = []PoolType{Stableswap, StableswapFactory, CryptoFactory, TricryptoNG}

func ParsePoolType(s string) (PoolType, error) {
	for _, t := range PoolTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown pool type %q", s)
}

// KillGauge kills or revives a gauge through the owner of its family.
type KillGauge struct {
	GaugeType PoolType
	Gauge     common.Address
	Kill      bool
}

func (KillGauge) Kind() string { return "kill_gauge" }

func (a KillGauge) Invocations() ([]Invocation, error) {
	var owner common.Address
	switch a.GaugeType {
	case CryptoFactory:
		owner = CryptoswapFactoryOwner
	case Stableswap:
		owner = StableswapGaugeOwner
	case StableswapFactory:
		owner = StableswapFactoryOwner
	case TricryptoNG:
		// The ownership agent administers these gauges directly.
		return []Invocation{{Target: a.Gauge, Signature: "set_killed(bool)", Args: []any{a.Kill}}}, nil
	default:
		return nil, fmt.Errorf("unknown gauge type %q", a.GaugeType)
	}
	return []Invocation{{Target: owner, Signature: "set_killed(address,bool)", Args: []any{a.Gauge, a.Kill}}}, nil
}

// Whitelist approves a smart contract to lock veCRV.
type Whitelist struct {
	Wallet common.Address
}

func (Whitelist) Kind() string { return "whitelist" }

func (a Whitelist) Invocations() ([]Invocation, error) {
	return []Invocation{{Target: SmartWalletChecker, Signature: "approveWallet(address)", Args: []any{a.Wallet}}}, nil
}

// DefaultVestingDuration is the minimum vesting period of a community fund
// grant.
const DefaultVestingDuration = 365 * 24 * time.Hour

// VestingGrant deploys a CRV vesting contract funded by the community fund.
type VestingGrant struct {
	Recipient    common.Address
	Amount       *big.Int
	Duration     time.Duration
	AllowDisable bool
}

// NewVestingGrant returns a grant with the default duration that the DAO
// may disable.
func NewVestingGrant(recipient common.Address, amount *big.Int) VestingGrant {
	return VestingGrant{Recipient: recipient, Amount: amount, Duration: DefaultVestingDuration, AllowDisable: true}
}

func (VestingGrant) Kind() string { return "community_fund" }

func (a VestingGrant) Invocations() ([]Invocation, error) {
	if a.Amount == nil || a.Amount.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if a.Duration < DefaultVestingDuration {
		return nil, fmt.Errorf("duration %s is shorter than one year", a.Duration)
	}
	seconds := new(big.Int).SetInt64(int64(a.Duration / time.Second))
	return []Invocation{{
		Target:    CommunityFund,
		Signature: "deploy_vesting_contract(address,address,uint256,bool,uint256)",
		Args:      []any{CRV, a.Recipient, a.Amount, a.AllowDisable, seconds},
	}}, nil
}

// DebtCeiling sets a peg keeper's debt ceiling. Rug also burns the excess
// when the ceiling is lowered.
type DebtCeiling struct {
	PegKeeper common.Address
	Ceiling   *big.Int
	Rug       bool
}

func (DebtCeiling) Kind() string { return "pegkeeper_debt_ceiling" }

func (a DebtCeiling) Invocations() ([]Invocation, error) {
	if a.Ceiling == nil || a.Ceiling.Sign() < 0 {
		return nil, errors.New("ceiling must be non-negative")
	}
	invs := []Invocation{{
		Target:    ControllerFactory,
		Signature: "set_debt_ceiling(address,uint256)",
		Args:      []any{a.PegKeeper, a.Ceiling},
	}}
	if a.Rug {
		invs = append(invs, Invocation{
			Target:    ControllerFactory,
			Signature: "rug_debt_ceiling(address)",
			Args:      []any{a.PegKeeper},
		})
	}
	return invs, nil
}

// NeedsRug reports whether lowering from current to ceiling leaves excess
// debt to burn.
func NeedsRug(current, ceiling *big.Int) bool {
	return current != nil && ceiling != nil && ceiling.Cmp(current) < 0
}

// Pool parameter names accepted by ParameterChange.
const (
	ParamA                  = "A"
	ParamGamma              = "gamma"
	ParamFee                = "fee"
	ParamAdminFee           = "admin_fee"
	ParamMidFee             = "mid_fee"
	ParamOutFee             = "out_fee"
	ParamFeeGamma           = "fee_gamma"
	ParamAllowedExtraProfit = "allowed_extra_profit"
	ParamAdjustmentStep     = "adjustment_step"
	ParamMaTime             = "ma_time"
	ParamFutureTime         = "future_time"
)

// DefaultRampDelay is how far in the future an amplification ramp ends when
// no future_time is given.
const DefaultRampDelay = 7 * 24 * time.Hour

var poolParams = map[PoolType][]string{
	Stableswap:        {ParamA, ParamFee, ParamFutureTime},
	StableswapFactory: {ParamA, ParamFee, ParamFutureTime},
	CryptoFactory: {ParamA, ParamGamma, ParamFutureTime, ParamMidFee, ParamOutFee, ParamAdminFee,
		ParamFeeGamma, ParamAllowedExtraProfit, ParamAdjustmentStep, ParamMaTime},
	TricryptoNG: {ParamA, ParamGamma, ParamFutureTime, ParamMidFee, ParamOutFee,
		ParamFeeGamma, ParamAllowedExtraProfit, ParamAdjustmentStep, ParamMaTime},
}

var (
	cryptoFactoryCommit = []string{ParamMidFee, ParamOutFee, ParamAdminFee, ParamFeeGamma,
		ParamAllowedExtraProfit, ParamAdjustmentStep, ParamMaTime}
	tricryptoCommit = []string{ParamMidFee, ParamOutFee, ParamFeeGamma,
		ParamAllowedExtraProfit, ParamAdjustmentStep, ParamMaTime}
)

// ParameterChange ramps amplification and commits new fee parameters for a
// pool.
type ParameterChange struct {
	PoolType PoolType
	Pool     common.Address
	Params   map[string]*big.Int
	// Now is the reference time for the default ramp end.
	Now time.Time
}

func (ParameterChange) Kind() string { return "change_parameters" }

// ValidatePoolParameters rejects names the pool type does not accept.
func ValidatePoolParameters(poolType PoolType, params map[string]*big.Int) error {
	allowed, ok := poolParams[poolType]
	if !ok {
		return fmt.Errorf("unknown pool type %q", poolType)
	}
	var bad []string
	for name := range params {
		if !contains(allowed, name) {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("parameters %s not supported for %s pools", strings.Join(bad, ", "), poolType)
	}
	if len(params) == 0 {
		return errors.New("no parameters given")
	}
	return nil
}

func (a ParameterChange) Invocations() ([]Invocation, error) {
	if err := ValidatePoolParameters(a.PoolType, a.Params); err != nil {
		return nil, err
	}
	futureTime := a.Params[ParamFutureTime]
	if futureTime == nil {
		now := a.Now
		if now.IsZero() {
			now = time.Now()
		}
		futureTime = big.NewInt(now.Add(DefaultRampDelay).Unix())
	}

	_, hasA := a.Params[ParamA]
	_, hasGamma := a.Params[ParamGamma]

	switch a.PoolType {
	case Stableswap, StableswapFactory:
		owner := StableswapOwner
		if a.PoolType == StableswapFactory {
			owner = StableswapFactoryOwner
		}
		var invs []Invocation
		if hasA {
			invs = append(invs, Invocation{
				Target:    owner,
				Signature: "ramp_A(address,uint256,uint256)",
				Args:      []any{a.Pool, a.Params[ParamA], futureTime},
			})
		}
		if fee, ok := a.Params[ParamFee]; ok {
			invs = append(invs, Invocation{
				Target:    owner,
				Signature: "commit_new_fee(address,uint256)",
				Args:      []any{a.Pool, fee},
			})
		}
		if len(invs) == 0 {
			return nil, errors.New("nothing to change: give A or fee")
		}
		return invs, nil

	case CryptoFactory, TricryptoNG:
		var invs []Invocation
		if hasA || hasGamma {
			if !hasA || !hasGamma {
				return nil, errors.New("A and gamma must be ramped together")
			}
			inv := Invocation{
				Target:    a.Pool,
				Signature: "ramp_A_gamma(uint256,uint256,uint256)",
				Args:      []any{a.Params[ParamA], a.Params[ParamGamma], futureTime},
			}
			if a.PoolType == CryptoFactory {
				inv = Invocation{
					Target:    CryptoswapFactoryOwner,
					Signature: "ramp_A_gamma(address,uint256,uint256,uint256)",
					Args:      []any{a.Pool, a.Params[ParamA], a.Params[ParamGamma], futureTime},
				}
			}
			invs = append(invs, inv)
		}

		names := tricryptoCommit
		if a.PoolType == CryptoFactory {
			names = cryptoFactoryCommit
		}
		commit, err := commitArgs(names, a.Params)
		if err != nil {
			return nil, err
		}
		if commit != nil {
			inv := Invocation{
				Target:    a.Pool,
				Signature: "commit_new_parameters(" + uintList(len(names)) + ")",
				Args:      commit,
			}
			if a.PoolType == CryptoFactory {
				inv = Invocation{
					Target:    CryptoswapFactoryOwner,
					Signature: "commit_new_parameters(address," + uintList(len(names)) + ")",
					Args:      append([]any{a.Pool}, commit...),
				}
			}
			invs = append(invs, inv)
		}
		if len(invs) == 0 {
			return nil, errors.New("nothing to change: give A and gamma or the fee parameters")
		}
		return invs, nil
	}
	return nil, fmt.Errorf("unknown pool type %q", a.PoolType)
}

// commitArgs returns nil when none of names is set, and an error when only
// some are: the pool commits them as one set.
func commitArgs(names []string, params map[string]*big.Int) ([]any, error) {
	var args []any
	var missing []string
	for _, name := range names {
		v, ok := params[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		args = append(args, v)
	}
	if len(args) == 0 {
		return nil, nil
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("committing new parameters also needs %s", strings.Join(missing, ", "))
	}
	return args, nil
}

func uintList(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "uint256"
	}
	return strings.Join(parts, ",")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
