package dao

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

func TestVoteCategoryDAO(t *testing.T) {
	for _, name := range []string{"ownership", "Parameter", " emergency "} {
		c, err := ParseVoteCategory(name)
		require.NoError(t, err)
		assert.True(t, c.Valid())
		assert.Equal(t, c, c.DAO().Category)
	}

	_, err := ParseVoteCategory("treasury")
	assert.Error(t, err)

	assert.Equal(t, uint8(30), Ownership.DAO().Quorum)
	assert.Equal(t, uint8(15), Parameter.DAO().Quorum)
	assert.Equal(t, uint8(51), Emergency.DAO().Quorum)
	assert.Nil(t, Ownership.DAO().Forwarder)
	require.NotNil(t, Emergency.DAO().Forwarder)
	assert.Equal(t, common.HexToAddress("0xE478de485ad2fe566d49342Cbd03E49ed7DB3356"), Ownership.DAO().Voting)

	var zero VoteCategory
	assert.Equal(t, Ownership, zero.DAO().Category)

	c, ok := IsAgent(common.HexToAddress("0x4eeb3ba4f221ca16ed4a0cc7254e2e32df948c5f"))
	assert.True(t, ok)
	assert.Equal(t, Parameter, c)
}

func TestVoteCategoryFlagValue(t *testing.T) {
	var c VoteCategory
	require.NoError(t, c.Set("emergency"))
	assert.Equal(t, Emergency, c)
	assert.Equal(t, "emergency", c.String())
	assert.Error(t, c.Set("nope"))

	text, err := Parameter.MarshalText()
	require.NoError(t, err)
	require.NoError(t, c.UnmarshalText(text))
	assert.Equal(t, Parameter, c)
}

func TestKillGaugeTargets(t *testing.T) {
	gauge := common.HexToAddress("0x762648808ef8b25c6d92270b1c84ec97df3bed6b")

	cases := []struct {
		gaugeType PoolType
		target    common.Address
		sig       string
	}{
		{CryptoFactory, CryptoswapFactoryOwner, "set_killed(address,bool)"},
		{Stableswap, StableswapGaugeOwner, "set_killed(address,bool)"},
		{StableswapFactory, StableswapFactoryOwner, "set_killed(address,bool)"},
		{TricryptoNG, gauge, "set_killed(bool)"},
	}
	for _, tc := range cases {
		calls, err := Encode(KillGauge{GaugeType: tc.gaugeType, Gauge: gauge, Kill: true})
		require.NoError(t, err, tc.gaugeType)
		require.Len(t, calls, 1)
		assert.Equal(t, tc.target, calls[0].Target, tc.gaugeType)
		assert.Equal(t, selector(tc.sig), calls[0].Data[:4], tc.gaugeType)
	}

	_, err := Encode(KillGauge{GaugeType: "lending", Gauge: gauge})
	assert.Error(t, err)
}

func TestWhitelistEncoding(t *testing.T) {
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")
	calls, err := Encode(Whitelist{Wallet: wallet})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, SmartWalletChecker, calls[0].Target)
	assert.Equal(t, selector("approveWallet(address)"), calls[0].Data[:4])
	assert.Equal(t, common.LeftPadBytes(wallet.Bytes(), 32), calls[0].Data[4:])
}

func TestVestingGrant(t *testing.T) {
	recipient := common.HexToAddress("0x2222222222222222222222222222222222222222")
	grant := NewVestingGrant(recipient, big.NewInt(1_000_000))
	assert.True(t, grant.AllowDisable)

	invs, err := grant.Invocations()
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, CommunityFund, invs[0].Target)
	assert.Equal(t, "deploy_vesting_contract", invs[0].Method())
	assert.Equal(t, CRV, invs[0].Args[0])
	assert.Equal(t, big.NewInt(365*86400), invs[0].Args[4])

	grant.Duration = 30 * 24 * time.Hour
	_, err = grant.Invocations()
	assert.Error(t, err)

	_, err = VestingGrant{Recipient: recipient, Duration: DefaultVestingDuration}.Invocations()
	assert.Error(t, err)
}

func TestDebtCeiling(t *testing.T) {
	keeper := common.HexToAddress("0x3333333333333333333333333333333333333333")

	assert.True(t, NeedsRug(big.NewInt(10), big.NewInt(5)))
	assert.False(t, NeedsRug(big.NewInt(5), big.NewInt(10)))

	calls, err := Encode(DebtCeiling{PegKeeper: keeper, Ceiling: big.NewInt(5), Rug: true})
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, selector("set_debt_ceiling(address,uint256)"), calls[0].Data[:4])
	assert.Equal(t, selector("rug_debt_ceiling(address)"), calls[1].Data[:4])

	calls, err = Encode(DebtCeiling{PegKeeper: keeper, Ceiling: big.NewInt(50)})
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}

func TestParameterChangeStableswap(t *testing.T) {
	pool := common.HexToAddress("0xbEbc44782C7dB0a1A60Cb6fe97d0b483032FF1C7")
	now := time.Unix(1_700_000_000, 0)

	invs, err := ParameterChange{
		PoolType: StableswapFactory,
		Pool:     pool,
		Params:   map[string]*big.Int{ParamA: big.NewInt(2000), ParamFee: big.NewInt(1_000_000)},
		Now:      now,
	}.Invocations()
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.Equal(t, StableswapFactoryOwner, invs[0].Target)
	assert.Equal(t, "ramp_A", invs[0].Method())
	assert.Equal(t, big.NewInt(now.Add(DefaultRampDelay).Unix()), invs[0].Args[2])
	assert.Equal(t, "commit_new_fee", invs[1].Method())

	invs, err = ParameterChange{
		PoolType: Stableswap,
		Pool:     pool,
		Params:   map[string]*big.Int{ParamA: big.NewInt(2000), ParamFutureTime: big.NewInt(42)},
	}.Invocations()
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, StableswapOwner, invs[0].Target)
	assert.Equal(t, big.NewInt(42), invs[0].Args[2])

	_, err = ParameterChange{PoolType: Stableswap, Pool: pool, Params: map[string]*big.Int{ParamGamma: big.NewInt(1)}}.Invocations()
	assert.ErrorContains(t, err, "gamma")
}

func TestParameterChangeCrypto(t *testing.T) {
	pool := common.HexToAddress("0x4444444444444444444444444444444444444444")
	fees := map[string]*big.Int{
		ParamMidFee:             big.NewInt(1),
		ParamOutFee:             big.NewInt(2),
		ParamFeeGamma:           big.NewInt(3),
		ParamAllowedExtraProfit: big.NewInt(4),
		ParamAdjustmentStep:     big.NewInt(5),
		ParamMaTime:             big.NewInt(6),
	}

	calls, err := Encode(ParameterChange{PoolType: TricryptoNG, Pool: pool, Params: fees})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, pool, calls[0].Target)
	assert.Equal(t, selector("commit_new_parameters(uint256,uint256,uint256,uint256,uint256,uint256)"), calls[0].Data[:4])

	// crypto_factory pools also commit admin_fee.
	_, err = Encode(ParameterChange{PoolType: CryptoFactory, Pool: pool, Params: fees})
	assert.ErrorContains(t, err, "admin_fee")

	fees[ParamAdminFee] = big.NewInt(7)
	fees[ParamA] = big.NewInt(100)
	fees[ParamGamma] = big.NewInt(200)
	calls, err = Encode(ParameterChange{PoolType: CryptoFactory, Pool: pool, Params: fees, Now: time.Unix(0, 0)})
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, CryptoswapFactoryOwner, calls[0].Target)
	assert.Equal(t, selector("ramp_A_gamma(address,uint256,uint256,uint256)"), calls[0].Data[:4])
	assert.Equal(t, selector("commit_new_parameters(address,uint256,uint256,uint256,uint256,uint256,uint256,uint256)"), calls[1].Data[:4])

	_, err = Encode(ParameterChange{PoolType: TricryptoNG, Pool: pool, Params: map[string]*big.Int{ParamA: big.NewInt(1)}})
	assert.ErrorContains(t, err, "gamma")
}

func TestScriptRoundTrip(t *testing.T) {
	agent := Ownership.DAO().Agent
	calls, err := Encode(
		Whitelist{Wallet: common.HexToAddress("0x5555555555555555555555555555555555555555")},
		KillGauge{GaugeType: TricryptoNG, Gauge: common.HexToAddress("0x6666666666666666666666666666666666666666"), Kill: true},
	)
	require.NoError(t, err)

	script, err := AgentScript(agent, calls)
	require.NoError(t, err)
	assert.Equal(t, CallsScriptID, script[:4])

	parsed, err := ParseScript(script)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	for i, sc := range parsed {
		assert.Equal(t, agent, sc.Target)
		inner, value, ok := UnwrapExecute(sc.Data)
		require.True(t, ok)
		assert.Equal(t, 0, value.Sign())
		assert.Equal(t, calls[i], inner)
	}
}

func TestParseScriptRejectsMalformed(t *testing.T) {
	script := EncodeScript([]ScriptCall{{Target: common.HexToAddress("0x01"), Data: []byte{1, 2, 3, 4}}})

	_, err := ParseScript(script[:len(script)-1])
	assert.ErrorIs(t, err, ErrInvalidScript)

	_, err = ParseScript(script[:10])
	assert.ErrorIs(t, err, ErrInvalidScript)

	bad := append([]byte{0, 0, 0, 2}, script[4:]...)
	_, err = ParseScript(bad)
	assert.ErrorIs(t, err, ErrInvalidScript)

	empty, err := ParseScript(CallsScriptID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, _, ok := UnwrapExecute([]byte{1, 2, 3, 4})
	assert.False(t, ok)
}
