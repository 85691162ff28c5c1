package dao

import "github.com/ethereum/go-ethereum/common"

// Well-known mainnet contracts that actions target.
var (
	CRV          = common.HexToAddress("0xD533a949740bb3306d119CC777fa900bA034cd52")
	VotingEscrow = common.HexToAddress("0x5f3b5DfEb7B28CDbD7FAba78963EE202a494e2A2")

	// ConvexVoterProxy holds enough voting power to pass a vote alone on a
	// fork.
	ConvexVoterProxy = common.HexToAddress("0x989AEB4D175E16225E39E87D0D97A3360524AD80")

	CryptoswapFactoryOwner  = common.HexToAddress("0x5a8fdC979ba9b6179916404414F7BA4D8B77C8A1")
	StableswapOwner         = common.HexToAddress("0xeCb456EA5365865EbAb8a2661B0c503410e9B347")
	StableswapFactoryOwner  = common.HexToAddress("0x742C3cF9Af45f91B109a81EfEaf11535ECDe9571")
	StableswapFactoryOwner2 = common.HexToAddress("0x768caA20Cf1921772B6F56950e23Bafd94aF5CFF")
	StableswapGaugeOwner    = common.HexToAddress("0x519AFB566c05E00cfB9af73496D00217A630e4D5")
	SmartWalletChecker      = common.HexToAddress("0xca719728Ef172d0961768581fdF35CB116e0B7a4")
	ControllerFactory       = common.HexToAddress("0xC9332fdCB1C491Dcc683bAe86Fe3cb70360738BC")
	CommunityFund           = common.HexToAddress("0xe3997288987E6297Ad550A69B31439504F513267")
)
