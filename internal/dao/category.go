package dao

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// VoteCategory selects which voting app a vote is created in.
type VoteCategory uint8

const (
	Ownership VoteCategory = iota + 1
	Parameter
	Emergency
)

// Categories lists every vote category.
var Categories = []VoteCategory{Ownership, Parameter, Emergency}

// DAO is the fixed contract set behind one vote category.
type DAO struct {
	Category VoteCategory
	Agent    common.Address
	Voting   common.Address
	Token    common.Address
	// Quorum is the minimum acceptance quorum in percent.
	Quorum uint8
	// Forwarder is set only for categories whose votes are created through
	// a forwarder instead of directly on the voting app.
	Forwarder *common.Address
}

var (
	ownershipDAO = DAO{
		Category: Ownership,
		Agent:    common.HexToAddress("0x40907540d8a6C65c637785e8f8B742ae6b0b9968"),
		Voting:   common.HexToAddress("0xE478de485ad2fe566d49342Cbd03E49ed7DB3356"),
		Token:    VotingEscrow,
		Quorum:   30,
	}
	parameterDAO = DAO{
		Category: Parameter,
		Agent:    common.HexToAddress("0x4eeb3ba4f221ca16ed4a0cc7254e2e32df948c5f"),
		Voting:   common.HexToAddress("0xbcff8b0b9419b9a88c44546519b1e909cf330399"),
		Token:    VotingEscrow,
		Quorum:   15,
	}
	emergencyForwarder = common.HexToAddress("0xf409Ce40B5bb1e4Ef8e97b1979629859c6d5481f")
	emergencyDAO       = DAO{
		Category:  Emergency,
		Agent:     common.HexToAddress("0x00669DF67E4827FCc0E48A1838a8d5AB79281909"),
		Voting:    common.HexToAddress("0x1115c9b3168563354137cdc60efb66552dd50678"),
		Token:     common.HexToAddress("0x4c0947B16FB1f755A2D32EC21A0c4181f711C500"),
		Quorum:    51,
		Forwarder: &emergencyForwarder,
	}
)

// ParseVoteCategory accepts the lowercase category name.
func ParseVoteCategory(s string) (VoteCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ownership":
		return Ownership, nil
	case "parameter":
		return Parameter, nil
	case "emergency":
		return Emergency, nil
	default:
		return 0, fmt.Errorf("unknown vote category %q (want ownership, parameter or emergency)", s)
	}
}

func (c VoteCategory) String() string {
	switch c {
	case Ownership:
		return "ownership"
	case Parameter:
		return "parameter"
	case Emergency:
		return "emergency"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the declared categories.
func (c VoteCategory) Valid() bool {
	return c >= Ownership && c <= Emergency
}

// DAO returns the contract set for the category. The zero value of
// VoteCategory resolves to the ownership DAO.
func (c VoteCategory) DAO() DAO {
	switch c {
	case Parameter:
		return parameterDAO
	case Emergency:
		return emergencyDAO
	default:
		return ownershipDAO
	}
}

// Set implements pflag.Value.
func (c *VoteCategory) Set(s string) error {
	parsed, err := ParseVoteCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Type implements pflag.Value.
func (c *VoteCategory) Type() string {
	return "vote-category"
}

func (c VoteCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *VoteCategory) UnmarshalText(text []byte) error {
	return c.Set(string(text))
}

// IsAgent reports whether address is the agent of any category.
func IsAgent(address common.Address) (VoteCategory, bool) {
	for _, c := range Categories {
		if c.DAO().Agent == address {
			return c, true
		}
	}
	return 0, false
}
