package voting

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const votingABIJSON = `[
  {
    "inputs": [{"name": "_voteId", "type": "uint256"}],
    "name": "getVote",
    "outputs": [
      {"name": "open", "type": "bool"},
      {"name": "executed", "type": "bool"},
      {"name": "startDate", "type": "uint64"},
      {"name": "snapshotBlock", "type": "uint64"},
      {"name": "supportRequired", "type": "uint64"},
      {"name": "minAcceptQuorum", "type": "uint64"},
      {"name": "yea", "type": "uint256"},
      {"name": "nay", "type": "uint256"},
      {"name": "votingPower", "type": "uint256"},
      {"name": "script", "type": "bytes"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "votesLength",
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "voteTime",
    "outputs": [{"name": "", "type": "uint64"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "_voteId", "type": "uint256"}],
    "name": "canExecute",
    "outputs": [{"name": "", "type": "bool"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"name": "_executionScript", "type": "bytes"},
      {"name": "_metadata", "type": "string"},
      {"name": "_castVote", "type": "bool"},
      {"name": "_executesIfDecided", "type": "bool"}
    ],
    "name": "newVote",
    "outputs": [{"name": "voteId", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"name": "_voteData", "type": "uint256"},
      {"name": "_supports", "type": "bool"},
      {"name": "_executesIfDecided", "type": "bool"}
    ],
    "name": "vote",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"name": "_voteId", "type": "uint256"}],
    "name": "executeVote",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "voteId", "type": "uint256"},
      {"indexed": true, "name": "creator", "type": "address"},
      {"indexed": false, "name": "metadata", "type": "string"}
    ],
    "name": "StartVote",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [{"indexed": true, "name": "voteId", "type": "uint256"}],
    "name": "ExecuteVote",
    "type": "event"
  }
]`

var (
	votingABI     abi.ABI
	votingABIOnce sync.Once
	votingABIErr  error
)

// ABI returns the parsed Aragon Voting ABI.
func ABI() (abi.ABI, error) {
	votingABIOnce.Do(func() {
		votingABI, votingABIErr = abi.JSON(strings.NewReader(votingABIJSON))
	})
	return votingABI, votingABIErr
}
