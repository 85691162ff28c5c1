package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultCheatNamespace is the RPC namespace of the fork node's account and
// balance cheat codes.
const DefaultCheatNamespace = "anvil"

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	// CheatNamespace prefixes impersonation and balance RPCs, e.g. "anvil"
	// or "hardhat".
	CheatNamespace string
	// PollInterval is how often WaitReceipt polls.
	PollInterval time.Duration

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return newClient(rpcClient), nil
}

func newClient(rpcClient *rpc.Client) *Client {
	return &Client{
		rpcClient:      rpcClient,
		ethClient:      ethclient.NewClient(rpcClient),
		CheatNamespace: DefaultCheatNamespace,
		PollInterval:   time.Second,
		tsCache:        make(map[uint64]uint64),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// HeaderByNumber returns the block header by number. A nil number is the
// latest block.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.ethClient.HeaderByNumber(ctx, number)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// LatestTimestamp returns the timestamp of the latest block. It is not
// cached since the head moves.
func (c *Client) LatestTimestamp(ctx context.Context) (time.Time, error) {
	header, err := c.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// FilterLogs returns logs from fromBlock to the latest block for address
// matching the topic filter.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	address common.Address,
	topics [][]common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{address},
		Topics:    topics,
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

// SendFrom submits a transaction through eth_sendTransaction. The node must
// hold the key for from or be impersonating it.
func (c *Client) SendFrom(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	args := sendTxArgs{From: from, To: &to, Data: data}
	if value != nil && value.Sign() > 0 {
		args.Value = (*hexutil.Big)(value)
	}
	var hash common.Hash
	if err := c.rpcClient.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction from %s: %w", from.Hex(), err)
	}
	return hash, nil
}

// ErrReverted is returned by WaitReceipt for a mined but failed transaction.
var ErrReverted = errors.New("transaction reverted")

// WaitReceipt polls until the transaction is mined.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.ethClient.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Impersonate lets the fork node sign for address.
func (c *Client) Impersonate(ctx context.Context, address common.Address) error {
	return c.rpcClient.CallContext(ctx, nil, c.cheat("impersonateAccount"), address)
}

// StopImpersonating reverts Impersonate.
func (c *Client) StopImpersonating(ctx context.Context, address common.Address) error {
	return c.rpcClient.CallContext(ctx, nil, c.cheat("stopImpersonatingAccount"), address)
}

// SetBalance overwrites the ether balance of address on the fork.
func (c *Client) SetBalance(ctx context.Context, address common.Address, wei *big.Int) error {
	return c.rpcClient.CallContext(ctx, nil, c.cheat("setBalance"), address, (*hexutil.Big)(wei))
}

// IncreaseTime moves the fork clock forward.
func (c *Client) IncreaseTime(ctx context.Context, d time.Duration) error {
	return c.rpcClient.CallContext(ctx, nil, "evm_increaseTime", uint64(d/time.Second))
}

// Mine mines one block.
func (c *Client) Mine(ctx context.Context) error {
	return c.rpcClient.CallContext(ctx, nil, "evm_mine")
}

func (c *Client) cheat(method string) string {
	ns := c.CheatNamespace
	if ns == "" {
		ns = DefaultCheatNamespace
	}
	return ns + "_" + method
}
