package chain

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Probe captures the subset of ethclient used for discovery: read-only
// contract calls and raw storage reads.
type Probe interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// RPCClient is a thin wrapper over ethclient.Client that satisfies Probe.
type RPCClient struct {
	*ethclient.Client
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(rpcURL string) (*RPCClient, error) {
	c, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc: %w", err)
	}
	return &RPCClient{Client: c}, nil
}

// Ping verifies the endpoint answers and, when expected is non-zero, that it
// serves the expected chain.
func Ping(ctx context.Context, probe Probe, expected uint64) (uint64, error) {
	id, err := probe.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain id: %w", err)
	}
	got := id.Uint64()
	if expected != 0 && got != expected {
		return got, fmt.Errorf("chain id mismatch: rpc serves %d, config expects %d", got, expected)
	}
	return got, nil
}
