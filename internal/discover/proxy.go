package discover

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devblac/abiscout/internal/chain"
)

// ImplementationSlot is the EIP-1967 implementation storage slot,
// keccak256("eip1967.proxy.implementation") - 1.
var ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")

// ErrNoImplementation signals the proxy has no implementation set.
var ErrNoImplementation = errors.New("proxy implementation slot is empty")

// ResolveImplementation reads the EIP-1967 slot of a proxy contract and
// returns the implementation address from the low 20 bytes of the word.
// A failed read or an all-zero word is fatal for the caller: nothing
// downstream can proceed without an implementation address. One attempt,
// no retries.
func ResolveImplementation(ctx context.Context, probe chain.Probe, proxy common.Address) (common.Address, error) {
	word, err := probe.StorageAt(ctx, proxy, ImplementationSlot, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("read implementation slot of %s: %w", proxy.Hex(), err)
	}

	impl := common.BytesToAddress(word)
	if impl == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrNoImplementation, proxy.Hex())
	}
	return impl, nil
}
