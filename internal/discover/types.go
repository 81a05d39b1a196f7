package discover

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devblac/abiscout/internal/abidoc"
)

// AbiSource fetches a contract's ABI for an address on a network.
type AbiSource interface {
	FetchABI(ctx context.Context, network string, address common.Address) (abidoc.Document, error)
}

// Saver persists one named ABI artifact. Save failures are logged by the
// caller and never abort a discovery run.
type Saver interface {
	Save(label string, doc abidoc.Document) error
}

// ModuleRecord is one discovered submodule: its discovery index, address,
// and fetched ABI. Records are ordered by index and append-only within a run.
type ModuleRecord struct {
	Index   uint64
	Address common.Address
	ABI     abidoc.Document
}
