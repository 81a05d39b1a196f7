package discover

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/devblac/abiscout/internal/abidoc"
)

var errReverted = errors.New("execution reverted")

// fakeProbe answers accessor probes from a fixed module table and getter
// calls from a data→address map.
type fakeProbe struct {
	modules      []common.Address // index -> returned address; out of range reverts
	indexErrs    map[uint64]error // overrides for specific indexes
	getterOut    map[string]common.Address
	getterErrs   map[string]error
	storageWord  []byte
	storageErr   error
	callCount    int
	storageCount int
}

func (f *fakeProbe) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.callCount++

	if len(msg.Data) >= 36 {
		// accessor probe: uint256 index in the argument word
		index := new(big.Int).SetBytes(msg.Data[4:36]).Uint64()
		if err, ok := f.indexErrs[index]; ok {
			return nil, err
		}
		if index >= uint64(len(f.modules)) {
			return nil, errReverted
		}
		return common.LeftPadBytes(f.modules[index].Bytes(), 32), nil
	}

	key := hex.EncodeToString(msg.Data)
	if err, ok := f.getterErrs[key]; ok {
		return nil, err
	}
	if addr, ok := f.getterOut[key]; ok {
		return common.LeftPadBytes(addr.Bytes(), 32), nil
	}
	return nil, fmt.Errorf("unexpected call data %s", key)
}

func (f *fakeProbe) StorageAt(_ context.Context, _ common.Address, _ common.Hash, _ *big.Int) ([]byte, error) {
	f.storageCount++
	if f.storageErr != nil {
		return nil, f.storageErr
	}
	return f.storageWord, nil
}

func (f *fakeProbe) ChainID(_ context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

// fakeSource serves ABIs from a map and fails for addresses in errs.
type fakeSource struct {
	docs  map[common.Address]abidoc.Document
	errs  map[common.Address]error
	calls []common.Address
}

func (f *fakeSource) FetchABI(_ context.Context, _ string, address common.Address) (abidoc.Document, error) {
	f.calls = append(f.calls, address)
	if err, ok := f.errs[address]; ok {
		return nil, err
	}
	if doc, ok := f.docs[address]; ok {
		return doc, nil
	}
	return nil, fmt.Errorf("no abi for %s", address.Hex())
}

// fakeSaver records saved artifacts by label.
type fakeSaver struct {
	saved map[string]abidoc.Document
	err   error
}

func (f *fakeSaver) Save(label string, doc abidoc.Document) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string]abidoc.Document{}
	}
	f.saved[label] = doc
	return nil
}

var accessorFn = abidoc.Entry{
	Type:            abidoc.KindFunction,
	Name:            "modules",
	Inputs:          []abidoc.Param{{Name: "index", Type: "uint256"}},
	Outputs:         []abidoc.Param{{Type: "address"}},
	StateMutability: "view",
}

func getterFn(name string) abidoc.Entry {
	return abidoc.Entry{
		Type:            abidoc.KindFunction,
		Name:            name,
		Outputs:         []abidoc.Param{{Type: "address"}},
		StateMutability: "view",
	}
}

func eventEntry(name string, types ...string) abidoc.Entry {
	inputs := make([]abidoc.Param, 0, len(types))
	for _, t := range types {
		inputs = append(inputs, abidoc.Param{Type: t})
	}
	return abidoc.Entry{Type: abidoc.KindEvent, Name: name, Inputs: inputs}
}

// getterData packs the zero-argument call data for a getter, keyed the way
// fakeProbe expects it.
func getterData(name string) string {
	parsed, err := methodABI(getterFn(name))
	if err != nil {
		panic(err)
	}
	input, err := parsed.Pack(name)
	if err != nil {
		panic(err)
	}
	return hex.EncodeToString(input)
}
