package discover

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devblac/abiscout/internal/abidoc"
	"github.com/devblac/abiscout/internal/logging"
)

var (
	addr1 = common.HexToAddress("0x1000000000000000000000000000000000000001")
	addr2 = common.HexToAddress("0x2000000000000000000000000000000000000002")
	base  = common.HexToAddress("0x00000000000000000000000000000000000000ba")
)

func newEnumerator(t *testing.T, probe *fakeProbe, source *fakeSource) *Enumerator {
	t.Helper()
	e, err := NewEnumerator(probe, source, "mainnet", base, accessorFn, logging.New(), nil)
	if err != nil {
		t.Fatalf("new enumerator: %v", err)
	}
	return e
}

func TestEnumeratorSkipsPlaceholderSlots(t *testing.T) {
	probe := &fakeProbe{
		modules: []common.Address{addr1, {}, addr2}, // zero address at index 1
	}
	source := &fakeSource{docs: map[common.Address]abidoc.Document{
		addr1: {eventEntry("A", "uint256")},
		addr2: {eventEntry("B", "address")},
	}}

	records, err := newEnumerator(t, probe, source).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Index != 0 || records[0].Address != addr1 {
		t.Fatalf("record 0 mismatch: %+v", records[0])
	}
	// index 1 is a placeholder, so the second record carries index 2
	if records[1].Index != 2 || records[1].Address != addr2 {
		t.Fatalf("record 1 mismatch: %+v", records[1])
	}
	// probes 0..2 succeed, probe 3 reverts and ends the run
	if probe.callCount != 4 {
		t.Fatalf("expected 4 probes, got %d", probe.callCount)
	}
}

func TestEnumeratorNarrowIndexType(t *testing.T) {
	// Accessors declared over uint8..uint64 must pack native integers;
	// go-ethereum rejects *big.Int arguments for those widths.
	for _, typ := range []string{"uint8", "uint32", "uint64"} {
		t.Run(typ, func(t *testing.T) {
			probe := &fakeProbe{modules: []common.Address{addr1}}
			source := &fakeSource{docs: map[common.Address]abidoc.Document{
				addr1: {eventEntry("A", "uint256")},
			}}

			accessor := accessorFn
			accessor.Inputs = []abidoc.Param{{Name: "index", Type: typ}}
			e, err := NewEnumerator(probe, source, "mainnet", base, accessor, logging.New(), nil)
			if err != nil {
				t.Fatalf("new enumerator: %v", err)
			}

			records, err := e.Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(records) != 1 || records[0].Address != addr1 {
				t.Fatalf("expected one record for %s, got %+v", addr1, records)
			}
			if probe.callCount != 2 {
				t.Fatalf("expected 2 probes, got %d", probe.callCount)
			}
		})
	}
}

func TestIndexArg(t *testing.T) {
	tests := []struct {
		typ   string
		index uint64
		want  any
		fails bool
	}{
		{typ: "uint8", index: 7, want: uint8(7)},
		{typ: "uint8", index: 256, fails: true},
		{typ: "uint16", index: 9, want: uint16(9)},
		{typ: "uint32", index: 3, want: uint32(3)},
		{typ: "uint64", index: 11, want: uint64(11)},
		{typ: "uint128", index: 5, want: big.NewInt(5)},
		{typ: "uint256", index: 5, want: big.NewInt(5)},
		{typ: "uint", index: 5, want: big.NewInt(5)},
	}
	for _, tt := range tests {
		got, err := indexArg(tt.typ, tt.index)
		if tt.fails {
			if err == nil {
				t.Fatalf("indexArg(%q, %d): expected overflow error", tt.typ, tt.index)
			}
			continue
		}
		if err != nil {
			t.Fatalf("indexArg(%q, %d): %v", tt.typ, tt.index, err)
		}
		if want, ok := tt.want.(*big.Int); ok {
			if bi, ok := got.(*big.Int); !ok || bi.Cmp(want) != 0 {
				t.Fatalf("indexArg(%q, %d) = %v (%T), want %v", tt.typ, tt.index, got, got, want)
			}
			continue
		}
		if got != tt.want {
			t.Fatalf("indexArg(%q, %d) = %v (%T), want %v (%T)", tt.typ, tt.index, got, got, tt.want, tt.want)
		}
	}
}

func TestEnumeratorEmptyDeployment(t *testing.T) {
	probe := &fakeProbe{} // index 0 already reverts
	source := &fakeSource{}

	records, err := newEnumerator(t, probe, source).Run(context.Background())
	if err != nil {
		t.Fatalf("an index-0 failure is not an error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestEnumeratorTransportErrorEndsEnumeration(t *testing.T) {
	probe := &fakeProbe{
		modules:   []common.Address{addr1, addr2},
		indexErrs: map[uint64]error{1: errors.New("dial tcp: i/o timeout")},
	}
	source := &fakeSource{docs: map[common.Address]abidoc.Document{
		addr1: {eventEntry("A")},
	}}

	records, err := newEnumerator(t, probe, source).Run(context.Background())
	if err != nil {
		t.Fatalf("transport stop must not be fatal: %v", err)
	}
	if len(records) != 1 || records[0].Address != addr1 {
		t.Fatalf("expected the records gathered before the stop, got %+v", records)
	}
}

func TestEnumeratorStopsOnModuleFetchFailure(t *testing.T) {
	probe := &fakeProbe{modules: []common.Address{addr1, addr2}}
	source := &fakeSource{
		docs: map[common.Address]abidoc.Document{addr1: {eventEntry("A")}},
		errs: map[common.Address]error{addr2: errors.New("explorer down")},
	}

	records, err := newEnumerator(t, probe, source).Run(context.Background())
	if err != nil {
		t.Fatalf("fetch failure must keep the partial result: %v", err)
	}
	if len(records) != 1 || records[0].Address != addr1 {
		t.Fatalf("expected only the first module, got %+v", records)
	}
}

func TestProbeResultClassification(t *testing.T) {
	tests := []struct {
		name   string
		errs   map[uint64]error
		reason StopReason
	}{
		{"revert", map[uint64]error{0: errReverted}, StopReverted},
		{"transport", map[uint64]error{0: errors.New("connection refused")}, StopTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := &fakeProbe{indexErrs: tt.errs}
			e := newEnumerator(t, probe, &fakeSource{})
			res := e.probeIndex(context.Background(), 0)
			if !res.Stopped || res.Reason != tt.reason {
				t.Fatalf("got %+v, want stop with reason %s", res, tt.reason)
			}
		})
	}
}
