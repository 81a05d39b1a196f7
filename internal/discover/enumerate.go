package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/devblac/abiscout/internal/abidoc"
	"github.com/devblac/abiscout/internal/chain"
	"github.com/devblac/abiscout/internal/metrics"
)

// StopReason classifies why a probe ended enumeration. Control flow treats
// every reason the same way; the distinction is kept for logs and metrics.
type StopReason string

const (
	StopReverted  StopReason = "reverted"
	StopTransport StopReason = "transport"
	StopDecode    StopReason = "decode"
)

// ProbeResult is the outcome of one accessor probe: either a returned
// address or a stop signal with its classified reason.
type ProbeResult struct {
	Address common.Address
	Stopped bool
	Reason  StopReason
	Err     error
}

// Enumerator walks an integer-indexed module accessor, strictly in order,
// until the first failed call.
type Enumerator struct {
	probe     chain.Probe
	source    AbiSource
	network   string
	contract  common.Address
	accessor  string
	indexType string
	callABI   abi.ABI
	log       *slog.Logger
	metrics   *metrics.Metrics
}

// NewEnumerator builds an enumerator for the given accessor entry. The
// entry must already satisfy the accessor precondition.
func NewEnumerator(probe chain.Probe, source AbiSource, network string, contract common.Address, accessor abidoc.Entry, log *slog.Logger, m *metrics.Metrics) (*Enumerator, error) {
	parsed, err := methodABI(accessor)
	if err != nil {
		return nil, err
	}
	if len(accessor.Inputs) != 1 {
		return nil, fmt.Errorf("accessor %q must take a single index", accessor.Name)
	}
	return &Enumerator{
		probe:     probe,
		source:    source,
		network:   network,
		contract:  contract,
		accessor:  accessor.Name,
		indexType: accessor.Inputs[0].Type,
		callABI:   parsed,
		log:       log,
		metrics:   m,
	}, nil
}

// Run probes indexes 0, 1, 2, ... until the accessor call fails, fetching
// the ABI of every non-zero address returned. The probe for index i+1 is
// never issued before probe i resolves: the stopping rule depends on it.
// The first failed call ends the run normally; an index-0 failure means a
// deployment with no submodules yet, reported as a warning, not an error.
// A failed module ABI fetch also ends enumeration, keeping the records
// gathered so far.
func (e *Enumerator) Run(ctx context.Context) ([]ModuleRecord, error) {
	var records []ModuleRecord
	for index := uint64(0); ; index++ {
		res := e.probeIndex(ctx, index)
		e.metrics.Probes()

		if res.Stopped {
			if index == 0 {
				e.log.Warn("no modules enumerated", "contract", e.contract.Hex(), "reason", res.Reason, "error", res.Err)
			} else {
				e.log.Info("enumeration complete", "contract", e.contract.Hex(), "last_index", index-1, "reason", res.Reason)
			}
			return records, nil
		}

		if res.Address == (common.Address{}) {
			// placeholder slot: record nothing, keep probing
			e.log.Debug("placeholder module slot", "index", index)
			continue
		}

		doc, err := e.source.FetchABI(ctx, e.network, res.Address)
		if err != nil {
			e.log.Warn("module abi fetch failed, stopping enumeration",
				"index", index, "address", res.Address.Hex(), "error", err)
			e.metrics.Errors()
			return records, nil
		}

		records = append(records, ModuleRecord{Index: index, Address: res.Address, ABI: doc})
		e.metrics.ModulesDiscovered()
		e.log.Info("module discovered", "index", index, "address", res.Address.Hex())
	}
}

func (e *Enumerator) probeIndex(ctx context.Context, index uint64) ProbeResult {
	arg, err := indexArg(e.indexType, index)
	if err != nil {
		return ProbeResult{Stopped: true, Reason: StopDecode, Err: err}
	}
	input, err := e.callABI.Pack(e.accessor, arg)
	if err != nil {
		return ProbeResult{Stopped: true, Reason: StopDecode, Err: fmt.Errorf("pack index %d: %w", index, err)}
	}

	out, err := e.probe.CallContract(ctx, ethereum.CallMsg{To: &e.contract, Data: input}, nil)
	if err != nil {
		reason := StopTransport
		if isRevert(err) {
			reason = StopReverted
		}
		return ProbeResult{Stopped: true, Reason: reason, Err: err}
	}

	vals, err := e.callABI.Unpack(e.accessor, out)
	if err != nil {
		return ProbeResult{Stopped: true, Reason: StopDecode, Err: fmt.Errorf("unpack index %d: %w", index, err)}
	}
	if len(vals) == 0 {
		return ProbeResult{Stopped: true, Reason: StopDecode, Err: fmt.Errorf("accessor returned no values at index %d", index)}
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return ProbeResult{Stopped: true, Reason: StopDecode, Err: fmt.Errorf("accessor returned %T, want address", vals[0])}
	}
	return ProbeResult{Address: addr}
}

// indexArg converts an index to the Go representation the packer expects
// for the accessor's declared input type. go-ethereum maps uint8 through
// uint64 to native integers and everything wider to *big.Int.
func indexArg(typ string, index uint64) (any, error) {
	bits := 256
	if suffix := strings.TrimPrefix(typ, "uint"); suffix != "" {
		n, err := strconv.Atoi(suffix)
		if err != nil {
			return nil, fmt.Errorf("accessor index type %q: %w", typ, err)
		}
		bits = n
	}
	if bits < 64 && index >= 1<<uint(bits) {
		return nil, fmt.Errorf("index %d overflows %s", index, typ)
	}
	switch bits {
	case 8:
		return uint8(index), nil
	case 16:
		return uint16(index), nil
	case 32:
		return uint32(index), nil
	case 64:
		return index, nil
	default:
		return new(big.Int).SetUint64(index), nil
	}
}

// isRevert reports whether a call error looks like an execution revert,
// which conventionally signals "index out of range". Clients do not expose
// this reliably, so the check is best effort and only feeds observability.
func isRevert(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "revert") || strings.Contains(msg, "execution error")
}

// methodABI wraps a single function entry in a parsed go-ethereum ABI so
// its calls can be packed and unpacked.
func methodABI(entry abidoc.Entry) (abi.ABI, error) {
	raw, err := json.Marshal(abidoc.Document{entry})
	if err != nil {
		return abi.ABI{}, fmt.Errorf("marshal accessor entry: %w", err)
	}
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse accessor entry: %w", err)
	}
	return parsed, nil
}
