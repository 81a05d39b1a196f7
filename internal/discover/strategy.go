package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/devblac/abiscout/internal/abidoc"
	"github.com/devblac/abiscout/internal/chain"
	"github.com/devblac/abiscout/internal/metrics"
)

var (
	// ErrAccessorMissing signals the base ABI does not expose the module accessor.
	ErrAccessorMissing = errors.New("module accessor not found")
	// ErrNoValidGetters signals that none of the supplied getter names validate.
	ErrNoValidGetters = errors.New("no valid module getters")
)

// Strategy selects how submodule addresses are found for one run.
type Strategy interface {
	// Name identifies the strategy in logs and run history.
	Name() string
	// BaseAddress returns the address whose ABI serves as the base document.
	BaseAddress(ctx context.Context) (common.Address, error)
	// Validate checks the base document exposes what the strategy needs.
	// It runs before any accessor call is made and a failure is fatal.
	Validate(base abidoc.Document) error
	// Discover produces the module records for the validated base document.
	Discover(ctx context.Context, base abidoc.Document) ([]ModuleRecord, error)
}

// IndexProbe enumerates submodules through a fixed integer-indexed accessor.
type IndexProbe struct {
	probe    chain.Probe
	source   AbiSource
	network  string
	contract common.Address
	accessor string
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewIndexProbe builds the fixed-accessor strategy.
func NewIndexProbe(probe chain.Probe, source AbiSource, network string, contract common.Address, accessor string, log *slog.Logger, m *metrics.Metrics) *IndexProbe {
	return &IndexProbe{
		probe:    probe,
		source:   source,
		network:  network,
		contract: contract,
		accessor: accessor,
		log:      log,
		metrics:  m,
	}
}

func (s *IndexProbe) Name() string { return "index-probe" }

func (s *IndexProbe) BaseAddress(ctx context.Context) (common.Address, error) {
	return s.contract, nil
}

func (s *IndexProbe) Validate(base abidoc.Document) error {
	_, err := accessorEntry(base, s.accessor)
	return err
}

func (s *IndexProbe) Discover(ctx context.Context, base abidoc.Document) ([]ModuleRecord, error) {
	entry, err := accessorEntry(base, s.accessor)
	if err != nil {
		return nil, err
	}
	enum, err := NewEnumerator(s.probe, s.source, s.network, s.contract, entry, s.log, s.metrics)
	if err != nil {
		return nil, err
	}
	return enum.Run(ctx)
}

// ProxyIndexProbe resolves the EIP-1967 implementation first and then
// index-probes. The implementation's ABI becomes the base document while
// accessor calls still target the proxy, where the module state lives.
type ProxyIndexProbe struct {
	IndexProbe
}

// NewProxyIndexProbe builds the proxy-aware fixed-accessor strategy.
func NewProxyIndexProbe(probe chain.Probe, source AbiSource, network string, proxy common.Address, accessor string, log *slog.Logger, m *metrics.Metrics) *ProxyIndexProbe {
	return &ProxyIndexProbe{IndexProbe: *NewIndexProbe(probe, source, network, proxy, accessor, log, m)}
}

func (s *ProxyIndexProbe) Name() string { return "proxy-index-probe" }

func (s *ProxyIndexProbe) BaseAddress(ctx context.Context) (common.Address, error) {
	impl, err := ResolveImplementation(ctx, s.probe, s.contract)
	if err != nil {
		return common.Address{}, err
	}
	s.log.Info("resolved proxy implementation", "proxy", s.contract.Hex(), "implementation", impl.Hex())
	return impl, nil
}

// GetterList resolves submodules through a user-supplied list of view
// getters, each returning one module address.
type GetterList struct {
	probe    chain.Probe
	source   AbiSource
	network  string
	contract common.Address
	getters  []string
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewGetterList builds the getter-list strategy.
func NewGetterList(probe chain.Probe, source AbiSource, network string, contract common.Address, getters []string, log *slog.Logger, m *metrics.Metrics) *GetterList {
	return &GetterList{
		probe:    probe,
		source:   source,
		network:  network,
		contract: contract,
		getters:  getters,
		log:      log,
		metrics:  m,
	}
}

func (s *GetterList) Name() string { return "getter-list" }

func (s *GetterList) BaseAddress(ctx context.Context) (common.Address, error) {
	return s.contract, nil
}

// Validate requires at least one usable getter; unusable names are
// reported and skipped during discovery.
func (s *GetterList) Validate(base abidoc.Document) error {
	valid := 0
	for _, name := range s.getters {
		if _, err := getterEntry(base, name); err != nil {
			s.log.Warn("getter not usable", "getter", name, "error", err)
			continue
		}
		valid++
	}
	if valid == 0 {
		return fmt.Errorf("%w: tried %s", ErrNoValidGetters, strings.Join(s.getters, ", "))
	}
	return nil
}

// Discover calls each usable getter in list order. A getter that fails to
// call, returns the zero address, or whose module ABI cannot be fetched is
// skipped with a warning; the run continues with the remaining getters.
func (s *GetterList) Discover(ctx context.Context, base abidoc.Document) ([]ModuleRecord, error) {
	var records []ModuleRecord
	for i, name := range s.getters {
		entry, err := getterEntry(base, name)
		if err != nil {
			continue // already warned during Validate
		}

		addr, err := s.callGetter(ctx, entry)
		s.metrics.Probes()
		if err != nil {
			s.log.Warn("getter call failed, skipping", "getter", name, "error", err)
			s.metrics.Errors()
			continue
		}
		if addr == (common.Address{}) {
			s.log.Warn("getter returned zero address, skipping", "getter", name)
			continue
		}

		doc, err := s.source.FetchABI(ctx, s.network, addr)
		if err != nil {
			s.log.Warn("module abi fetch failed, skipping", "getter", name, "address", addr.Hex(), "error", err)
			s.metrics.Errors()
			continue
		}

		records = append(records, ModuleRecord{Index: uint64(i), Address: addr, ABI: doc})
		s.metrics.ModulesDiscovered()
		s.log.Info("module resolved", "getter", name, "address", addr.Hex())
	}
	return records, nil
}

func (s *GetterList) callGetter(ctx context.Context, entry abidoc.Entry) (common.Address, error) {
	parsed, err := methodABI(entry)
	if err != nil {
		return common.Address{}, err
	}
	input, err := parsed.Pack(entry.Name)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack %s: %w", entry.Name, err)
	}
	out, err := s.probe.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: input}, nil)
	if err != nil {
		return common.Address{}, err
	}
	vals, err := parsed.Unpack(entry.Name, out)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", entry.Name, err)
	}
	if len(vals) == 0 {
		return common.Address{}, fmt.Errorf("%s returned no values", entry.Name)
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s returned %T, want address", entry.Name, vals[0])
	}
	return addr, nil
}

// indexTypePattern matches elementary unsigned integer types. Array and
// tuple indexes are not accessors.
var indexTypePattern = regexp.MustCompile(`^uint([0-9]+)?$`)

// accessorEntry enforces the module accessor precondition: exact name,
// a single elementary unsigned integer index input, view mutability, at
// least one output.
func accessorEntry(base abidoc.Document, name string) (abidoc.Entry, error) {
	fn, ok := base.Function(name)
	if !ok {
		return abidoc.Entry{}, fmt.Errorf("%w: base abi has no function %q", ErrAccessorMissing, name)
	}
	if len(fn.Inputs) != 1 || !indexTypePattern.MatchString(fn.Inputs[0].Type) {
		return abidoc.Entry{}, fmt.Errorf("%w: %q must take a single unsigned integer index", ErrAccessorMissing, name)
	}
	if fn.StateMutability != "view" {
		return abidoc.Entry{}, fmt.Errorf("%w: %q must be a view function", ErrAccessorMissing, name)
	}
	if len(fn.Outputs) == 0 {
		return abidoc.Entry{}, fmt.Errorf("%w: %q has no outputs", ErrAccessorMissing, name)
	}
	return fn, nil
}

// getterEntry checks a user-supplied getter: zero inputs, view mutability,
// at least one output.
func getterEntry(base abidoc.Document, name string) (abidoc.Entry, error) {
	fn, ok := base.Function(name)
	if !ok {
		return abidoc.Entry{}, fmt.Errorf("base abi has no function %q", name)
	}
	if len(fn.Inputs) != 0 {
		return abidoc.Entry{}, fmt.Errorf("getter %q must take no arguments", name)
	}
	if fn.StateMutability != "view" {
		return abidoc.Entry{}, fmt.Errorf("getter %q must be a view function", name)
	}
	if len(fn.Outputs) == 0 {
		return abidoc.Entry{}, fmt.Errorf("getter %q has no outputs", name)
	}
	return fn, nil
}
