package discover

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devblac/abiscout/internal/abidoc"
	"github.com/devblac/abiscout/internal/metrics"
)

// Discoverer sequences one discovery run: resolve the base address, fetch
// its ABI, validate the strategy precondition, discover modules, merge
// events, and hand artifacts to the saver at each checkpoint.
type Discoverer struct {
	source  AbiSource
	saver   Saver
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Result is everything one run produced.
type Result struct {
	Network string
	Target  common.Address
	Base    abidoc.Document
	Modules []ModuleRecord
	Full    abidoc.Document
}

// EventsAdded is the number of module events merged into the base ABI.
func (r *Result) EventsAdded() int {
	return len(r.Full) - len(r.Base)
}

// New builds a Discoverer. saver may be nil to skip persistence.
func New(source AbiSource, saver Saver, log *slog.Logger, m *metrics.Metrics) *Discoverer {
	return &Discoverer{source: source, saver: saver, log: log, metrics: m}
}

// Run executes one discovery run with the given strategy. Errors before
// and during base resolution are fatal; failures inside the open-ended
// discovery phase are absorbed by the strategy and surface as warnings or
// a shorter module list.
func (d *Discoverer) Run(ctx context.Context, network string, strat Strategy) (*Result, error) {
	target, err := strat.BaseAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve base address: %w", err)
	}

	base, err := d.source.FetchABI(ctx, network, target)
	if err != nil {
		return nil, fmt.Errorf("fetch base abi for %s: %w", target.Hex(), err)
	}
	d.persist(label(target, "base"), base)

	if err := strat.Validate(base); err != nil {
		return nil, err
	}

	records, err := strat.Discover(ctx, base)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		d.log.Warn("no modules discovered", "network", network, "address", target.Hex(), "strategy", strat.Name())
	}

	docs := make([]abidoc.Document, 0, len(records))
	for _, rec := range records {
		d.persist(fmt.Sprintf("%s.module%d", lowerHex(target), rec.Index), rec.ABI)
		docs = append(docs, rec.ABI)
	}

	full := abidoc.MergeEvents(base, docs)
	d.persist(label(target, "full"), full)

	d.log.Info("discovery complete",
		"network", network,
		"address", target.Hex(),
		"strategy", strat.Name(),
		"modules", len(records),
		"events_added", len(full)-len(base))

	return &Result{
		Network: network,
		Target:  target,
		Base:    base,
		Modules: records,
		Full:    full,
	}, nil
}

// persist hands an artifact to the saver. Failures are logged and counted;
// they never abort an otherwise-successful run.
func (d *Discoverer) persist(lbl string, doc abidoc.Document) {
	if d.saver == nil {
		return
	}
	if err := d.saver.Save(lbl, doc); err != nil {
		d.metrics.Errors()
		d.log.Warn("persist failed", "label", lbl, "error", err)
	}
}

func label(addr common.Address, suffix string) string {
	return lowerHex(addr) + "." + suffix
}

func lowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
