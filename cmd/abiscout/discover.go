package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/devblac/abiscout/internal/chain"
	"github.com/devblac/abiscout/internal/config"
	"github.com/devblac/abiscout/internal/discover"
	"github.com/devblac/abiscout/internal/explorer"
	"github.com/devblac/abiscout/internal/logging"
	"github.com/devblac/abiscout/internal/metrics"
	"github.com/devblac/abiscout/internal/sink"
	"github.com/devblac/abiscout/internal/storage"
)

var (
	flagNetwork  string
	flagGetters  string
	flagProxy    bool
	flagAccessor string
	flagOut      string
	flagNoCache  bool
	flagMetrics  string
)

func init() {
	discoverCmd.Flags().StringVarP(&flagNetwork, "network", "n", "", "Network id from config (required)")
	discoverCmd.Flags().StringVar(&flagGetters, "getters", "", "Comma-separated module getter names (getter-list mode)")
	discoverCmd.Flags().BoolVar(&flagProxy, "proxy", false, "Resolve the EIP-1967 implementation before probing")
	discoverCmd.Flags().StringVar(&flagAccessor, "accessor", "", "Module accessor function name (overrides config)")
	discoverCmd.Flags().StringVar(&flagOut, "out", "", "Output directory for ABI artifacts (overrides config)")
	discoverCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the local ABI cache")
	discoverCmd.Flags().StringVar(&flagMetrics, "metrics", "", "Metrics HTTP address (e.g., :9090)")
	_ = discoverCmd.MarkFlagRequired("network")
}

var discoverCmd = &cobra.Command{
	Use:   "discover <address>",
	Short: "Discover submodules of a contract and write its merged ABI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel := os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			logLevel = "info"
		}
		log := logging.NewWithLevel(logLevel)
		ctx := cmd.Context()

		if flagGetters != "" && flagProxy {
			return fmt.Errorf("--getters and --proxy are mutually exclusive")
		}
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid contract address: %s", args[0])
		}
		address := common.HexToAddress(args[0])

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		network, err := cfg.Network(flagNetwork)
		if err != nil {
			return err
		}

		accessor := cfg.Accessor
		if flagAccessor != "" {
			accessor = flagAccessor
		}
		outDir := cfg.OutDir
		if flagOut != "" {
			outDir = flagOut
		}

		var mtr *metrics.Metrics
		if flagMetrics != "" {
			mtr = metrics.Init()
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				srv := &http.Server{Addr: flagMetrics, Handler: mux}
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("metrics server error", "error", err)
				}
			}()
			log.Info("metrics enabled", "addr", flagMetrics)
		}

		store, err := storage.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer store.Close()

		probe, err := chain.Dial(network.RPCURL)
		if err != nil {
			return err
		}
		defer probe.Close()

		timeout, err := cfg.ExplorerTimeout()
		if err != nil {
			return err
		}
		endpoints := map[string]explorer.Endpoint{}
		for _, n := range cfg.Networks {
			endpoints[n.ID] = explorer.Endpoint{APIURL: n.APIURL, APIKey: n.APIKey, ChainID: n.ChainID}
		}
		client := explorer.NewClient(endpoints, timeout, cfg.Explorer.RequestsPerSecond, cfg.Explorer.MaxAttempts, log)
		defer client.Close()

		var source discover.AbiSource = client
		if !flagNoCache {
			ttl, err := cfg.CacheTTL()
			if err != nil {
				return err
			}
			source = storage.NewCachedSource(client, store, ttl, log, mtr)
		}

		writer, err := sink.NewWriter(outDir)
		if err != nil {
			return err
		}

		var strat discover.Strategy
		switch {
		case flagGetters != "":
			getters := splitGetters(flagGetters)
			if len(getters) == 0 {
				return fmt.Errorf("--getters must name at least one getter")
			}
			strat = discover.NewGetterList(probe, source, network.ID, address, getters, log, mtr)
		case flagProxy:
			strat = discover.NewProxyIndexProbe(probe, source, network.ID, address, accessor, log, mtr)
		default:
			strat = discover.NewIndexProbe(probe, source, network.ID, address, accessor, log, mtr)
		}

		d := discover.New(source, writer, log, mtr)
		res, err := d.Run(ctx, network.ID, strat)
		if err != nil {
			if mtr != nil {
				mtr.Errors()
			}
			return err
		}

		if err := store.InsertRun(ctx, storage.Run{
			Network:     network.ID,
			Address:     address.Hex(),
			Strategy:    strat.Name(),
			Modules:     len(res.Modules),
			EventsAdded: res.EventsAdded(),
		}); err != nil {
			log.Warn("record run failed", "error", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "target %s on %s\n", res.Target.Hex(), network.ID)
		for _, m := range res.Modules {
			fmt.Fprintf(out, "- module %d: %s (%d entries)\n", m.Index, m.Address.Hex(), len(m.ABI))
		}
		fmt.Fprintf(out, "merged abi: %d entries (%d events added), written to %s\n",
			len(res.Full), res.EventsAdded(), outDir)
		return nil
	},
}

func splitGetters(s string) []string {
	var out []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
