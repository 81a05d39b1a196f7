package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/devblac/abiscout/internal/chain"
	"github.com/devblac/abiscout/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config and ping RPC endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Fprintf(out, "config OK (version %d, %d networks)\n", cfg.Version, len(cfg.Networks))

		failures := 0
		for _, n := range cfg.Networks {
			if _, err := url.ParseRequestURI(n.APIURL); err != nil {
				failures++
				fmt.Fprintf(out, "- network %s: bad api_url: %v\n", n.ID, err)
				continue
			}
			if n.APIKey == "" {
				fmt.Fprintf(out, "- network %s: warning: no explorer api key configured\n", n.ID)
			}

			probe, err := chain.Dial(n.RPCURL)
			if err != nil {
				failures++
				fmt.Fprintf(out, "- network %s: ERROR %v\n", n.ID, err)
				continue
			}
			chainID, err := chain.Ping(cmd.Context(), probe, n.ChainID)
			probe.Close()
			if err != nil {
				failures++
				fmt.Fprintf(out, "- network %s: ERROR %v\n", n.ID, err)
				continue
			}
			fmt.Fprintf(out, "- network %s: chainId %d OK\n", n.ID, chainID)
		}

		if failures > 0 {
			return fmt.Errorf("validate: %d network(s) failed connectivity", failures)
		}

		fmt.Fprintln(out, "validate: success")
		return nil
	},
}
