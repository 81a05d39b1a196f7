package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devblac/abiscout/internal/config"
	"github.com/devblac/abiscout/internal/storage"
)

var flagPrune bool

func init() {
	cacheCmd.Flags().BoolVar(&flagPrune, "prune", false, "Delete cache entries older than the configured TTL")
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or prune the local ABI cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := storage.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		if flagPrune {
			ttl, err := cfg.CacheTTL()
			if err != nil {
				return err
			}
			n, err := store.PruneABIs(ctx, time.Now().Add(-ttl))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "pruned %d cache entries older than %s\n", n, ttl)
			return nil
		}

		entries, err := store.ListABIs(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "cache is empty")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s\t%s\tfetched %s\n", e.Network, e.Address, e.FetchedAt.Format(time.RFC3339))
		}
		return nil
	},
}
