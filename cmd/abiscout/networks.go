package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devblac/abiscout/internal/config"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List configured networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, n := range cfg.Networks {
			key := "no api key"
			if n.APIKey != "" {
				key = "api key set"
			}
			fmt.Fprintf(out, "%s\tchainId %d\t%s\t%s\n", n.ID, n.ChainID, n.APIURL, key)
		}
		return nil
	},
}
