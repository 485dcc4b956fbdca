package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/everstacklabs/hfest/internal/cache"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached registry responses",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fc, err := cache.New(cfg.CacheDir, cfg.CacheTTL)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			if err := fc.Purge(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", cfg.CacheDir)
			return nil
		},
	})
	return cmd
}
