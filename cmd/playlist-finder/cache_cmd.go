package main

import (
	"fmt"

	"playlist-finder-go/cache"
	"playlist-finder-go/config"

	"github.com/spf13/cobra"
)

func openCache(conf config.Config) (*cache.ResponseCache, error) {
	return cache.Open(cache.Options{
		Dir:         conf.Cache.Dir,
		ExpireHours: conf.Cache.ExpireHours,
		FlushEvery:  conf.Cache.FlushEvery,
		Compression: conf.FeatureFlags.CacheCompression,
	})
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show response cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := openCache(conf)
			if err != nil {
				return err
			}
			defer rc.Close()

			out := cmd.OutOrStdout()
			if rc.MemoryOnly() {
				fmt.Fprintln(out, "Cache directory: (memory only)")
			} else {
				fmt.Fprintf(out, "Cache directory: %s\n", conf.Cache.Dir)
			}
			fmt.Fprintf(out, "Entry lifetime:  %dh\n", conf.Cache.ExpireHours)
			writeCacheStats(out, rc.Stats())
			return nil
		},
	}
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := openCache(conf)
			if err != nil {
				return err
			}
			defer rc.Close()

			before := rc.Stats().TotalEntries
			if err := rc.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached response(s)\n", before)
			return nil
		},
	})

	return cmd
}
