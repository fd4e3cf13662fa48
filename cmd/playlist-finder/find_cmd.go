package main

import (
	"context"
	"fmt"
	"os"

	"playlist-finder-go/services/finder"
	"playlist-finder-go/services/providers"
	"playlist-finder-go/startup"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newFindCmd() *cobra.Command {
	var (
		maxPlaylists int
		strategies   []string
		sequential   bool
		workers      int
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "find <video-id-or-url>",
		Short: "Find playlists containing a video",
		Long: `Find the playlists that contain a video.

The video may be given as an 11-character ID or as any watch, youtu.be,
embed, shorts or live URL.

Strategies: ` + joinNames() + `

Examples:
  playlist-finder find dQw4w9WgXcQ
  playlist-finder find https://youtu.be/dQw4w9WgXcQ --max 50
  playlist-finder find dQw4w9WgXcQ --strategies exact_title,popular_playlists --sequential
  playlist-finder find dQw4w9WgXcQ --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, ok := providers.ExtractVideoID(args[0])
			if !ok {
				return fmt.Errorf("could not extract a video ID from %q", args[0])
			}

			parsed, err := finder.ParseStrategies(strategies)
			if err != nil {
				return err
			}
			opts := finder.Options{
				Strategies:    parsed,
				MaxCandidates: maxPlaylists,
				Mode:          finder.Concurrent,
			}
			if sequential {
				opts.Mode = finder.Sequential
			}

			runConf := conf
			runConf.Search.Workers = workers

			var extra []finder.Option
			if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
				extra = append(extra, finder.WithProgress(newProgressPrinter(cmd.ErrOrStderr()).print))
			}

			svc, err := startup.Build(runConf, extra...)
			if err != nil {
				return err
			}
			defer svc.Close()

			stop := context.AfterFunc(cmd.Context(), svc.Finder.Cancel)
			defer stop()

			found, err := svc.Finder.Find(cmd.Context(), videoID, opts)
			if err != nil {
				return err
			}

			usage := svc.Finder.Statistics()
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), videoID, found, usage)
			}
			writePlaylists(cmd.OutOrStdout(), videoID, found, usage)
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxPlaylists, "max", "m", conf.Search.MaxPlaylists, "Maximum number of candidate playlists to check")
	cmd.Flags().StringSliceVarP(&strategies, "strategies", "s", conf.Search.Strategies, "Comma-separated search strategies")
	cmd.Flags().BoolVar(&sequential, "sequential", !conf.Search.ParallelSearch, "Check candidates one at a time")
	cmd.Flags().IntVarP(&workers, "workers", "w", conf.Search.Workers, "Concurrent verification workers")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")

	return cmd
}
