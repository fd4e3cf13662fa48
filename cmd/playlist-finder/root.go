package main

import (
	"os"

	"playlist-finder-go/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var conf = config.Get()

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "playlist-finder",
		Short: "Find the YouTube playlists that contain a video",
		Long: `playlist-finder searches YouTube for playlists that contain a given video.

Candidate playlists are gathered with a set of search strategies and each one
is then checked for the video. Every API response is cached on disk, so
repeated searches cost little quota.

Configuration is read from the environment or a .env file; YOUTUBE_API_KEY is
required for searches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			log.SetOutput(os.Stderr)
			if verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log provider calls and search steps")
	root.PersistentFlags().StringVar(&conf.Cache.Dir, "cache-dir", conf.Cache.Dir, "Response cache directory (empty keeps the cache in memory)")

	root.AddCommand(newFindCmd(), newStatsCmd(), newCacheCmd())
	return root
}
