package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"playlist-finder-go/cache"
	"playlist-finder-go/services/finder"
	"playlist-finder-go/services/providers"
)

func joinNames() string {
	return strings.Join(finder.StrategyNames(), ", ")
}

// progressPrinter redraws a single status line
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) print(message string, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if percent == finder.NoPercent {
		fmt.Fprintf(p.w, "\r\033[K%s", message)
	} else {
		fmt.Fprintf(p.w, "\r\033[K[%3d%%] %s", percent, message)
	}
	if percent == 100 {
		fmt.Fprintln(p.w)
	}
}

type findResult struct {
	VideoID    string                   `json:"video_id"`
	VideoURL   string                   `json:"video_url"`
	Playlists  []providers.PlaylistInfo `json:"playlists"`
	TotalFound int                      `json:"total_found"`
	Stats      finder.UsageStats        `json:"stats"`
}

func writeJSON(w io.Writer, videoID string, found []providers.PlaylistInfo, usage finder.UsageStats) error {
	if found == nil {
		found = []providers.PlaylistInfo{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findResult{
		VideoID:    videoID,
		VideoURL:   providers.VideoInfo{ID: videoID}.URL(),
		Playlists:  found,
		TotalFound: len(found),
		Stats:      usage,
	})
}

func writePlaylists(w io.Writer, videoID string, found []providers.PlaylistInfo, usage finder.UsageStats) {
	if len(found) == 0 {
		fmt.Fprintf(w, "No playlists found containing %s\n", videoID)
	} else {
		fmt.Fprintf(w, "Found %d playlist(s) containing %s:\n\n", len(found), videoID)
		for i, p := range found {
			fmt.Fprintf(w, "%d. %s\n", i+1, p.Title)
			if p.ChannelTitle != "" {
				fmt.Fprintf(w, "   Channel: %s\n", p.ChannelTitle)
			}
			fmt.Fprintf(w, "   Videos:  %d\n", p.ItemCount)
			fmt.Fprintf(w, "   URL:     %s\n\n", p.URL())
		}
	}

	fmt.Fprintf(w, "Checked %d playlist(s), quota used: %d units\n", usage.PlaylistsChecked, usage.QuotaUsed)
	writeCacheStats(w, usage.Cache)
}

func writeCacheStats(w io.Writer, s cache.Stats) {
	fmt.Fprintf(w, "Cache: %d entries, %d hits, %d misses (%.1f%% hit rate)\n",
		s.TotalEntries, s.Hits, s.Misses, s.HitRate)
}
