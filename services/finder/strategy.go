package finder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"playlist-finder-go/services/providers"
)

var ErrUnknownStrategy = errors.New("unknown search strategy")

// Strategy is one heuristic for turning a video into candidate playlist IDs
type Strategy interface {
	Name() string
	Candidates(ctx context.Context, p providers.Provider, video *providers.VideoInfo, maxResults int) ([]string, error)
}

var (
	// ExactTitle searches playlists by the video's exact title
	ExactTitle Strategy = exactTitle{}
	// TitleAndChannel searches playlists by "<title> <channel>"
	TitleAndChannel Strategy = titleAndChannel{}
	// ChannelPlaylists lists every playlist of the video's channel
	ChannelPlaylists Strategy = channelPlaylists{}
	// KeywordSearch searches playlists by the video's first three tags
	KeywordSearch Strategy = keywordSearch{}
	// PopularPlaylists searches compilation-style queries for the channel
	PopularPlaylists Strategy = popularPlaylists{}
	// RelatedVideos is reserved and yields nothing
	RelatedVideos Strategy = relatedVideos{}
)

var allStrategies = []Strategy{
	ExactTitle,
	TitleAndChannel,
	ChannelPlaylists,
	RelatedVideos,
	KeywordSearch,
	PopularPlaylists,
}

// DefaultStrategies returns the strategies used when none are requested
func DefaultStrategies() []Strategy {
	return []Strategy{ExactTitle, ChannelPlaylists, TitleAndChannel, KeywordSearch}
}

// StrategyNames lists every accepted strategy name
func StrategyNames() []string {
	names := make([]string, len(allStrategies))
	for i, s := range allStrategies {
		names[i] = s.Name()
	}
	return names
}

// ParseStrategy resolves a strategy by name, case-insensitively
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range allStrategies {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// ParseStrategies resolves a list of names, keeping order and dropping repeats
func ParseStrategies(names []string) ([]Strategy, error) {
	var strategies []Strategy
	seen := make(map[string]bool)
	for _, name := range names {
		s, err := ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		if seen[s.Name()] {
			continue
		}
		seen[s.Name()] = true
		strategies = append(strategies, s)
	}
	return strategies, nil
}

type exactTitle struct{}

func (exactTitle) Name() string { return "exact_title" }

func (exactTitle) Candidates(ctx context.Context, p providers.Provider, video *providers.VideoInfo, maxResults int) ([]string, error) {
	return p.SearchPlaylists(ctx, video.Title, maxResults)
}

type titleAndChannel struct{}

func (titleAndChannel) Name() string { return "title_channel" }

func (titleAndChannel) Candidates(ctx context.Context, p providers.Provider, video *providers.VideoInfo, maxResults int) ([]string, error) {
	return p.SearchPlaylists(ctx, video.Title+" "+video.ChannelTitle, maxResults)
}

type channelPlaylists struct{}

func (channelPlaylists) Name() string { return "channel_playlists" }

func (channelPlaylists) Candidates(ctx context.Context, p providers.Provider, video *providers.VideoInfo, maxResults int) ([]string, error) {
	return p.ListChannelPlaylists(ctx, video.ChannelID, maxResults)
}

// keywordTags is how many leading tags form the keyword query
const keywordTags = 3

type keywordSearch struct{}

func (keywordSearch) Name() string { return "keyword_search" }

func (keywordSearch) Candidates(ctx context.Context, p providers.Provider, video *providers.VideoInfo, maxResults int) ([]string, error) {
	if len(video.Tags) == 0 {
		return nil, nil
	}
	tags := video.Tags[:min(keywordTags, len(video.Tags))]
	return p.SearchPlaylists(ctx, strings.Join(tags, " "), maxResults)
}

var popularTerms = []string{"best of", "compilation", "mix", "playlist"}

type popularPlaylists struct{}

func (popularPlaylists) Name() string { return "popular_playlists" }

func (popularPlaylists) Candidates(ctx context.Context, p providers.Provider, video *providers.VideoInfo, maxResults int) ([]string, error) {
	perTerm := max(1, maxResults/len(popularTerms))

	var ids []string
	for _, term := range popularTerms {
		found, err := p.SearchPlaylists(ctx, term+" "+video.ChannelTitle, perTerm)
		if err != nil {
			return ids, err
		}
		ids = append(ids, found...)
	}
	return ids, nil
}

type relatedVideos struct{}

func (relatedVideos) Name() string { return "related_videos" }

// Candidates yields nothing. The variant is reserved so its name parses, but
// the Data API no longer offers related-video search.
func (relatedVideos) Candidates(context.Context, providers.Provider, *providers.VideoInfo, int) ([]string, error) {
	return nil, nil
}
