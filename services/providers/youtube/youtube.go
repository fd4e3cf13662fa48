// Package youtube implements the playlist finder's provider contract over the
// YouTube Data API v3. Every raw API call goes through the shared executor so
// it is cached, paced, retried and billed in one place.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"playlist-finder-go/executor"
	"playlist-finder-go/logcolors"
	"playlist-finder-go/services/providers"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	ProviderName = "youtube"

	// pageSize is the API's maximum page size for list calls
	pageSize = 50

	DefaultRequestTimeout = 10 * time.Second
)

var ErrMissingAPIKey = errors.New("youtube API key is required")

// Config configures a client
type Config struct {
	APIKey   string
	Endpoint string // overrides the API base URL when set
	Timeout  time.Duration
	Executor *executor.Executor
}

// Client is one provider handle. It owns its own HTTP client and must not be
// shared between goroutines that want independent connections.
type Client struct {
	service *youtube.Service
	exec    *executor.Executor
	apiKey  string
}

var _ providers.Provider = (*Client)(nil)

// New creates a client
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Executor == nil {
		return nil, errors.New("youtube client requires an executor")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &transport.APIKey{
			Key:       cfg.APIKey,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &Client{
		service: service,
		exec:    cfg.Executor,
		apiKey:  cfg.APIKey,
	}, nil
}

// NewFactory returns a factory producing a fresh client per call
func NewFactory(cfg Config) providers.Factory {
	return func() (providers.Provider, error) {
		return New(context.Background(), cfg)
	}
}

func (c *Client) Name() string {
	return ProviderName
}

// do runs one raw API call through the executor and decodes the response into
// out. It reports false when the API had nothing for the call.
func (c *Client) do(ctx context.Context, call executor.Call, out any, fetch func(ctx context.Context) (any, error)) (bool, error) {
	call.Params["key"] = c.apiKey

	payload, err := c.exec.Do(ctx, call, func(ctx context.Context) (json.RawMessage, error) {
		resp, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	})
	if err != nil {
		return false, providers.NewProviderError(ProviderName, call.Resource+"."+call.Method, err)
	}
	if payload == nil {
		return false, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, providers.NewProviderError(ProviderName, "decode "+call.Resource, err)
	}
	return true, nil
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil || t.High == nil {
		return ""
	}
	return t.High.Url
}

// FetchVideoMetadata returns the video's snippet, content details and statistics
func (c *Client) FetchVideoMetadata(ctx context.Context, videoID string) (*providers.VideoInfo, error) {
	call := executor.Call{
		Resource: "videos",
		Method:   "list",
		Params: map[string]string{
			"part": "snippet,contentDetails,statistics",
			"id":   videoID,
		},
	}

	var resp youtube.VideoListResponse
	ok, err := c.do(ctx, call, &resp, func(ctx context.Context) (any, error) {
		return c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(videoID).Context(ctx).Do()
	})
	if err != nil || !ok || len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, err
	}

	item := resp.Items[0]
	info := &providers.VideoInfo{
		ID:           videoID,
		Title:        item.Snippet.Title,
		ChannelID:    item.Snippet.ChannelId,
		ChannelTitle: item.Snippet.ChannelTitle,
		Description:  item.Snippet.Description,
		PublishedAt:  item.Snippet.PublishedAt,
		ThumbnailURL: thumbnailURL(item.Snippet.Thumbnails),
		Tags:         item.Snippet.Tags,
	}
	if item.ContentDetails != nil {
		info.Duration = item.ContentDetails.Duration
	}
	if item.Statistics != nil {
		info.ViewCount = item.Statistics.ViewCount
		info.LikeCount = item.Statistics.LikeCount
	}
	return info, nil
}

// FetchPlaylistMetadata returns the playlist's snippet, item count and privacy status
func (c *Client) FetchPlaylistMetadata(ctx context.Context, playlistID string) (*providers.PlaylistInfo, error) {
	call := executor.Call{
		Resource: "playlists",
		Method:   "list",
		Params: map[string]string{
			"part": "snippet,contentDetails,status",
			"id":   playlistID,
		},
	}

	var resp youtube.PlaylistListResponse
	ok, err := c.do(ctx, call, &resp, func(ctx context.Context) (any, error) {
		return c.service.Playlists.List([]string{"snippet", "contentDetails", "status"}).
			Id(playlistID).Context(ctx).Do()
	})
	if err != nil || !ok || len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, err
	}

	item := resp.Items[0]
	info := &providers.PlaylistInfo{
		ID:            playlistID,
		Title:         item.Snippet.Title,
		ChannelID:     item.Snippet.ChannelId,
		ChannelTitle:  item.Snippet.ChannelTitle,
		Description:   item.Snippet.Description,
		PublishedAt:   item.Snippet.PublishedAt,
		ThumbnailURL:  thumbnailURL(item.Snippet.Thumbnails),
		PrivacyStatus: providers.DefaultPrivacyStatus,
	}
	if item.ContentDetails != nil {
		info.ItemCount = item.ContentDetails.ItemCount
	}
	if item.Status != nil && item.Status.PrivacyStatus != "" {
		info.PrivacyStatus = item.Status.PrivacyStatus
	}
	return info, nil
}

// IsVideoInPlaylist pages through the playlist's items until videoID shows up
func (c *Client) IsVideoInPlaylist(ctx context.Context, playlistID, videoID string) (bool, error) {
	pageToken := ""
	for page := 1; ; page++ {
		call := executor.Call{
			Resource: "playlistItems",
			Method:   "list",
			Params: map[string]string{
				"part":       "contentDetails",
				"playlistId": playlistID,
				"maxResults": strconv.Itoa(pageSize),
				"pageToken":  pageToken,
			},
		}

		token := pageToken
		var resp youtube.PlaylistItemListResponse
		ok, err := c.do(ctx, call, &resp, func(ctx context.Context) (any, error) {
			req := c.service.PlaylistItems.List([]string{"contentDetails"}).
				PlaylistId(playlistID).MaxResults(pageSize)
			if token != "" {
				req = req.PageToken(token)
			}
			return req.Context(ctx).Do()
		})
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}

		for _, item := range resp.Items {
			if item.ContentDetails != nil && item.ContentDetails.VideoId == videoID {
				log.Debugf("%s %s found in %s on page %d", logcolors.LogYouTube, videoID, playlistID, page)
				return true, nil
			}
		}

		if resp.NextPageToken == "" {
			return false, nil
		}
		pageToken = resp.NextPageToken
	}
}

// pageFunc fetches one page of IDs. ok is false when the API had no data.
type pageFunc func(ctx context.Context, pageToken string, want int) (ids []string, next string, ok bool, err error)

// collectIDs pages until maxResults IDs are gathered or the pages run out.
// IDs gathered before a failure are returned with the error.
func collectIDs(ctx context.Context, maxResults int, page pageFunc) ([]string, error) {
	var ids []string
	pageToken := ""
	for len(ids) < maxResults {
		got, next, ok, err := page(ctx, pageToken, min(pageSize, maxResults-len(ids)))
		if err != nil {
			return ids, err
		}
		if !ok {
			break
		}
		ids = append(ids, got...)
		if next == "" {
			break
		}
		pageToken = next
	}
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

// SearchPlaylists runs a playlist-only text search
func (c *Client) SearchPlaylists(ctx context.Context, query string, maxResults int) ([]string, error) {
	return collectIDs(ctx, maxResults, func(ctx context.Context, pageToken string, want int) ([]string, string, bool, error) {
		call := executor.Call{
			Resource: "search",
			Method:   "list",
			Params: map[string]string{
				"part":       "id",
				"q":          query,
				"type":       "playlist",
				"maxResults": strconv.Itoa(want),
				"pageToken":  pageToken,
			},
		}

		var resp youtube.SearchListResponse
		ok, err := c.do(ctx, call, &resp, func(ctx context.Context) (any, error) {
			req := c.service.Search.List([]string{"id"}).Q(query).Type("playlist").MaxResults(int64(want))
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			return req.Context(ctx).Do()
		})
		if err != nil || !ok {
			return nil, "", ok, err
		}

		ids := make([]string, 0, len(resp.Items))
		for _, item := range resp.Items {
			if item.Id != nil && item.Id.PlaylistId != "" {
				ids = append(ids, item.Id.PlaylistId)
			}
		}
		return ids, resp.NextPageToken, true, nil
	})
}

// ListChannelPlaylists lists the playlists owned by a channel
func (c *Client) ListChannelPlaylists(ctx context.Context, channelID string, maxResults int) ([]string, error) {
	return collectIDs(ctx, maxResults, func(ctx context.Context, pageToken string, want int) ([]string, string, bool, error) {
		call := executor.Call{
			Resource: "playlists",
			Method:   "list",
			Params: map[string]string{
				"part":       "id",
				"channelId":  channelID,
				"maxResults": strconv.Itoa(want),
				"pageToken":  pageToken,
			},
		}

		var resp youtube.PlaylistListResponse
		ok, err := c.do(ctx, call, &resp, func(ctx context.Context) (any, error) {
			req := c.service.Playlists.List([]string{"id"}).ChannelId(channelID).MaxResults(int64(want))
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			return req.Context(ctx).Do()
		})
		if err != nil || !ok {
			return nil, "", ok, err
		}

		ids := make([]string, 0, len(resp.Items))
		for _, item := range resp.Items {
			ids = append(ids, item.Id)
		}
		return ids, resp.NextPageToken, true, nil
	})
}
