package providers

import "fmt"

// VideoInfo is the metadata of the video being searched for
type VideoInfo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	ChannelID    string   `json:"channel_id"`
	ChannelTitle string   `json:"channel_title"`
	Description  string   `json:"description"`
	Duration     string   `json:"duration"` // ISO 8601, e.g. "PT4M13S"
	ViewCount    uint64   `json:"view_count"`
	LikeCount    uint64   `json:"like_count"`
	PublishedAt  string   `json:"published_at"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Tags         []string `json:"tags"`
}

// URL returns the canonical watch URL
func (v VideoInfo) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// DefaultPrivacyStatus is assumed when the provider omits a playlist's status
const DefaultPrivacyStatus = "public"

// PlaylistInfo is the metadata of a playlist confirmed to contain the video
type PlaylistInfo struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ChannelID     string `json:"channel_id"`
	ChannelTitle  string `json:"channel_title"`
	Description   string `json:"description"`
	ItemCount     int64  `json:"item_count"`
	PublishedAt   string `json:"published_at"`
	ThumbnailURL  string `json:"thumbnail_url"`
	PrivacyStatus string `json:"privacy_status"`
}

// URL returns the canonical playlist URL
func (p PlaylistInfo) URL() string {
	return "https://www.youtube.com/playlist?list=" + p.ID
}

// ProviderError represents an error from a provider with additional context
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}
