package main

import (
	"playlist-finder-go/services/finder"
	"playlist-finder-go/services/providers"
)

// VideoRef identifies the searched video
type VideoRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PlaylistsResponse is the response format for /playlists
type PlaylistsResponse struct {
	Video      VideoRef                 `json:"video"`
	Playlists  []providers.PlaylistInfo `json:"playlists"`
	TotalFound int                      `json:"total_found"`
	Stats      finder.UsageStats        `json:"stats"`
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CircuitBreakerStatus is the response format for /circuit-breaker
type CircuitBreakerStatus struct {
	State          string `json:"state"`
	Failures       int    `json:"failures"`
	Threshold      int    `json:"threshold"`
	TimeUntilRetry string `json:"time_until_retry"`
}
