package providers

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestVideoInfoURL(t *testing.T) {
	v := VideoInfo{ID: "dQw4w9WgXcQ"}
	if got := v.URL(); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("URL() = %q", got)
	}
}

func TestPlaylistInfoURL(t *testing.T) {
	p := PlaylistInfo{ID: "PL123"}
	if got := p.URL(); got != "https://www.youtube.com/playlist?list=PL123" {
		t.Errorf("URL() = %q", got)
	}
}

func TestPlaylistInfoJSON(t *testing.T) {
	p := PlaylistInfo{ID: "PL1", Title: "Hits", ItemCount: 42, PrivacyStatus: DefaultPrivacyStatus}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, field := range []string{`"item_count":42`, `"privacy_status":"public"`, `"channel_title":""`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("Expected %s in %s", field, data)
		}
	}
}

func TestProviderError(t *testing.T) {
	t.Run("Error with wrapped error", func(t *testing.T) {
		innerErr := errors.New("connection refused")
		err := NewProviderError("youtube", "fetch failed", innerErr)

		expected := "youtube: fetch failed: connection refused"
		if err.Error() != expected {
			t.Errorf("Expected %q, got %q", expected, err.Error())
		}
		if !errors.Is(err, innerErr) {
			t.Error("Expected errors.Is to find the wrapped error")
		}
	})

	t.Run("Error without wrapped error", func(t *testing.T) {
		err := NewProviderError("youtube", "no items", nil)

		if err.Error() != "youtube: no items" {
			t.Errorf("Unexpected message %q", err.Error())
		}
		if err.Unwrap() != nil {
			t.Error("Expected nil Unwrap")
		}
	})

	t.Run("errors.As finds ProviderError", func(t *testing.T) {
		wrapped := errors.Join(errors.New("outer"), NewProviderError("youtube", "bad", nil))

		var pe *ProviderError
		if !errors.As(wrapped, &pe) {
			t.Fatal("Expected errors.As to find ProviderError")
		}
		if pe.Provider != "youtube" {
			t.Errorf("Expected provider 'youtube', got %q", pe.Provider)
		}
	})
}
