package providers

import (
	"context"
	"sync"
	"testing"
)

// stubProvider satisfies Provider with empty answers
type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FetchVideoMetadata(ctx context.Context, videoID string) (*VideoInfo, error) {
	return &VideoInfo{ID: videoID}, nil
}

func (s *stubProvider) FetchPlaylistMetadata(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	return &PlaylistInfo{ID: playlistID}, nil
}

func (s *stubProvider) IsVideoInPlaylist(ctx context.Context, playlistID, videoID string) (bool, error) {
	return false, nil
}

func (s *stubProvider) SearchPlaylists(ctx context.Context, query string, maxResults int) ([]string, error) {
	return nil, nil
}

func (s *stubProvider) ListChannelPlaylists(ctx context.Context, channelID string, maxResults int) ([]string, error) {
	return nil, nil
}

func stubFactory(name string) Factory {
	return func() (Provider, error) {
		return &stubProvider{name: name}, nil
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("Register single factory", func(t *testing.T) {
		r := NewRegistry()
		r.Register("youtube", stubFactory("youtube"))

		f, err := r.Get("youtube")
		if err != nil {
			t.Fatalf("Expected factory to be registered: %v", err)
		}
		p, err := f()
		if err != nil || p.Name() != "youtube" {
			t.Errorf("Expected youtube provider, got %v, %v", p, err)
		}
	})

	t.Run("Register overwrites existing factory", func(t *testing.T) {
		r := NewRegistry()
		r.Register("youtube", stubFactory("first"))
		r.Register("youtube", stubFactory("second"))

		f, _ := r.Get("youtube")
		p, _ := f()
		if p.Name() != "second" {
			t.Errorf("Expected the later factory to win, got %q", p.Name())
		}
	})
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	r.Register("youtube", stubFactory("youtube"))
	r.Register("fake", stubFactory("fake"))

	names := r.List()
	if len(names) != 2 || names[0] != "fake" || names[1] != "youtube" {
		t.Errorf("Expected sorted [fake youtube], got %v", names)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("youtube", stubFactory("youtube"))
		}()
		go func() {
			defer wg.Done()
			r.List()
		}()
	}
	wg.Wait()

	if _, err := r.Get("youtube"); err != nil {
		t.Errorf("Expected youtube to be registered: %v", err)
	}
}
