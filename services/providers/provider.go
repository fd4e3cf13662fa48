package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provider is the read-only catalog API the finder searches through.
// A nil result with a nil error means the catalog has no such item.
type Provider interface {
	// Name returns the provider's identifier (e.g., "youtube")
	Name() string

	// FetchVideoMetadata returns the video's metadata
	FetchVideoMetadata(ctx context.Context, videoID string) (*VideoInfo, error)

	// FetchPlaylistMetadata returns the playlist's metadata
	FetchPlaylistMetadata(ctx context.Context, playlistID string) (*PlaylistInfo, error)

	// IsVideoInPlaylist pages through every item of the playlist looking for videoID
	IsVideoInPlaylist(ctx context.Context, playlistID, videoID string) (bool, error)

	// SearchPlaylists returns up to maxResults playlist IDs matching query.
	// IDs gathered before a failure are returned along with the error.
	SearchPlaylists(ctx context.Context, query string, maxResults int) ([]string, error)

	// ListChannelPlaylists returns up to maxResults playlist IDs owned by the channel
	ListChannelPlaylists(ctx context.Context, channelID string, maxResults int) ([]string, error)
}

// Factory builds a provider handle. Handles are not shared between
// goroutines, so concurrent workers each call the factory once.
type Factory func() (Provider, error)

// Registry holds the provider factories available to the process
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var (
	globalRegistry *Registry
	registryOnce   sync.Once
)

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// GetRegistry returns the global provider registry
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Register adds a factory under name, replacing any previous one
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get retrieves a factory by name
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return f, nil
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register is a convenience function to register a factory in the global registry
func Register(name string, f Factory) {
	GetRegistry().Register(name, f)
}

// Get is a convenience function to get a factory from the global registry
func Get(name string) (Factory, error) {
	return GetRegistry().Get(name)
}

// List is a convenience function to list all providers in the global registry
func List() []string {
	return GetRegistry().List()
}
