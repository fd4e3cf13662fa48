package finder

import (
	"context"
	"sync"
	"sync/atomic"

	"playlist-finder-go/services/providers"

	"github.com/google/uuid"
)

// session is the state of one Find call. It is never reused.
type session struct {
	id string

	mu      sync.Mutex
	checked map[string]struct{}
	found   []providers.PlaylistInfo

	// cancelled is raised from outside by Cancel
	cancelled atomic.Bool
	// halted is raised internally once the call is going to fail anyway
	halted atomic.Bool
}

func newSession() *session {
	return &session{
		id:      uuid.NewString(),
		checked: make(map[string]struct{}),
	}
}

// claim marks id as checked and reports whether this caller got it first
func (s *session) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checked[id]; ok {
		return false
	}
	s.checked[id] = struct{}{}
	return true
}

func (s *session) addFound(p providers.PlaylistInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.found = append(s.found, p)
}

func (s *session) checkedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.checked)
}

func (s *session) results() []providers.PlaylistInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]providers.PlaylistInfo, len(s.found))
	copy(out, s.found)
	return out
}

// cancelRequested reports whether the caller asked the search to stop
func (s *session) cancelRequested(ctx context.Context) bool {
	return s.cancelled.Load() || ctx.Err() != nil
}

// stopped reports whether no new work should start
func (s *session) stopped(ctx context.Context) bool {
	return s.halted.Load() || s.cancelRequested(ctx)
}

// candidateSet keeps candidate IDs unique in first-seen order
type candidateSet struct {
	ids  []string
	seen map[string]struct{}
}

func newCandidateSet() *candidateSet {
	return &candidateSet{seen: make(map[string]struct{})}
}

func (c *candidateSet) add(ids ...string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := c.seen[id]; ok {
			continue
		}
		c.seen[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
}

func (c *candidateSet) len() int {
	return len(c.ids)
}

// first returns at most n IDs in insertion order
func (c *candidateSet) first(n int) []string {
	if len(c.ids) <= n {
		return c.ids
	}
	return c.ids[:n]
}
