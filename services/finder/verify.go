package finder

import (
	"context"
	"fmt"

	"playlist-finder-go/logcolors"
	"playlist-finder-go/services/providers"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// verify checks one candidate. A nil playlist means it does not contain the
// video or could not be checked; only quota errors are returned.
func verify(ctx context.Context, p providers.Provider, logger *log.Entry, videoID, playlistID string) (*providers.PlaylistInfo, error) {
	in, err := p.IsVideoInPlaylist(ctx, playlistID, videoID)
	if err != nil {
		if isQuota(err) {
			return nil, err
		}
		logger.Debugf("%s %s: %v", logcolors.LogVerify, playlistID, err)
		return nil, nil
	}
	if !in {
		return nil, nil
	}

	info, err := p.FetchPlaylistMetadata(ctx, playlistID)
	if err != nil {
		if isQuota(err) {
			return nil, err
		}
		logger.Debugf("%s %s metadata: %v", logcolors.LogVerify, playlistID, err)
		return nil, nil
	}
	if info != nil {
		logger.Infof("%s %s (%s)", logcolors.LogFound, info.Title, info.ID)
	}
	return info, nil
}

func checkedMessage(done, total int) string {
	return fmt.Sprintf("Checked playlist %d/%d", done, total)
}

func (f *Finder) verifySequential(ctx context.Context, s *session, logger *log.Entry, videoID string, candidates []string) error {
	total := len(candidates)
	for i, id := range candidates {
		if s.cancelRequested(ctx) {
			return ErrCancelled
		}

		if s.claim(id) {
			info, err := verify(ctx, f.provider, logger, videoID, id)
			if err != nil {
				return err
			}
			// the flag may have been raised while the call was in flight
			if s.cancelRequested(ctx) {
				return ErrCancelled
			}
			if info != nil {
				s.addFound(*info)
			}
		}

		f.report(checkedMessage(i+1, total), 50+(i+1)*50/total)
	}
	return nil
}

type outcome struct {
	id      string
	info    *providers.PlaylistInfo
	skipped bool
}

// verifyConcurrent fans candidates out to a fixed set of workers, each owning
// its own provider handle, and harvests their outcomes on this goroutine. The
// first worker failure stops dispatch and is returned by the group.
func (f *Finder) verifyConcurrent(ctx context.Context, s *session, logger *log.Entry, videoID string, candidates []string) error {
	total := len(candidates)
	if total == 0 {
		return nil
	}

	jobs := make(chan string)
	results := make(chan outcome)

	// gctx only gates dispatch; provider calls run on ctx so in-flight work
	// is never interrupted
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < min(f.workers, total); w++ {
		g.Go(func() error {
			var handle providers.Provider
			for id := range jobs {
				if gctx.Err() != nil || s.stopped(ctx) {
					results <- outcome{id: id, skipped: true}
					continue
				}
				if handle == nil {
					p, err := f.factory()
					if err != nil {
						s.halted.Store(true)
						return fmt.Errorf("create provider: %w", err)
					}
					handle = p
				}
				info, err := verify(ctx, handle, logger, videoID, id)
				if err != nil {
					s.halted.Store(true)
					return err
				}
				results <- outcome{id: id, info: info}
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for _, id := range candidates {
			if s.stopped(ctx) {
				return
			}
			if !s.claim(id) {
				continue
			}
			select {
			case jobs <- id:
			case <-gctx.Done():
				return
			}
		}
	}()

	go func() {
		g.Wait()
		close(results)
	}()

	processed := 0
	for res := range results {
		processed++
		if s.stopped(ctx) {
			continue
		}
		if res.info != nil {
			s.addFound(*res.info)
		}
		if !res.skipped {
			f.report(checkedMessage(processed, total), 50+processed*50/total)
		}
	}

	if err := g.Wait(); err != nil {
		logger.Warnf("%s Stopped verification: %v", logcolors.LogVerify, err)
		return err
	}
	if s.cancelRequested(ctx) {
		return ErrCancelled
	}
	return nil
}
