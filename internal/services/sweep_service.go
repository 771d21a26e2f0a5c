package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"album-service/internal/storage"
)

// SweepService reclaims expired albums: it scans for albums whose expiration
// has passed, commits every staged metadata mutation for the run in one
// atomic batch, and only then deletes blobs, best-effort and concurrently.
// A blob whose deletion fails is orphaned for good; there is no retry queue.
type SweepService struct {
	albums  AlbumStore
	media   MediaStore
	cascade CascadeStore
	blobs   BlobStore
	lease   Lease // nil disables mutual exclusion
	log     *zap.SugaredLogger
}

func NewSweepService(albums AlbumStore, media MediaStore, cascade CascadeStore, blobs BlobStore, lease Lease, log *zap.SugaredLogger) *SweepService {
	return &SweepService{albums: albums, media: media, cascade: cascade, blobs: blobs, lease: lease, log: log}
}

// Run drives RunOnce on a fixed interval until ctx is cancelled.
func (s *SweepService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Errorw("sweep run failed", "err", err)
			}
		}
	}
}

// RunOnce executes one sweep. A run that finds another run's lease held is a
// no-op, not an error.
func (s *SweepService) RunOnce(ctx context.Context) error {
	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire sweep lease: %w", err)
		}
		if !ok {
			s.log.Infow("sweep lease held elsewhere, skipping run")
			return nil
		}
		defer func() {
			if err := s.lease.Release(ctx); err != nil {
				s.log.Warnw("sweep lease release failed", "err", err)
			}
		}()
	}

	now := time.Now().UTC()
	expired, err := s.albums.FindExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("scan expired albums: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	// Stage: collect album ids and every resolvable blob key before touching
	// anything. A record whose key cannot be resolved still gets its
	// metadata deleted; the blob is logged and orphaned.
	albumIDs := make([]string, 0, len(expired))
	var keys []string
	for _, album := range expired {
		assets, err := s.media.ListByAlbum(ctx, album.ID)
		if err != nil {
			return fmt.Errorf("list media for album %s: %w", album.ID, err)
		}
		albumIDs = append(albumIDs, album.ID)
		for _, m := range assets {
			if key, err := storage.ResolveKey(m.StoragePath, m.PublicURL, storage.OriginalKeySegments); err == nil {
				keys = append(keys, key)
			} else {
				s.log.Warnw("original key not resolvable", "asset", m.ID)
			}
			if m.ThumbnailPath != "" || m.ThumbnailURL != "" {
				if key, err := storage.ResolveKey(m.ThumbnailPath, m.ThumbnailURL, storage.DerivedKeySegments); err == nil {
					keys = append(keys, key)
				} else {
					s.log.Warnw("thumbnail key not resolvable", "asset", m.ID)
				}
			}
			if m.PreviewPath != "" || m.PreviewURL != "" {
				if key, err := storage.ResolveKey(m.PreviewPath, m.PreviewURL, storage.DerivedKeySegments); err == nil {
					keys = append(keys, key)
				} else {
					s.log.Warnw("preview key not resolvable", "asset", m.ID)
				}
			}
		}
	}

	// Metadata first, atomically. If this fails nothing is deleted from the
	// blob store: deleting blobs for records that still exist is worse than
	// retrying the whole run later.
	if err := s.cascade.CommitExpirations(ctx, albumIDs); err != nil {
		return fmt.Errorf("commit expiration batch: %w", err)
	}

	// Blob cleanup is fan-out, settle-all: every deletion is attempted and
	// observed, no failure aborts its siblings or the run.
	type outcome struct {
		key string
		err error
	}
	outcomes := make([]outcome, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			outcomes[i] = outcome{key: key, err: s.blobs.Delete(ctx, key)}
		}(i, key)
	}
	wg.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			s.log.Warnw("blob delete failed, object orphaned", "key", o.key, "err", o.err)
		}
	}
	s.log.Infow("sweep completed",
		"albums", len(albumIDs), "blobs", len(keys), "blob_failures", failed)
	return nil
}
