package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"album-service/internal/models"
	"album-service/internal/repository"
	"album-service/internal/storage"
)

// MediaService is the read/download surface over stored assets.
type MediaService struct {
	media      MediaStore
	blobs      BlobStore
	presignTTL time.Duration
	log        *zap.SugaredLogger
}

func NewMediaService(media MediaStore, blobs BlobStore, presignTTL time.Duration, log *zap.SugaredLogger) *MediaService {
	return &MediaService{media: media, blobs: blobs, presignTTL: presignTTL, log: log}
}

func (s *MediaService) Get(ctx context.Context, id string) (*models.MediaAsset, error) {
	m, err := s.media.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMediaNotFound
	}
	return m, err
}

// DownloadURL returns a readable URL for the original: the stored public URL
// when one exists, otherwise a presigned GET against the resolved key.
func (s *MediaService) DownloadURL(ctx context.Context, id string) (string, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	var url string
	if m.PublicURL != "" {
		url = m.PublicURL
	} else {
		key, err := storage.ResolveKey(m.StoragePath, m.PublicURL, storage.OriginalKeySegments)
		if err != nil {
			return "", err
		}
		url, err = s.blobs.PresignURL(ctx, key, s.presignTTL)
		if err != nil {
			return "", err
		}
	}

	if err := s.media.AddDownloadCount(ctx, id, 1); err != nil {
		s.log.Warnw("download count increment failed", "asset", id, "err", err)
	}
	return url, nil
}
