package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"album-service/internal/models"
	"album-service/internal/repository"
	"album-service/internal/storage"
)

const (
	// MaxFileBytes applies per file, also inside batch requests.
	MaxFileBytes = 250 << 20
	// MaxBatchFiles caps one multi-file upload request.
	MaxBatchFiles = 10
)

var imageContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var videoContentTypes = map[string]string{
	"video/mp4":        ".mp4",
	"video/quicktime":  ".mov",
	"video/webm":       ".webm",
	"video/x-matroska": ".mkv",
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".m4v": true,
}

// IngestService is the coordinator for the upload pipeline: validation,
// original write, derivation by MIME class, record persistence, counter
// update. Only a failed original write is fatal; derivation is best-effort.
type IngestService struct {
	albums AlbumStore
	media  MediaStore
	blobs  BlobStore
	images ImageDeriver
	videos VideoDeriver
	log    *zap.SugaredLogger
}

func NewIngestService(albums AlbumStore, media MediaStore, blobs BlobStore, images ImageDeriver, videos VideoDeriver, log *zap.SugaredLogger) *IngestService {
	return &IngestService{albums: albums, media: media, blobs: blobs, images: images, videos: videos, log: log}
}

// UploadFile is one file of an upload request.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BatchResult reports one file's outcome; files in a batch are independent.
type BatchResult struct {
	Filename string
	Asset    *models.MediaAsset
	Err      error
}

// Ingest runs the full pipeline for a single file.
func (s *IngestService) Ingest(ctx context.Context, albumID, uploaderID string, f UploadFile) (*models.MediaAsset, error) {
	if len(f.Data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(f.Data)) > MaxFileBytes {
		return nil, ErrFileTooLarge
	}
	class, ext, err := classify(f.ContentType, f.Filename)
	if err != nil {
		return nil, err
	}
	if err := s.checkAlbumAccess(ctx, albumID, uploaderID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := storage.OriginalKey(albumID, id, ext)

	// Original write is the only fatal stage: no record exists until the
	// bytes are durably stored.
	publicURL, err := s.blobs.Upload(ctx, key, f.ContentType, f.Data, false)
	if err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}

	asset := &models.MediaAsset{
		ID:          id,
		AlbumID:     albumID,
		UploaderID:  uploaderID,
		Class:       class,
		Size:        int64(len(f.Data)),
		ContentType: f.ContentType,
		Filename:    f.Filename,
		StoragePath: key,
		PublicURL:   publicURL,
		CreatedAt:   time.Now().UTC(),
	}

	switch class {
	case models.MediaClassImage:
		s.deriveImage(ctx, asset, f.Data)
	case models.MediaClassVideo:
		s.deriveVideo(ctx, asset, f.Data)
	}

	if err := s.media.Insert(ctx, asset); err != nil {
		// The original blob is orphaned here; the album's eventual sweep
		// will not know about it, so make that loud.
		s.log.Errorw("media record insert failed after original write",
			"asset", id, "key", key, "err", err)
		return nil, fmt.Errorf("persist media record: %w", err)
	}

	if err := s.albums.AddMediaCount(ctx, albumID, 1); err != nil {
		// Advisory counter; recomputable from media records.
		s.log.Warnw("media count increment failed", "album", albumID, "err", err)
	}
	return asset, nil
}

// IngestBatch runs each file's pipeline independently and concurrently.
// Per-file failures never roll back sibling files.
func (s *IngestService) IngestBatch(ctx context.Context, albumID, uploaderID string, files []UploadFile) ([]BatchResult, error) {
	if len(files) == 0 {
		return nil, ErrEmptyFile
	}
	if len(files) > MaxBatchFiles {
		return nil, ErrTooManyFiles
	}

	results := make([]BatchResult, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f UploadFile) {
			defer wg.Done()
			asset, err := s.Ingest(ctx, albumID, uploaderID, f)
			results[i] = BatchResult{Filename: f.Filename, Asset: asset, Err: err}
		}(i, f)
	}
	wg.Wait()
	return results, nil
}

func (s *IngestService) checkAlbumAccess(ctx context.Context, albumID, uploaderID string) error {
	album, err := s.albums.GetAlbum(ctx, albumID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAlbumNotFound
		}
		return err
	}
	if !album.Active || !album.ExpiresAt.After(time.Now().UTC()) {
		return ErrAlbumExpired
	}
	member, err := s.albums.GetMembership(ctx, albumID, uploaderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotMember
		}
		return err
	}
	if !member.Active {
		return ErrNotMember
	}
	return nil
}

// deriveImage attaches thumbnail and preview locators to the asset.
// Each artifact fails independently; a failure only leaves its locator empty.
func (s *IngestService) deriveImage(ctx context.Context, asset *models.MediaAsset, data []byte) {
	if thumb, err := s.images.Thumbnail(data); err != nil {
		s.log.Warnw("image thumbnail derivation failed", "asset", asset.ID, "err", err)
	} else {
		key := storage.ThumbnailKey(asset.AlbumID, asset.ID)
		if url, err := s.blobs.Upload(ctx, key, "image/jpeg", thumb, true); err != nil {
			s.log.Warnw("thumbnail upload failed", "asset", asset.ID, "err", err)
		} else {
			asset.ThumbnailPath = key
			asset.ThumbnailURL = url
		}
	}

	if preview, err := s.images.Preview(data); err != nil {
		s.log.Warnw("image preview derivation failed", "asset", asset.ID, "err", err)
	} else {
		key := storage.PreviewKey(asset.AlbumID, asset.ID, ".jpg")
		if url, err := s.blobs.Upload(ctx, key, "image/jpeg", preview, true); err != nil {
			s.log.Warnw("preview upload failed", "asset", asset.ID, "err", err)
		} else {
			asset.PreviewPath = key
			asset.PreviewURL = url
		}
	}
}

// deriveVideo attaches technical metadata, a still thumbnail and a transcoded
// preview. Sub-operations are independent; partial results are kept.
func (s *IngestService) deriveVideo(ctx context.Context, asset *models.MediaAsset, data []byte) {
	if meta, err := s.videos.Probe(ctx, data); err != nil {
		s.log.Warnw("video probe failed", "asset", asset.ID, "err", err)
	} else {
		asset.Video = meta
	}

	if thumb, err := s.videos.Thumbnail(ctx, data); err != nil {
		s.log.Warnw("video thumbnail derivation failed", "asset", asset.ID, "err", err)
	} else {
		key := storage.ThumbnailKey(asset.AlbumID, asset.ID)
		if url, err := s.blobs.Upload(ctx, key, "image/jpeg", thumb, true); err != nil {
			s.log.Warnw("thumbnail upload failed", "asset", asset.ID, "err", err)
		} else {
			asset.ThumbnailPath = key
			asset.ThumbnailURL = url
		}
	}

	if preview, err := s.videos.Preview(ctx, data); err != nil {
		s.log.Warnw("video preview derivation failed", "asset", asset.ID, "err", err)
	} else {
		key := storage.PreviewKey(asset.AlbumID, asset.ID, ".mp4")
		if url, err := s.blobs.Upload(ctx, key, "video/mp4", preview, true); err != nil {
			s.log.Warnw("preview upload failed", "asset", asset.ID, "err", err)
		} else {
			asset.PreviewPath = key
			asset.PreviewURL = url
		}
	}
}

// classify maps the declared content type, or the file extension as a
// fallback, to a media class and the extension the original is stored under.
func classify(contentType, filename string) (models.MediaClass, string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext := strings.ToLower(filepath.Ext(filename))

	if mapped, ok := imageContentTypes[ct]; ok {
		if !imageExts[ext] {
			ext = mapped
		}
		return models.MediaClassImage, ext, nil
	}
	if mapped, ok := videoContentTypes[ct]; ok {
		if !videoExts[ext] {
			ext = mapped
		}
		return models.MediaClassVideo, ext, nil
	}
	if imageExts[ext] {
		return models.MediaClassImage, ext, nil
	}
	if videoExts[ext] {
		return models.MediaClassVideo, ext, nil
	}
	return "", "", ErrUnsupportedType
}
