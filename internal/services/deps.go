package service

import (
	"context"
	"errors"
	"time"

	"album-service/internal/models"
)

var (
	ErrAlbumNotFound   = errors.New("album not found")
	ErrAlbumExpired    = errors.New("album expired")
	ErrMediaNotFound   = errors.New("media not found")
	ErrNotMember       = errors.New("not an album member")
	ErrNotAdmin        = errors.New("admin role required")
	ErrEmptyFile       = errors.New("empty file")
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrTooManyFiles    = errors.New("too many files in one request")
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrInvalidDuration = errors.New("invalid album duration")
)

// AlbumStore is the album/membership slice of the document store.
type AlbumStore interface {
	InsertAlbum(ctx context.Context, a *models.Album) error
	InsertMembership(ctx context.Context, m *models.AlbumMembership) error
	GetAlbum(ctx context.Context, id string) (*models.Album, error)
	GetMembership(ctx context.Context, albumID, userID string) (*models.AlbumMembership, error)
	AddMediaCount(ctx context.Context, albumID string, delta int) error
	AddMemberCount(ctx context.Context, albumID string, delta int) error
	ExpireNow(ctx context.Context, albumID string, at time.Time) error
	FindExpired(ctx context.Context, now time.Time) ([]models.Album, error)
}

type MediaStore interface {
	Insert(ctx context.Context, m *models.MediaAsset) error
	GetByID(ctx context.Context, id string) (*models.MediaAsset, error)
	ListByAlbum(ctx context.Context, albumID string) ([]models.MediaAsset, error)
	AddDownloadCount(ctx context.Context, id string, delta int) error
}

// CascadeStore commits one sweep run's staged metadata mutations
// all-or-nothing.
type CascadeStore interface {
	CommitExpirations(ctx context.Context, albumIDs []string) error
}

type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte, publicRead bool) (string, error)
	Delete(ctx context.Context, key string) error
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type ImageDeriver interface {
	Thumbnail(data []byte) ([]byte, error)
	Preview(data []byte) ([]byte, error)
}

type VideoDeriver interface {
	Probe(ctx context.Context, data []byte) (*models.VideoMetadata, error)
	Thumbnail(ctx context.Context, data []byte) ([]byte, error)
	Preview(ctx context.Context, data []byte) ([]byte, error)
}

// Lease guards the sweep against overlapping runs.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}
