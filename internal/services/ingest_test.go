package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"album-service/internal/models"
)

func seedAlbum(albums *fakeAlbumStore, albumID, userID string, role models.Role, active bool, expiresAt time.Time) {
	albums.albums[albumID] = &models.Album{
		ID: albumID, Title: "trip", CreatedBy: userID,
		ExpiresAt: expiresAt, Active: active,
	}
	albums.memberships[models.MembershipID(albumID, userID)] = &models.AlbumMembership{
		ID: models.MembershipID(albumID, userID), AlbumID: albumID, UserID: userID,
		Role: role, Active: true,
	}
}

type ingestFixture struct {
	albums *fakeAlbumStore
	media  *fakeMediaStore
	blobs  *fakeBlobStore
	images *fakeImageDeriver
	videos *fakeVideoDeriver
	svc    *IngestService
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		albums: newFakeAlbumStore(),
		media:  newFakeMediaStore(),
		blobs:  newFakeBlobStore(),
		images: &fakeImageDeriver{},
		videos: &fakeVideoDeriver{},
	}
	f.svc = NewIngestService(f.albums, f.media, f.blobs, f.images, f.videos, zap.NewNop().Sugar())
	return f
}

func imageUpload(name string) UploadFile {
	return UploadFile{Filename: name, ContentType: "image/jpeg", Data: []byte("jpegdata")}
}

func TestIngestImage(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, true, time.Now().Add(24*time.Hour))

	asset, err := f.svc.Ingest(context.Background(), "a1", "u1", imageUpload("pic.jpg"))
	require.NoError(t, err)

	assert.Equal(t, models.MediaClassImage, asset.Class)
	assert.Equal(t, "albums/a1/"+asset.ID+".jpg", asset.StoragePath)
	assert.Equal(t, "thumbnails/a1/thumb_"+asset.ID+".jpg", asset.ThumbnailPath)
	assert.Equal(t, "previews/a1/preview_"+asset.ID+".jpg", asset.PreviewPath)
	assert.NotEmpty(t, asset.ThumbnailURL)
	assert.NotEmpty(t, asset.PreviewURL)
	assert.Nil(t, asset.Video)

	stored, err := f.media.GetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.StoragePath, stored.StoragePath)

	album, _ := f.albums.GetAlbum(context.Background(), "a1")
	assert.EqualValues(t, 1, album.MediaCount)
}

func TestIngestVideo(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, true, time.Now().Add(24*time.Hour))
	dur := 12.5
	f.videos.meta = &models.VideoMetadata{DurationSeconds: &dur}

	asset, err := f.svc.Ingest(context.Background(), "a1", "u1", UploadFile{
		Filename: "clip.mp4", ContentType: "video/mp4", Data: []byte("mp4data"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.MediaClassVideo, asset.Class)
	assert.Equal(t, "albums/a1/"+asset.ID+".mp4", asset.StoragePath)
	assert.Equal(t, "previews/a1/preview_"+asset.ID+".mp4", asset.PreviewPath)
	require.NotNil(t, asset.Video)
	assert.InDelta(t, 12.5, *asset.Video.DurationSeconds, 0.01)
}

func TestIngestValidation(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, true, time.Now().Add(24*time.Hour))
	ctx := context.Background()

	t.Run("empty file", func(t *testing.T) {
		_, err := f.svc.Ingest(ctx, "a1", "u1", UploadFile{Filename: "x.jpg", ContentType: "image/jpeg"})
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("oversize file", func(t *testing.T) {
		_, err := f.svc.Ingest(ctx, "a1", "u1", UploadFile{
			Filename: "big.jpg", ContentType: "image/jpeg", Data: make([]byte, MaxFileBytes+1),
		})
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := f.svc.Ingest(ctx, "a1", "u1", UploadFile{
			Filename: "doc.pdf", ContentType: "application/pdf", Data: []byte("pdf"),
		})
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("unknown album", func(t *testing.T) {
		_, err := f.svc.Ingest(ctx, "nope", "u1", imageUpload("pic.jpg"))
		assert.ErrorIs(t, err, ErrAlbumNotFound)
	})

	t.Run("non-member", func(t *testing.T) {
		_, err := f.svc.Ingest(ctx, "a1", "stranger", imageUpload("pic.jpg"))
		assert.ErrorIs(t, err, ErrNotMember)
	})

	// No writes happened for any rejected upload.
	assert.Zero(t, f.media.count())
	assert.Empty(t, f.blobs.objects)
}

func TestIngestRejectsExpiredAlbum(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, true, time.Now().Add(-time.Hour))

	_, err := f.svc.Ingest(context.Background(), "a1", "u1", imageUpload("pic.jpg"))
	assert.ErrorIs(t, err, ErrAlbumExpired)
}

func TestIngestRejectsInactiveAlbum(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, false, time.Now().Add(24*time.Hour))

	_, err := f.svc.Ingest(context.Background(), "a1", "u1", imageUpload("pic.jpg"))
	assert.ErrorIs(t, err, ErrAlbumExpired)
}

func TestIngestOriginalWriteFailureIsFatal(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, true, time.Now().Add(24*time.Hour))
	f.blobs.uploadErr = func(key string) error {
		if strings.HasPrefix(key, "albums/") {
			return errors.New("s3 down")
		}
		return nil
	}

	_, err := f.svc.Ingest(context.Background(), "a1", "u1", imageUpload("pic.jpg"))
	require.Error(t, err)

	assert.Zero(t, f.media.count())
	album, _ := f.albums.GetAlbum(context.Background(), "a1")
	assert.Zero(t, album.MediaCount)
}

func TestIngestDerivationFailureIsNotFatal(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, true, time.Now().Add(24*time.Hour))
	f.images.thumbErr = errors.New("decoder blew up")
	f.images.previewErr = errors.New("decoder blew up")

	asset, err := f.svc.Ingest(context.Background(), "a1", "u1", imageUpload("pic.jpg"))
	require.NoError(t, err)

	assert.NotEmpty(t, asset.StoragePath)
	assert.Empty(t, asset.ThumbnailPath)
	assert.Empty(t, asset.PreviewPath)
	assert.Equal(t, 1, f.media.count())
}

func TestIngestVideoPartialDerivation(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, true, time.Now().Add(24*time.Hour))
	f.videos.probeErr = errors.New("probe failed")
	f.videos.previewErr = errors.New("encode failed")

	asset, err := f.svc.Ingest(context.Background(), "a1", "u1", UploadFile{
		Filename: "clip.mp4", ContentType: "video/mp4", Data: []byte("mp4data"),
	})
	require.NoError(t, err)

	assert.Nil(t, asset.Video)
	assert.NotEmpty(t, asset.ThumbnailPath)
	assert.Empty(t, asset.PreviewPath)
}

func TestIngestBatchLimits(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, true, time.Now().Add(24*time.Hour))

	_, err := f.svc.IngestBatch(context.Background(), "a1", "u1", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	files := make([]UploadFile, MaxBatchFiles+1)
	for i := range files {
		files[i] = imageUpload(fmt.Sprintf("p%d.jpg", i))
	}
	_, err = f.svc.IngestBatch(context.Background(), "a1", "u1", files)
	assert.ErrorIs(t, err, ErrTooManyFiles)
}

func TestIngestBatchConcurrentCounter(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, true, time.Now().Add(24*time.Hour))

	files := make([]UploadFile, MaxBatchFiles)
	for i := range files {
		files[i] = imageUpload(fmt.Sprintf("p%d.jpg", i))
	}
	results, err := f.svc.IngestBatch(context.Background(), "a1", "u1", files)
	require.NoError(t, err)

	for _, r := range results {
		require.NoError(t, r.Err)
	}
	album, _ := f.albums.GetAlbum(context.Background(), "a1")
	assert.EqualValues(t, MaxBatchFiles, album.MediaCount)
	assert.Equal(t, MaxBatchFiles, f.media.count())
}

func TestIngestBatchPartialFailureIsIndependent(t *testing.T) {
	f := newIngestFixture()
	seedAlbum(f.albums, "a1", "u1", models.RoleMember, true, time.Now().Add(24*time.Hour))

	files := []UploadFile{
		imageUpload("ok1.jpg"),
		{Filename: "nope.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
		imageUpload("ok2.jpg"),
	}
	results, err := f.svc.IngestBatch(context.Background(), "a1", "u1", files)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrUnsupportedType)
	assert.NoError(t, results[2].Err)

	album, _ := f.albums.GetAlbum(context.Background(), "a1")
	assert.EqualValues(t, 2, album.MediaCount)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		filename    string
		wantClass   models.MediaClass
		wantExt     string
		wantErr     bool
	}{
		{"image/jpeg", "pic.jpg", models.MediaClassImage, ".jpg", false},
		{"image/jpeg", "PIC.JPEG", models.MediaClassImage, ".jpeg", false},
		{"image/png; charset=binary", "pic.png", models.MediaClassImage, ".png", false},
		{"image/png", "noext", models.MediaClassImage, ".png", false},
		{"video/mp4", "clip.mp4", models.MediaClassVideo, ".mp4", false},
		{"video/quicktime", "clip.mov", models.MediaClassVideo, ".mov", false},
		{"application/octet-stream", "clip.mp4", models.MediaClassVideo, ".mp4", false},
		{"application/octet-stream", "pic.jpeg", models.MediaClassImage, ".jpeg", false},
		{"application/pdf", "doc.pdf", "", "", true},
		{"", "noext", "", "", true},
	}
	for _, tt := range tests {
		class, ext, err := classify(tt.contentType, tt.filename)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedType, "%s/%s", tt.contentType, tt.filename)
			continue
		}
		require.NoError(t, err, "%s/%s", tt.contentType, tt.filename)
		assert.Equal(t, tt.wantClass, class)
		assert.Equal(t, tt.wantExt, ext)
	}
}
