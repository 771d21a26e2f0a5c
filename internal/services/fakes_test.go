package service

import (
	"context"
	"sync"
	"time"

	"album-service/internal/models"
	"album-service/internal/repository"
)

type fakeAlbumStore struct {
	mu          sync.Mutex
	albums      map[string]*models.Album
	memberships map[string]*models.AlbumMembership

	mediaCountErr error
}

func newFakeAlbumStore() *fakeAlbumStore {
	return &fakeAlbumStore{
		albums:      make(map[string]*models.Album),
		memberships: make(map[string]*models.AlbumMembership),
	}
}

func (f *fakeAlbumStore) InsertAlbum(_ context.Context, a *models.Album) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.albums[a.ID] = &cp
	return nil
}

func (f *fakeAlbumStore) InsertMembership(_ context.Context, m *models.AlbumMembership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.memberships[m.ID] = &cp
	return nil
}

func (f *fakeAlbumStore) GetAlbum(_ context.Context, id string) (*models.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.albums[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAlbumStore) GetMembership(_ context.Context, albumID, userID string) (*models.AlbumMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memberships[models.MembershipID(albumID, userID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeAlbumStore) AddMediaCount(_ context.Context, albumID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mediaCountErr != nil {
		return f.mediaCountErr
	}
	if a, ok := f.albums[albumID]; ok {
		a.MediaCount += int64(delta)
		a.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (f *fakeAlbumStore) AddMemberCount(_ context.Context, albumID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.albums[albumID]; ok {
		a.MemberCount += int64(delta)
	}
	return nil
}

func (f *fakeAlbumStore) ExpireNow(_ context.Context, albumID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.albums[albumID]
	if !ok {
		return repository.ErrNotFound
	}
	a.ExpiresAt = at
	a.Active = false
	a.UpdatedAt = at
	return nil
}

func (f *fakeAlbumStore) FindExpired(_ context.Context, now time.Time) ([]models.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Album
	for _, a := range f.albums {
		if a.Active && a.ExpiresAt.Before(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeMediaStore struct {
	mu        sync.Mutex
	assets    map[string]*models.MediaAsset
	insertErr error
	listErr   error
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{assets: make(map[string]*models.MediaAsset)}
}

func (f *fakeMediaStore) Insert(_ context.Context, m *models.MediaAsset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *m
	f.assets[m.ID] = &cp
	return nil
}

func (f *fakeMediaStore) GetByID(_ context.Context, id string) (*models.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.assets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMediaStore) ListByAlbum(_ context.Context, albumID string) ([]models.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.MediaAsset
	for _, m := range f.assets {
		if m.AlbumID == albumID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMediaStore) AddDownloadCount(_ context.Context, id string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.assets[id]; ok {
		m.DownloadCount += int64(delta)
	}
	return nil
}

func (f *fakeMediaStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.assets)
}

type fakeBlobStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	uploadErr func(key string) error
	deleteErr func(key string) error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Upload(_ context.Context, key, _ string, data []byte, publicRead bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		if err := f.uploadErr(key); err != nil {
			return "", err
		}
	}
	f.objects[key] = data
	if publicRead {
		return "https://fake.s3.us-east-1.amazonaws.com/" + key, nil
	}
	return "", nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		if err := f.deleteErr(key); err != nil {
			return err
		}
	}
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobStore) PresignURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://fake.s3.us-east-1.amazonaws.com/" + key + "?signed=1", nil
}

func (f *fakeBlobStore) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeCascadeStore struct {
	mu        sync.Mutex
	committed [][]string
	err       error
}

func (f *fakeCascadeStore) CommitExpirations(_ context.Context, albumIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.committed = append(f.committed, append([]string(nil), albumIDs...))
	return nil
}

type fakeImageDeriver struct {
	thumbErr   error
	previewErr error
}

func (f *fakeImageDeriver) Thumbnail(_ []byte) ([]byte, error) {
	if f.thumbErr != nil {
		return nil, f.thumbErr
	}
	return []byte("thumb"), nil
}

func (f *fakeImageDeriver) Preview(_ []byte) ([]byte, error) {
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	return []byte("preview"), nil
}

type fakeVideoDeriver struct {
	meta       *models.VideoMetadata
	probeErr   error
	thumbErr   error
	previewErr error
}

func (f *fakeVideoDeriver) Probe(_ context.Context, _ []byte) (*models.VideoMetadata, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	if f.meta != nil {
		return f.meta, nil
	}
	return &models.VideoMetadata{}, nil
}

func (f *fakeVideoDeriver) Thumbnail(_ context.Context, _ []byte) ([]byte, error) {
	if f.thumbErr != nil {
		return nil, f.thumbErr
	}
	return []byte("vthumb"), nil
}

func (f *fakeVideoDeriver) Preview(_ context.Context, _ []byte) ([]byte, error) {
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	return []byte("vpreview"), nil
}

type fakeLease struct {
	mu       sync.Mutex
	held     bool
	acquired int
	released int
}

func (f *fakeLease) Acquire(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLease) Release(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = false
	f.released++
	return nil
}
