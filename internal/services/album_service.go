package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"album-service/internal/models"
	"album-service/internal/repository"
)

// Albums only come in three lifetimes.
var allowedDurations = map[int]bool{14: true, 30: true, 60: true}

type AlbumService struct {
	albums AlbumStore
	log    *zap.SugaredLogger
}

func NewAlbumService(albums AlbumStore, log *zap.SugaredLogger) *AlbumService {
	return &AlbumService{albums: albums, log: log}
}

// Create makes an active album expiring durationDays from now and an admin
// membership for the creator.
func (s *AlbumService) Create(ctx context.Context, creatorID, title string, durationDays int) (*models.Album, error) {
	if !allowedDurations[durationDays] {
		return nil, ErrInvalidDuration
	}
	now := time.Now().UTC()
	album := &models.Album{
		ID:          uuid.NewString(),
		Title:       title,
		CreatedBy:   creatorID,
		ExpiresAt:   now.Add(time.Duration(durationDays) * 24 * time.Hour),
		Active:      true,
		MemberCount: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.albums.InsertAlbum(ctx, album); err != nil {
		return nil, fmt.Errorf("insert album: %w", err)
	}
	member := &models.AlbumMembership{
		ID:        models.MembershipID(album.ID, creatorID),
		AlbumID:   album.ID,
		UserID:    creatorID,
		Role:      models.RoleAdmin,
		Active:    true,
		CreatedAt: now,
	}
	if err := s.albums.InsertMembership(ctx, member); err != nil {
		return nil, fmt.Errorf("insert creator membership: %w", err)
	}
	return album, nil
}

// Join adds userID as a regular member of an active, unexpired album.
func (s *AlbumService) Join(ctx context.Context, albumID, userID string) (*models.AlbumMembership, error) {
	album, err := s.albums.GetAlbum(ctx, albumID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAlbumNotFound
		}
		return nil, err
	}
	if !album.Active || !album.ExpiresAt.After(time.Now().UTC()) {
		return nil, ErrAlbumExpired
	}
	if m, err := s.albums.GetMembership(ctx, albumID, userID); err == nil && m.Active {
		return m, nil
	}
	member := &models.AlbumMembership{
		ID:        models.MembershipID(albumID, userID),
		AlbumID:   albumID,
		UserID:    userID,
		Role:      models.RoleMember,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.albums.InsertMembership(ctx, member); err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}
	if err := s.albums.AddMemberCount(ctx, albumID, 1); err != nil {
		s.log.Warnw("member count increment failed", "album", albumID, "err", err)
	}
	return member, nil
}

func (s *AlbumService) Get(ctx context.Context, albumID string) (*models.Album, error) {
	album, err := s.albums.GetAlbum(ctx, albumID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAlbumNotFound
	}
	return album, err
}

// ForceExpire is the admin-triggered manual expiration: a single-record
// update setting expires_at to now and active to false. Memberships, media
// records and blobs are left for the next sweep run.
func (s *AlbumService) ForceExpire(ctx context.Context, albumID, callerID string) error {
	member, err := s.albums.GetMembership(ctx, albumID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotMember
		}
		return err
	}
	if !member.Active {
		return ErrNotMember
	}
	if member.Role != models.RoleAdmin {
		return ErrNotAdmin
	}
	if err := s.albums.ExpireNow(ctx, albumID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAlbumNotFound
		}
		return err
	}
	s.log.Infow("album manually expired", "album", albumID, "by", callerID)
	return nil
}
