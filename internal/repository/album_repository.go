package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"album-service/internal/models"
)

// ErrNotFound is returned by point reads when no document matches.
var ErrNotFound = errors.New("document not found")

type AlbumRepo struct {
	albums      *mongo.Collection
	memberships *mongo.Collection
}

func NewAlbumRepo(db *mongo.Database) *AlbumRepo {
	return &AlbumRepo{
		albums:      db.Collection("albums"),
		memberships: db.Collection("memberships"),
	}
}

func (r *AlbumRepo) InsertAlbum(ctx context.Context, a *models.Album) error {
	_, err := r.albums.InsertOne(ctx, a)
	return err
}

func (r *AlbumRepo) InsertMembership(ctx context.Context, m *models.AlbumMembership) error {
	_, err := r.memberships.InsertOne(ctx, m)
	return err
}

func (r *AlbumRepo) GetAlbum(ctx context.Context, id string) (*models.Album, error) {
	var a models.Album
	err := r.albums.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AlbumRepo) GetMembership(ctx context.Context, albumID, userID string) (*models.AlbumMembership, error) {
	var m models.AlbumMembership
	err := r.memberships.FindOne(ctx, bson.M{"_id": models.MembershipID(albumID, userID)}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// AddMediaCount bumps the advisory media counter with an atomic $inc and
// touches updated_at. Never read-modify-write: concurrent uploads must not
// lose updates.
func (r *AlbumRepo) AddMediaCount(ctx context.Context, albumID string, delta int) error {
	_, err := r.albums.UpdateOne(ctx, bson.M{"_id": albumID}, bson.M{
		"$inc": bson.M{"media_count": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

func (r *AlbumRepo) AddMemberCount(ctx context.Context, albumID string, delta int) error {
	_, err := r.albums.UpdateOne(ctx, bson.M{"_id": albumID}, bson.M{
		"$inc": bson.M{"member_count": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// ExpireNow is the manual-expiration single-record update: expiration moved
// to now, album deactivated. Cascade cleanup is left to the next sweep run.
func (r *AlbumRepo) ExpireNow(ctx context.Context, albumID string, at time.Time) error {
	res, err := r.albums.UpdateOne(ctx, bson.M{"_id": albumID}, bson.M{
		"$set": bson.M{"expires_at": at, "active": false, "updated_at": at},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AlbumRepo) FindExpired(ctx context.Context, now time.Time) ([]models.Album, error) {
	cur, err := r.albums.Find(ctx, bson.M{
		"expires_at": bson.M{"$lt": now},
		"active":     true,
	})
	if err != nil {
		return nil, err
	}
	var out []models.Album
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode expired albums: %w", err)
	}
	return out, nil
}
