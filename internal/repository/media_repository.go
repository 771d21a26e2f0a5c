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

type MediaRepo struct {
	col *mongo.Collection
}

func NewMediaRepo(db *mongo.Database) *MediaRepo {
	return &MediaRepo{col: db.Collection("media")}
}

func (r *MediaRepo) Insert(ctx context.Context, m *models.MediaAsset) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *MediaRepo) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	var m models.MediaAsset
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MediaRepo) ListByAlbum(ctx context.Context, albumID string) ([]models.MediaAsset, error) {
	cur, err := r.col.Find(ctx, bson.M{"album_id": albumID})
	if err != nil {
		return nil, err
	}
	var out []models.MediaAsset
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode media assets: %w", err)
	}
	return out, nil
}

func (r *MediaRepo) AddDownloadCount(ctx context.Context, id string, delta int) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"download_count": delta},
	})
	return err
}

func (r *MediaRepo) AddViewCount(ctx context.Context, id string, delta int) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"view_count": delta},
	})
	return err
}
