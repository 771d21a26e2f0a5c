package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CascadeRepo commits a sweep run's staged metadata mutations. The whole
// batch goes through one transaction so document-store state is consistent
// after the sweep even when blob cleanup later fails partially.
type CascadeRepo struct {
	client      *mongo.Client
	albums      *mongo.Collection
	memberships *mongo.Collection
	media       *mongo.Collection
}

func NewCascadeRepo(client *mongo.Client, db *mongo.Database) *CascadeRepo {
	return &CascadeRepo{
		client:      client,
		albums:      db.Collection("albums"),
		memberships: db.Collection("memberships"),
		media:       db.Collection("media"),
	}
}

// CommitExpirations atomically marks the albums and their memberships
// inactive and hard-deletes their media records. All-or-nothing across every
// album in the run.
func (r *CascadeRepo) CommitExpirations(ctx context.Context, albumIDs []string) error {
	if len(albumIDs) == 0 {
		return nil
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	now := time.Now().UTC()
	byAlbum := bson.M{"album_id": bson.M{"$in": albumIDs}}

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.albums.UpdateMany(sc,
			bson.M{"_id": bson.M{"$in": albumIDs}},
			bson.M{"$set": bson.M{"active": false, "updated_at": now}},
		); err != nil {
			return nil, err
		}
		if _, err := r.memberships.UpdateMany(sc,
			byAlbum,
			bson.M{"$set": bson.M{"active": false}},
		); err != nil {
			return nil, err
		}
		if _, err := r.media.DeleteMany(sc, byAlbum); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}
