package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eldtechnologies/fileshare/internal/models"
)

// Collection names.
const (
	batchesCollection = "batches"
	groupsCollection  = "fsub_channels"
	adminsCollection  = "admins"
	usersCollection   = "users"
)

// MongoStore handles MongoDB document operations.
type MongoStore struct {
	client  *mongo.Client
	batches *mongo.Collection
	groups  *mongo.Collection
	admins  *mongo.Collection
	users   *mongo.Collection
}

// NewMongoStore connects to MongoDB and selects the named database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	db := client.Database(database)
	return &MongoStore{
		client:  client,
		batches: db.Collection(batchesCollection),
		groups:  db.Collection(groupsCollection),
		admins:  db.Collection(adminsCollection),
		users:   db.Collection(usersCollection),
	}, nil
}

// EnsureIndexes creates the indexes the queries rely on. It is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	if _, err := s.batches.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}); err != nil {
		return err
	}
	if _, err := s.groups.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "channel_id", Value: 1}}, Options: unique,
	}); err != nil {
		return err
	}
	if _, err := s.admins.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique,
	}); err != nil {
		return err
	}
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique,
	})
	return err
}

// Close disconnects the client.
func (s *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

// Ping checks the server connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// CreateBatch inserts a complete batch as one document.
func (s *MongoStore) CreateBatch(ctx context.Context, batch *models.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	_, err := s.batches.InsertOne(ctx, batch)
	return err
}

// GetBatch retrieves a batch by ID.
func (s *MongoStore) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	batch := &models.Batch{}
	err := s.batches.FindOne(ctx, bson.M{"_id": id}).Decode(batch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return batch, nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// ListRecentBatches returns the newest batches first.
func (s *MongoStore) ListRecentBatches(ctx context.Context, limit int) ([]models.Batch, error) {
	return s.findBatches(ctx, bson.M{}, limit)
}

// SearchBatches finds batches whose title contains query, ignoring case.
func (s *MongoStore) SearchBatches(ctx context.Context, query string, limit int) ([]models.Batch, error) {
	filter := bson.M{"title": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}}
	return s.findBatches(ctx, filter, limit)
}

func (s *MongoStore) findBatches(ctx context.Context, filter bson.M, limit int) ([]models.Batch, error) {
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	cursor, err := s.batches.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var batches []models.Batch
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

// UpdateBatchTitle renames a batch.
func (s *MongoStore) UpdateBatchTitle(ctx context.Context, id, title string) error {
	res, err := s.batches.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"title": title}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteBatch removes a batch.
func (s *MongoStore) DeleteBatch(ctx context.Context, id string) error {
	res, err := s.batches.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// IncrementViews atomically adds one view and returns the new count.
func (s *MongoStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var updated struct {
		Views int64 `bson:"views"`
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"views": 1})
	err := s.batches.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, models.ErrNotFound
		}
		return 0, err
	}
	return updated.Views, nil
}

// AddRequiredGroup adds a group to the membership requirement. Adding an
// existing group is a no-op.
func (s *MongoStore) AddRequiredGroup(ctx context.Context, groupID int64) error {
	_, err := s.groups.UpdateOne(ctx,
		bson.M{"channel_id": groupID},
		bson.M{"$setOnInsert": models.RequiredGroup{GroupID: groupID, AddedAt: time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// RemoveRequiredGroup removes a group from the membership requirement.
func (s *MongoStore) RemoveRequiredGroup(ctx context.Context, groupID int64) error {
	res, err := s.groups.DeleteOne(ctx, bson.M{"channel_id": groupID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListRequiredGroups returns required groups in the order they were added.
func (s *MongoStore) ListRequiredGroups(ctx context.Context) ([]models.RequiredGroup, error) {
	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}, {Key: "channel_id", Value: 1}})
	cursor, err := s.groups.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	var groups []models.RequiredGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// UpsertAdmin grants or updates a privilege entry.
func (s *MongoStore) UpsertAdmin(ctx context.Context, admin models.Admin) error {
	_, err := s.admins.UpdateOne(ctx,
		bson.M{"user_id": admin.UserID},
		bson.M{"$set": admin},
		options.Update().SetUpsert(true),
	)
	return err
}

// SetOwner makes userID the only owner. Any previous owner is demoted to a
// plain admin before the new owner is recorded.
func (s *MongoStore) SetOwner(ctx context.Context, userID int64) error {
	_, err := s.admins.UpdateMany(ctx,
		bson.M{"user_id": bson.M{"$ne": userID}, "is_owner": true},
		bson.M{"$set": bson.M{"is_owner": false}},
	)
	if err != nil {
		return err
	}
	_, err = s.admins.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"user_id": userID, "is_owner": true}},
		options.Update().SetUpsert(true),
	)
	return err
}

// RemoveAdmin revokes a non-owner privilege entry.
func (s *MongoStore) RemoveAdmin(ctx context.Context, userID int64) error {
	res, err := s.admins.DeleteOne(ctx, bson.M{"user_id": userID, "is_owner": bson.M{"$ne": true}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetAdmin retrieves a privilege entry.
func (s *MongoStore) GetAdmin(ctx context.Context, userID int64) (*models.Admin, error) {
	admin := &models.Admin{}
	err := s.admins.FindOne(ctx, bson.M{"user_id": userID}).Decode(admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return admin, nil
}

// ListAdmins returns the owner first, then other admins by ID.
func (s *MongoStore) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	opts := options.Find().SetSort(bson.D{{Key: "is_owner", Value: -1}, {Key: "user_id", Value: 1}})
	cursor, err := s.admins.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	var admins []models.Admin
	if err := cursor.All(ctx, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}

// UpsertUser records a user in the registry and reports whether they are new.
func (s *MongoStore) UpsertUser(ctx context.Context, user models.User) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"user_id": user.UserID},
		bson.M{"$set": user},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

// ListUserIDs returns every registered user ID.
func (s *MongoStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	opts := options.Find().
		SetProjection(bson.M{"user_id": 1, "_id": 0}).
		SetSort(bson.D{{Key: "user_id", Value: 1}})
	cursor, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []int64
	for cursor.Next(ctx) {
		var doc struct {
			UserID int64 `bson:"user_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.UserID)
	}
	return ids, cursor.Err()
}

// Stats returns the dashboard counts.
func (s *MongoStore) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}
	var err error

	if stats.Users, err = s.users.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if stats.Batches, err = s.batches.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if stats.Groups, err = s.groups.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if stats.Admins, err = s.admins.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}

	cursor, err := s.batches.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "files", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$size", Value: "$files"}}}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	var totals []struct {
		Files int64 `bson:"files"`
	}
	if err := cursor.All(ctx, &totals); err != nil {
		return nil, err
	}
	if len(totals) > 0 {
		stats.Files = totals[0].Files
	}
	return stats, nil
}
