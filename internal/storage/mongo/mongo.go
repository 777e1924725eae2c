// Package mongo stores users and verification history in MongoDB.
// Username and email uniqueness rely on unique indexes created by New.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"face_verification/internal/config"
	"face_verification/internal/models"
	"face_verification/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection   = "users"
	historyCollection = "verification_history"
)

type userDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

type verificationDocument struct {
	ID              string    `bson:"_id"`
	UserID          string    `bson:"user_id"`
	Image1Filename  string    `bson:"image1_filename"`
	Image2Filename  string    `bson:"image2_filename"`
	Result          string    `bson:"result"`
	ConfidenceScore float64   `bson:"confidence_score"`
	CreatedAt       time.Time `bson:"created_at"`
}

type MongoRepo struct {
	client  *mongo.Client
	users   *mongo.Collection
	history *mongo.Collection
}

func New(ctx context.Context, cfg config.Mongo) (*MongoRepo, error) {
	const op = "storage.mongo.New"

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: failed to ping: %w", op, err)
	}

	db := client.Database(cfg.Database)
	r := &MongoRepo{
		client:  client,
		users:   db.Collection(usersCollection),
		history: db.Collection(historyCollection),
	}

	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r, nil
}

func (r *MongoRepo) ensureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = r.history.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create history index: %w", err)
	}

	return nil
}

func (r *MongoRepo) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.mongo.SaveUser"

	_, err := r.users.InsertOne(ctx, userDocument{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		PasswordHash: string(user.PassHash),
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *MongoRepo) UserByUsername(ctx context.Context, username string) (models.User, error) {
	const op = "storage.mongo.UserByUsername"

	var doc userDocument

	err := r.users.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.User{
		ID:        doc.ID,
		Email:     doc.Email,
		Username:  doc.Username,
		PassHash:  []byte(doc.PasswordHash),
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (r *MongoRepo) SaveVerification(ctx context.Context, rec models.VerificationRecord) error {
	const op = "storage.mongo.SaveVerification"

	_, err := r.history.InsertOne(ctx, verificationDocument{
		ID:              rec.ID,
		UserID:          rec.UserID,
		Image1Filename:  rec.Image1Ref,
		Image2Filename:  rec.Image2Ref,
		Result:          string(rec.Result),
		ConfidenceScore: rec.ConfidenceScore,
		CreatedAt:       rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *MongoRepo) Verifications(ctx context.Context, userID string, limit int) ([]models.VerificationRecord, error) {
	const op = "storage.mongo.Verifications"

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.history.Find(ctx, bson.D{{Key: "user_id", Value: userID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []verificationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	recs := make([]models.VerificationRecord, 0, len(docs))
	for _, d := range docs {
		recs = append(recs, models.VerificationRecord{
			ID:              d.ID,
			UserID:          d.UserID,
			Image1Ref:       d.Image1Filename,
			Image2Ref:       d.Image2Filename,
			Result:          models.Result(d.Result),
			ConfidenceScore: d.ConfidenceScore,
			CreatedAt:       d.CreatedAt,
		})
	}

	return recs, nil
}

func (r *MongoRepo) DeleteVerifications(ctx context.Context, userID string) (int64, error) {
	const op = "storage.mongo.DeleteVerifications"

	res, err := r.history.DeleteMany(ctx, bson.D{{Key: "user_id", Value: userID}})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.DeletedCount, nil
}

func (r *MongoRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoRepo) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = r.client.Disconnect(ctx)
}
