package identity

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/veris-dev/veris-lrs/pkg/schema"
)

// MongoUsers persists accounts in a MongoDB collection.
type MongoUsers struct {
	coll *mongo.Collection
}

// NewMongoUsers binds the store to the "users" collection of db.
func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{coll: db.Collection("users")}
}

func (s *MongoUsers) Create(ctx context.Context, u schema.User) error {
	if _, err := s.ByEmail(ctx, u.Email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err := s.coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *MongoUsers) ByID(ctx context.Context, id string) (schema.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUsers) ByEmail(ctx context.Context, email string) (schema.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUsers) findOne(ctx context.Context, filter bson.M) (schema.User, error) {
	var u schema.User
	err := s.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return schema.User{}, ErrNotFound
	}
	return u, err
}

func (s *MongoUsers) Update(ctx context.Context, u schema.User) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUsers) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUsers) List(ctx context.Context) ([]schema.User, error) {
	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []schema.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
