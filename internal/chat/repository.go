package chat

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store interface {
	Append(ctx context.Context, userID string, messages ...Message) error
	History(ctx context.Context, userID string) (Conversation, error)
	Clear(ctx context.Context, userID string) error
	SetLanguage(ctx context.Context, userID, language string) error
}

type MongoStore struct {
	col   *mongo.Collection
	limit int
}

// NewStore caps each conversation at limit messages; older entries are
// trimmed on append.
func NewStore(col *mongo.Collection, limit int) *MongoStore {
	if limit <= 0 {
		limit = 100
	}
	return &MongoStore{col: col, limit: limit}
}

func (s *MongoStore) Append(ctx context.Context, userID string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}
	now := time.Now()
	update := bson.M{
		"$push": bson.M{
			"messages": bson.M{
				"$each":  messages,
				"$slice": -s.limit,
			},
		},
		"$set": bson.M{"lastUpdated": now},
		"$setOnInsert": bson.M{
			"_id":      primitive.NewObjectID().Hex(),
			"language": "en",
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.col.UpdateOne(ctx, bson.M{"userId": userID}, update, opts)
	return err
}

func (s *MongoStore) History(ctx context.Context, userID string) (Conversation, error) {
	var conv Conversation
	err := s.col.FindOne(ctx, bson.M{"userId": userID}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Conversation{UserID: userID, Language: "en", Messages: []Message{}}, nil
		}
		return Conversation{}, err
	}
	return conv, nil
}

func (s *MongoStore) Clear(ctx context.Context, userID string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{
		"$set": bson.M{"messages": []Message{}, "lastUpdated": time.Now()},
	})
	return err
}

func (s *MongoStore) SetLanguage(ctx context.Context, userID, language string) error {
	opts := options.Update().SetUpsert(true)
	_, err := s.col.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{
		"$set": bson.M{"language": language, "lastUpdated": time.Now()},
		"$setOnInsert": bson.M{
			"_id":      primitive.NewObjectID().Hex(),
			"messages": []Message{},
		},
	}, opts)
	return err
}
