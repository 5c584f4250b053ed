package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoDocument はコレクションに保存する形式です。
// 内容は Sealer で暗号化し、期限だけを平文で持ちます（TTL インデックス用）。
type mongoDocument struct {
	ID      string    `bson:"_id"`
	Session string    `bson:"session"`
	Expires time.Time `bson:"expires"`
}

// MongoStore はセッションを MongoDB に保存します。
type MongoStore struct {
	coll   *mongo.Collection
	sealer *Sealer
}

// NewMongoStore は MongoStore を作成します。
func NewMongoStore(coll *mongo.Collection, sealer *Sealer) *MongoStore {
	return &MongoStore{coll: coll, sealer: sealer}
}

// EnsureIndexes は期限切れドキュメントを MongoDB 側で消す TTL インデックスを作成します。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires", Value: 1}},
		Options: options.Index().SetName("expires_ttl").SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create session ttl index: %w", err)
	}
	return nil
}

func (s *MongoStore) Save(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	sealed, err := s.sealer.Seal(record)
	if err != nil {
		return err
	}
	doc := mongoDocument{ID: record.ID, Session: sealed, Expires: record.ExpiresAt.UTC()}
	_, err = s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: record.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}
	var doc mongoDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s.sealer.Open(doc.Session)
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
