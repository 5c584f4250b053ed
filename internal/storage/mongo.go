// Package storage はアプリケーションが使うデータベース接続のライフサイクルを管理します。
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// Mongo は MongoDB クライアントと対象データベースをまとめたものです。
// 起動時に Connect し、終了時に Close します。
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect は MongoDB に接続し、疎通を確認します。
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("mongodb uri is empty")
	}
	if database == "" {
		return nil, errors.New("mongodb database is empty")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetConnectTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(database)}
	if err := m.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

// Collection はコレクションを返します。
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// Ping はプライマリへの疎通を確認します。
func (m *Mongo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}
	return nil
}

// Close は接続を閉じます。
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
