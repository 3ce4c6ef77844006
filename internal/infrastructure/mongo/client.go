// Package mongo implementa el almacenamiento del ledger sobre MongoDB (replica set, transacciones multi-documento).
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jhoicas/retail-ledger/pkg/config"
)

const (
	stockCollection   = "stock_balances"
	accountCollection = "balance_accounts"
	logCollection     = "mutation_log"
	costCollection    = "product_costs"
)

// Connect abre el cliente, verifica con Ping y devuelve la base configurada.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", mapError(err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", mapError(err))
	}
	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes crea los índices que sostienen el compare-and-set y las consultas de historial.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := db.Collection(accountCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "resource", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("index %s: %w", accountCollection, mapError(err))
	}
	if _, err := db.Collection(logCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "entity_key", Value: 1}, {Key: "timestamp", Value: -1}, {Key: "balance_version", Value: -1}}},
		{Keys: bson.D{{Key: "entity.product_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "transaction_id", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("index %s: %w", logCollection, mapError(err))
	}
	return nil
}
