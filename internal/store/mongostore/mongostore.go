// Package mongostore is the MongoDB-backed Store. Quantities are persisted
// as strings and converted back to exact decimals at this boundary; a
// per-product counter document hands out ledger sequence numbers.
package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	collRequisitions = "requisitions"
	collReceipts     = "receipt_events"
	collDispatches   = "dispatch_events"
	collMovements    = "stock_movements"
	collLevels       = "stock_levels"
	collCounters     = "counters"
	collCommands     = "command_results"
	collUsers        = "users"
	collProducts     = "products"
	collSuppliers    = "suppliers"
	collDepartments  = "departments"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
// Safe to call on every boot.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		collRequisitions: {
			{Keys: bson.D{{Key: "requisitionID", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "departmentID", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "items.productSKU", Value: 1}}},
		},
		collReceipts: {
			{Keys: bson.D{{Key: "receiptID", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "requisitionID", Value: 1}}},
		},
		collDispatches: {
			{Keys: bson.D{{Key: "dispatchID", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "productSKU", Value: 1}}},
		},
		collMovements: {
			{Keys: bson.D{{Key: "productSKU", Value: 1}, {Key: "seq", Value: 1}}, Options: unique},
		},
		collLevels: {
			{Keys: bson.D{{Key: "productSKU", Value: 1}}, Options: unique},
		},
		collCommands: {
			{Keys: bson.D{{Key: "commandID", Value: 1}}, Options: unique},
		},
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		collProducts: {
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: unique},
		},
		collSuppliers: {
			{Keys: bson.D{{Key: "supplierID", Value: 1}}, Options: unique},
		},
		collDepartments: {
			{Keys: bson.D{{Key: "departmentID", Value: 1}}, Options: unique},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

// Atomically runs fn inside a Mongo session transaction. Requires the
// deployment to be a replica set; single-node replica sets work for local
// use.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
