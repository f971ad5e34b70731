package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"
)

func (s *Store) InsertRequisition(ctx context.Context, r *models.Requisition) error {
	_, err := s.db.Collection(collRequisitions).InsertOne(ctx, toRequisitionRecord(r))
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// UpdateRequisition replaces the document only when the stored version
// still matches. A missed match is disambiguated into NotFound or Conflict.
func (s *Store) UpdateRequisition(ctx context.Context, r *models.Requisition, expectedVersion int64) error {
	rec := toRequisitionRecord(r)
	rec.Version = expectedVersion + 1

	result, err := s.db.Collection(collRequisitions).ReplaceOne(ctx,
		bson.M{"requisitionID": r.RequisitionID, "version": expectedVersion},
		rec)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		count, err := s.db.Collection(collRequisitions).CountDocuments(ctx,
			bson.M{"requisitionID": r.RequisitionID})
		if err != nil {
			return err
		}
		if count == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	r.Version = rec.Version
	return nil
}

func (s *Store) GetRequisition(ctx context.Context, requisitionID string) (*models.Requisition, error) {
	var rec requisitionRecord
	err := s.db.Collection(collRequisitions).FindOne(ctx,
		bson.M{"requisitionID": requisitionID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRequisitionRecord(rec)
}

func (s *Store) ListRequisitions(ctx context.Context, filter store.RequisitionFilter) ([]models.Requisition, error) {
	query := bson.M{}
	if filter.DepartmentID != "" {
		query["departmentID"] = filter.DepartmentID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	created := bson.M{}
	if !filter.From.IsZero() {
		created["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		created["$lte"] = filter.To
	}
	if len(created) > 0 {
		query["createdAt"] = created
	}
	return s.findRequisitions(ctx, query)
}

func (s *Store) ListRequisitionsByProduct(ctx context.Context, productSKU string) ([]models.Requisition, error) {
	out, err := s.findRequisitions(ctx, bson.M{"items.productSKU": productSKU})
	if err != nil {
		return nil, err
	}
	// Keep only requisitions with undistributed received stock for the
	// product; the query cannot compare two fields of the same element.
	var filtered []models.Requisition
	for _, r := range out {
		for _, item := range r.Items {
			if item.ProductSKU == productSKU && item.ReceivedQty.GreaterThan(item.DispatchedQty) {
				filtered = append(filtered, r)
				break
			}
		}
	}
	return filtered, nil
}

func (s *Store) findRequisitions(ctx context.Context, query bson.M) ([]models.Requisition, error) {
	cursor, err := s.db.Collection(collRequisitions).Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Requisition
	for cursor.Next(ctx) {
		var rec requisitionRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		r, err := fromRequisitionRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, cursor.Err()
}
