package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"
)

// AppendMovement draws the next sequence number for the product from the
// counters collection and inserts the movement. The unique (product, seq)
// index makes double-appends impossible.
func (s *Store) AppendMovement(ctx context.Context, m *models.StockMovement) error {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(collCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": "movement:" + m.ProductSKU},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return err
	}
	m.Seq = counter.Seq

	_, err = s.db.Collection(collMovements).InsertOne(ctx, movementRecord{
		MovementID: m.MovementID,
		ProductSKU: m.ProductSKU,
		Seq:        m.Seq,
		Kind:       m.Kind,
		QtyDelta:   m.QtyDelta.String(),
		Reference:  m.Reference,
		Reason:     m.Reason,
		CorrectsID: m.CorrectsID,
		ActorID:    m.ActorID,
		CreatedAt:  m.CreatedAt,
	})
	return err
}

func (s *Store) ListMovements(ctx context.Context, productSKU string) ([]models.StockMovement, error) {
	cursor, err := s.db.Collection(collMovements).Find(ctx,
		bson.M{"productSKU": productSKU},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.StockMovement
	for cursor.Next(ctx) {
		var rec movementRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		m, err := fromMovementRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, cursor.Err()
}

func (s *Store) ListMovementProducts(ctx context.Context) ([]string, error) {
	values, err := s.db.Collection(collMovements).Distinct(ctx, "productSKU", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if sku, ok := v.(string); ok {
			out = append(out, sku)
		}
	}
	return out, nil
}

func (s *Store) GetStockLevel(ctx context.Context, productSKU string) (models.StockLevel, error) {
	var rec levelRecord
	err := s.db.Collection(collLevels).FindOne(ctx, bson.M{"productSKU": productSKU}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.StockLevel{ProductSKU: productSKU, OnHand: decimal.Zero}, nil
	}
	if err != nil {
		return models.StockLevel{}, err
	}
	onHand, err := parseDecimal("onHand", rec.OnHand)
	if err != nil {
		return models.StockLevel{}, err
	}
	return models.StockLevel{
		ProductSKU: rec.ProductSKU,
		OnHand:     onHand,
		LastSeq:    rec.LastSeq,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

// ApplyStockDelta folds a movement delta into the cached level. String
// decimals cannot use $inc, so this is a read-modify-write; the coordinator
// serializes writers per product, so lost updates cannot happen.
func (s *Store) ApplyStockDelta(ctx context.Context, productSKU string, delta decimal.Decimal, seq int64) error {
	level, err := s.GetStockLevel(ctx, productSKU)
	if err != nil {
		return err
	}
	rec := levelRecord{
		ProductSKU: productSKU,
		OnHand:     level.OnHand.Add(delta).String(),
		LastSeq:    seq,
		UpdatedAt:  time.Now(),
	}
	_, err = s.db.Collection(collLevels).ReplaceOne(ctx,
		bson.M{"productSKU": productSKU}, rec,
		options.Replace().SetUpsert(true))
	return err
}

func (s *Store) InsertReceipt(ctx context.Context, e *models.ReceiptEvent) error {
	_, err := s.db.Collection(collReceipts).InsertOne(ctx, receiptRecord{
		ReceiptID:     e.ReceiptID,
		RequisitionID: e.RequisitionID,
		LineItemID:    e.LineItemID,
		ProductSKU:    e.ProductSKU,
		Quantity:      e.Quantity.String(),
		Unit:          e.Unit,
		Reference:     e.Reference,
		DocumentURL:   e.DocumentURL,
		RecordedBy:    e.RecordedBy,
		RecordedAt:    e.RecordedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *Store) ListReceipts(ctx context.Context, requisitionID string) ([]models.ReceiptEvent, error) {
	cursor, err := s.db.Collection(collReceipts).Find(ctx,
		bson.M{"requisitionID": requisitionID},
		options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.ReceiptEvent
	for cursor.Next(ctx) {
		var rec receiptRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		e, err := fromReceiptRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cursor.Err()
}

func (s *Store) GetReceipt(ctx context.Context, receiptID string) (*models.ReceiptEvent, error) {
	var rec receiptRecord
	err := s.db.Collection(collReceipts).FindOne(ctx, bson.M{"receiptID": receiptID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e, err := fromReceiptRecord(rec)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) SetReceiptDocument(ctx context.Context, receiptID, url string) error {
	result, err := s.db.Collection(collReceipts).UpdateOne(ctx,
		bson.M{"receiptID": receiptID},
		bson.M{"$set": bson.M{"documentURL": url}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertDispatch(ctx context.Context, e *models.DispatchEvent) error {
	_, err := s.db.Collection(collDispatches).InsertOne(ctx, dispatchRecord{
		DispatchID:   e.DispatchID,
		ProductSKU:   e.ProductSKU,
		Quantity:     e.Quantity.String(),
		DepartmentID: e.DepartmentID,
		RequestedBy:  e.RequestedBy,
		Note:         e.Note,
		CreatedAt:    e.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *Store) ListDispatches(ctx context.Context, productSKU string) ([]models.DispatchEvent, error) {
	query := bson.M{}
	if productSKU != "" {
		query["productSKU"] = productSKU
	}
	cursor, err := s.db.Collection(collDispatches).Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.DispatchEvent
	for cursor.Next(ctx) {
		var rec dispatchRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		e, err := fromDispatchRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cursor.Err()
}

func (s *Store) GetCommandResult(ctx context.Context, commandID string) (*store.CommandResult, error) {
	var rec commandRecord
	err := s.db.Collection(collCommands).FindOne(ctx, bson.M{"commandID": commandID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &store.CommandResult{CommandID: rec.CommandID, Entity: rec.Entity, At: rec.At}, nil
}

func (s *Store) PutCommandResult(ctx context.Context, result store.CommandResult) error {
	_, err := s.db.Collection(collCommands).InsertOne(ctx, commandRecord{
		CommandID: result.CommandID,
		Entity:    result.Entity,
		At:        result.At,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}
