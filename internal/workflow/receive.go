package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/reconcile"
	"hospitality-procurement-api-server/internal/requisition"
	"hospitality-procurement-api-server/internal/store"
)

type ReceiptCommand struct {
	CommandID     string
	RequisitionID string
	LineItemID    string
	Quantity      decimal.Decimal
	Reference     string
	ActorID       string
}

// RecordReceipt books a (possibly partial) delivery against one line item:
// it appends a receipt event, increments the received counter, pushes the
// quantity into the product ledger, and reclassifies the requisition.
// Excess quantity fails with OverReceipt; nothing is clamped.
func (s *Service) RecordReceipt(ctx context.Context, cmd ReceiptCommand) (*models.Requisition, error) {
	if !cmd.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: received quantity must be positive", ErrValidation)
	}

	unlockReq := s.reqLocks.Lock(cmd.RequisitionID)
	defer unlockReq()

	// The product lock must be taken before entering the transaction, and
	// the product is only known from the line item. The read is safe: we
	// hold the requisition's writer lock.
	current, err := s.store.GetRequisition(ctx, cmd.RequisitionID)
	if err != nil {
		return nil, err
	}
	item := current.Item(cmd.LineItemID)
	if item == nil {
		return nil, fmt.Errorf("%w: line item %q", ErrNotFound, cmd.LineItemID)
	}
	unlockProd := s.prodLocks.Lock(item.ProductSKU)
	defer unlockProd()

	var result *models.Requisition
	var events []Event
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		result, events, err = s.tryRecordReceipt(ctx, cmd)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
		s.log.Warn("receipt conflict",
			zap.String("requisition", cmd.RequisitionID),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		s.pub.Publish(e)
	}
	return result, nil
}

func (s *Service) tryRecordReceipt(ctx context.Context, cmd ReceiptCommand) (*models.Requisition, []Event, error) {
	var result *models.Requisition
	var events []Event
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		if done, prev, err := s.replayedRequisition(ctx, cmd.CommandID); err != nil {
			return err
		} else if done {
			result, events = prev, nil
			return nil
		}

		r, err := s.store.GetRequisition(ctx, cmd.RequisitionID)
		if err != nil {
			return err
		}
		if err := requisition.CanReceive(r); err != nil {
			return err
		}
		item := r.Item(cmd.LineItemID)
		if item == nil {
			return fmt.Errorf("%w: line item %q", ErrNotFound, cmd.LineItemID)
		}
		version := r.Version

		if err := reconcile.ApplyReceipt(item, cmd.Quantity); err != nil {
			return err
		}
		requisition.RecomputeFulfillment(r)

		if err := s.store.UpdateRequisition(ctx, r, version); err != nil {
			return err
		}

		receipt := &models.ReceiptEvent{
			ReceiptID:     newID("RCPT"),
			RequisitionID: r.RequisitionID,
			LineItemID:    item.LineItemID,
			ProductSKU:    item.ProductSKU,
			Quantity:      cmd.Quantity,
			Unit:          item.Unit,
			Reference:     cmd.Reference,
			RecordedBy:    cmd.ActorID,
			RecordedAt:    s.now(),
		}
		if err := s.store.InsertReceipt(ctx, receipt); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, &models.StockMovement{
			MovementID: newID("MOV"),
			ProductSKU: item.ProductSKU,
			Kind:       models.MovementReceipt,
			QtyDelta:   cmd.Quantity,
			Reference:  receipt.ReceiptID,
			ActorID:    cmd.ActorID,
			CreatedAt:  s.now(),
		}); err != nil {
			return err
		}
		if err := s.recordCommand(ctx, cmd.CommandID, r.RequisitionID); err != nil {
			return err
		}

		result = r
		events = []Event{{
			Name:          EventGoodsReceived,
			RequisitionID: r.RequisitionID,
			At:            s.now(),
			Payload: GoodsReceivedPayload{
				LineItemID:     item.LineItemID,
				Quantity:       cmd.Quantity,
				IsFinalReceipt: item.ReceivedQty.Equal(item.OrderedQty),
			},
		}}
		return nil
	})
	return result, events, err
}
