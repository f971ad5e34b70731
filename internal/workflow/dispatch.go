package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/reconcile"
	"hospitality-procurement-api-server/internal/store"
)

type DispatchCommand struct {
	CommandID    string
	ProductSKU   string
	Quantity     decimal.Decimal
	DepartmentID string
	ActorID      string
	Note         string
}

type AdjustCommand struct {
	CommandID  string
	ProductSKU string
	QtyDelta   decimal.Decimal
	Reason     string
	CorrectsID string
	ActorID    string
}

// Dispatch sends stock from the shared warehouse pool to a department. The
// guard is the product's on-hand total, not any single requisition; the
// dispatched quantity is afterwards attributed to line items of the product
// oldest requisition first, so per-line dispatched counters stay bounded by
// what each line received.
func (s *Service) Dispatch(ctx context.Context, cmd DispatchCommand) (*models.DispatchEvent, error) {
	if !cmd.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: dispatch quantity must be positive", ErrValidation)
	}

	// Candidate requisitions for attribution are locked before the
	// product, in id order, to honor the requisition-before-product lock
	// ordering shared with RecordReceipt.
	candidates, err := s.store.ListRequisitionsByProduct(ctx, cmd.ProductSKU)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(candidates))
	for _, r := range candidates {
		ids = append(ids, r.RequisitionID)
	}
	sort.Strings(ids)
	unlockReqs := s.reqLocks.LockAll(ids)
	defer unlockReqs()
	unlockProd := s.prodLocks.Lock(cmd.ProductSKU)
	defer unlockProd()

	var result *models.DispatchEvent
	var events []Event
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		result, events, err = s.tryDispatch(ctx, cmd, ids)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		s.pub.Publish(e)
	}
	return result, nil
}

func (s *Service) tryDispatch(ctx context.Context, cmd DispatchCommand, lockedIDs []string) (*models.DispatchEvent, []Event, error) {
	var result *models.DispatchEvent
	var events []Event
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		if done, prev, err := s.replayedDispatch(ctx, cmd); err != nil {
			return err
		} else if done {
			result, events = prev, nil
			return nil
		}

		if _, err := s.store.GetProduct(ctx, cmd.ProductSKU); err != nil {
			return err
		}
		if _, err := s.store.GetDepartment(ctx, cmd.DepartmentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: unknown department %q", ErrValidation, cmd.DepartmentID)
			}
			return err
		}

		level, err := s.ledger.OnHand(ctx, cmd.ProductSKU)
		if err != nil {
			return err
		}
		delta, err := reconcile.CheckDispatch(level.OnHand, cmd.Quantity)
		if err != nil {
			return err
		}

		if err := s.attributeDispatch(ctx, cmd, lockedIDs); err != nil {
			return err
		}

		event := &models.DispatchEvent{
			DispatchID:   newID("DSP"),
			ProductSKU:   cmd.ProductSKU,
			Quantity:     cmd.Quantity,
			DepartmentID: cmd.DepartmentID,
			RequestedBy:  cmd.ActorID,
			Note:         cmd.Note,
			CreatedAt:    s.now(),
		}
		if err := s.store.InsertDispatch(ctx, event); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, &models.StockMovement{
			MovementID: newID("MOV"),
			ProductSKU: cmd.ProductSKU,
			Kind:       models.MovementDispatch,
			QtyDelta:   delta,
			Reference:  event.DispatchID,
			ActorID:    cmd.ActorID,
			CreatedAt:  s.now(),
		}); err != nil {
			return err
		}
		if err := s.recordCommand(ctx, cmd.CommandID, event.DispatchID); err != nil {
			return err
		}

		result = event
		events = []Event{{
			Name: EventStockDispatched,
			At:   s.now(),
			Payload: StockDispatchedPayload{
				ProductSKU:   cmd.ProductSKU,
				Quantity:     cmd.Quantity,
				DepartmentID: cmd.DepartmentID,
			},
		}}
		return nil
	})
	return result, events, err
}

// attributeDispatch walks the locked requisitions oldest first and fills
// their line items' dispatched counters. Stock that entered the pool via
// adjustments has no line to attribute, so a remainder is fine.
func (s *Service) attributeDispatch(ctx context.Context, cmd DispatchCommand, lockedIDs []string) error {
	var reqs []*models.Requisition
	for _, id := range lockedIDs {
		r, err := s.store.GetRequisition(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}
		reqs = append(reqs, r)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })

	var items []*models.LineItem
	for _, r := range reqs {
		for i := range r.Items {
			if r.Items[i].ProductSKU == cmd.ProductSKU {
				items = append(items, &r.Items[i])
			}
		}
	}

	remaining := reconcile.AllocateDispatch(items, cmd.Quantity)
	if remaining.IsPositive() && len(items) > 0 {
		s.log.Debug("dispatch not fully attributable to line items")
	}

	for _, r := range reqs {
		if err := s.store.UpdateRequisition(ctx, r, r.Version); err != nil {
			return err
		}
	}
	return nil
}

// replayedDispatch answers an already-executed dispatch command from its
// stored outcome.
func (s *Service) replayedDispatch(ctx context.Context, cmd DispatchCommand) (bool, *models.DispatchEvent, error) {
	if cmd.CommandID == "" {
		return false, nil, nil
	}
	res, err := s.store.GetCommandResult(ctx, cmd.CommandID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	dispatches, err := s.store.ListDispatches(ctx, cmd.ProductSKU)
	if err != nil {
		return false, nil, err
	}
	for i := range dispatches {
		if dispatches[i].DispatchID == res.Entity {
			return true, &dispatches[i], nil
		}
	}
	return false, nil, fmt.Errorf("%w: dispatch %q", store.ErrNotFound, res.Entity)
}

// replayedAdjustment answers an already-executed adjustment command from the
// movement it appended.
func (s *Service) replayedAdjustment(ctx context.Context, cmd AdjustCommand) (bool, *models.StockMovement, error) {
	if cmd.CommandID == "" {
		return false, nil, nil
	}
	res, err := s.store.GetCommandResult(ctx, cmd.CommandID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	movements, err := s.store.ListMovements(ctx, cmd.ProductSKU)
	if err != nil {
		return false, nil, err
	}
	for i := range movements {
		if movements[i].MovementID == res.Entity {
			return true, &movements[i], nil
		}
	}
	return false, nil, fmt.Errorf("%w: movement %q", store.ErrNotFound, res.Entity)
}

// Adjust appends a compensating movement to the product ledger. Corrections
// reference the movement being corrected and never rewrite history.
func (s *Service) Adjust(ctx context.Context, cmd AdjustCommand) (*models.StockMovement, error) {
	if cmd.QtyDelta.IsZero() {
		return nil, fmt.Errorf("%w: adjustment delta cannot be zero", ErrValidation)
	}
	if cmd.Reason == "" {
		return nil, fmt.Errorf("%w: adjustment reason is required", ErrValidation)
	}

	unlock := s.prodLocks.Lock(cmd.ProductSKU)
	defer unlock()

	var movement *models.StockMovement
	var replayed bool
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		if done, prev, err := s.replayedAdjustment(ctx, cmd); err != nil {
			return err
		} else if done {
			movement, replayed = prev, true
			return nil
		}

		if _, err := s.store.GetProduct(ctx, cmd.ProductSKU); err != nil {
			return err
		}
		level, err := s.ledger.OnHand(ctx, cmd.ProductSKU)
		if err != nil {
			return err
		}
		if cmd.QtyDelta.IsNegative() && level.OnHand.Add(cmd.QtyDelta).IsNegative() {
			return fmt.Errorf("%w: adjustment would make on-hand negative", ErrInsufficientStock)
		}

		movement = &models.StockMovement{
			MovementID: newID("ADJ"),
			ProductSKU: cmd.ProductSKU,
			Kind:       models.MovementAdjustment,
			QtyDelta:   cmd.QtyDelta,
			Reason:     cmd.Reason,
			CorrectsID: cmd.CorrectsID,
			ActorID:    cmd.ActorID,
			CreatedAt:  s.now(),
		}
		if err := s.ledger.Append(ctx, movement); err != nil {
			return err
		}
		return s.recordCommand(ctx, cmd.CommandID, movement.MovementID)
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		return movement, nil
	}
	s.pub.Publish(Event{
		Name: EventStockAdjusted,
		At:   s.now(),
		Payload: StockAdjustedPayload{
			ProductSKU: cmd.ProductSKU,
			QtyDelta:   cmd.QtyDelta,
			Reason:     cmd.Reason,
		},
	})
	return movement, nil
}
