// Package workflow is the public face of the procurement engine. It accepts
// commands, checks preconditions against the current requisition and ledger
// state, drives the state machine and reconciler inside one transaction,
// and emits domain events after commit.
//
// Writer serialization: every command takes the keyed lock of the
// requisition it touches before the keyed lock of any product ledger it
// touches, never the reverse. Commands on unrelated requisitions and
// products run fully concurrently.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hospitality-procurement-api-server/internal/ledger"
	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/requisition"
	"hospitality-procurement-api-server/internal/store"
)

// maxConflictRetries bounds internal retries when an optimistic version
// check fails. Conflict is the only error kind retried internally.
const maxConflictRetries = 3

type Service struct {
	store     store.Store
	ledger    *ledger.Ledger
	pub       Publisher
	log       *zap.Logger
	reqLocks  *keyedMutex
	prodLocks *keyedMutex
	now       func() time.Time
}

func NewService(s store.Store, l *ledger.Ledger, pub Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Service{
		store:     s,
		ledger:    l,
		pub:       pub,
		log:       log,
		reqLocks:  newKeyedMutex(),
		prodLocks: newKeyedMutex(),
		now:       time.Now,
	}
}

func newID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.New().String()[:8]))
}

type SubmitItem struct {
	ProductSKU string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
}

type SubmitCommand struct {
	CommandID    string
	Title        string
	DepartmentID string
	RequestedBy  string
	Urgency      string
	Items        []SubmitItem
}

type ApproveCommand struct {
	CommandID     string
	RequisitionID string
	ApproverID    string
	Note          string
}

type RejectCommand struct {
	CommandID     string
	RequisitionID string
	RejectorID    string
	Reason        string
}

type ConvertCommand struct {
	CommandID        string
	RequisitionID    string
	SupplierID       string
	ExpectedDelivery time.Time
	ActorID          string
}

// Submit creates the requisition and its line items atomically and moves it
// straight through DRAFT into PENDING_APPROVAL.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*models.Requisition, error) {
	urgency := cmd.Urgency
	if urgency == "" {
		urgency = models.UrgencyNormal
	}
	switch urgency {
	case models.UrgencyLow, models.UrgencyNormal, models.UrgencyHigh, models.UrgencyCritical:
	default:
		return nil, fmt.Errorf("%w: unknown urgency %q", ErrValidation, cmd.Urgency)
	}

	r := &models.Requisition{
		RequisitionID: newID("REQ"),
		Title:         cmd.Title,
		DepartmentID:  cmd.DepartmentID,
		CreatedBy:     cmd.RequestedBy,
		CreatedAt:     s.now(),
		Urgency:       urgency,
		Status:        models.StatusDraft,
	}

	var result *models.Requisition
	var replayed bool
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		if done, prev, err := s.replayedRequisition(ctx, cmd.CommandID); err != nil {
			return err
		} else if done {
			result, replayed = prev, true
			return nil
		}

		if cmd.DepartmentID == "" {
			return fmt.Errorf("%w: department is required", ErrValidation)
		}
		if _, err := s.store.GetDepartment(ctx, cmd.DepartmentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: unknown department %q", ErrValidation, cmd.DepartmentID)
			}
			return err
		}
		for _, item := range cmd.Items {
			if !item.Quantity.IsPositive() {
				return fmt.Errorf("%w: ordered quantity must be positive", ErrValidation)
			}
			if item.UnitPrice.IsNegative() {
				return fmt.Errorf("%w: unit price cannot be negative", ErrValidation)
			}
			product, err := s.store.GetProduct(ctx, item.ProductSKU)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%w: unknown product %q", ErrValidation, item.ProductSKU)
				}
				return err
			}
			r.Items = append(r.Items, models.LineItem{
				LineItemID: newID("ITEM"),
				ProductSKU: product.SKU,
				Unit:       product.Unit,
				OrderedQty: item.Quantity,
				UnitPrice:  item.UnitPrice,
			})
		}

		if err := requisition.Submit(r); err != nil {
			return err
		}
		if err := s.store.InsertRequisition(ctx, r); err != nil {
			return err
		}
		result = r
		return s.recordCommand(ctx, cmd.CommandID, r.RequisitionID)
	})
	if err != nil {
		return nil, err
	}
	if !replayed {
		s.pub.Publish(Event{
			Name:          EventRequisitionSubmitted,
			RequisitionID: result.RequisitionID,
			At:            s.now(),
		})
	}
	return result, nil
}

// Approve records the validator's approval.
func (s *Service) Approve(ctx context.Context, cmd ApproveCommand) (*models.Requisition, error) {
	return s.requisitionCommand(ctx, cmd.CommandID, cmd.RequisitionID,
		func(ctx context.Context, r *models.Requisition) ([]Event, error) {
			if err := requisition.Approve(r, cmd.ApproverID, cmd.Note, s.now()); err != nil {
				return nil, err
			}
			return []Event{{
				Name:          EventRequisitionApproved,
				RequisitionID: r.RequisitionID,
				At:            s.now(),
			}}, nil
		})
}

// Reject records a rejection with a mandatory reason. Re-rejecting an
// already rejected requisition succeeds without emitting a second event.
func (s *Service) Reject(ctx context.Context, cmd RejectCommand) (*models.Requisition, error) {
	return s.requisitionCommand(ctx, cmd.CommandID, cmd.RequisitionID,
		func(ctx context.Context, r *models.Requisition) ([]Event, error) {
			changed, err := requisition.Reject(r, cmd.RejectorID, cmd.Reason, s.now())
			if err != nil {
				return nil, err
			}
			if !changed {
				return nil, nil
			}
			return []Event{{
				Name:          EventRequisitionRejected,
				RequisitionID: r.RequisitionID,
				At:            s.now(),
				Payload:       RejectedPayload{Reason: cmd.Reason},
			}}, nil
		})
}

// ConvertToOrder assigns a supplier and expected delivery date and moves the
// requisition into the receiving branch.
func (s *Service) ConvertToOrder(ctx context.Context, cmd ConvertCommand) (*models.Requisition, error) {
	return s.requisitionCommand(ctx, cmd.CommandID, cmd.RequisitionID,
		func(ctx context.Context, r *models.Requisition) ([]Event, error) {
			// Validated after the replay check so a retried command that
			// already committed still returns its stored outcome even once
			// the delivery date has passed.
			today := s.now().Truncate(24 * time.Hour)
			if cmd.ExpectedDelivery.Before(today) {
				return nil, fmt.Errorf("%w: expected delivery date is in the past", ErrValidation)
			}
			if cmd.SupplierID == "" {
				return nil, fmt.Errorf("%w: supplier is required", ErrValidation)
			}
			if _, err := s.store.GetSupplier(ctx, cmd.SupplierID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, fmt.Errorf("%w: unknown supplier %q", ErrValidation, cmd.SupplierID)
				}
				return nil, err
			}
			if err := requisition.ConvertToOrder(r, cmd.SupplierID, cmd.ExpectedDelivery, cmd.ActorID, s.now()); err != nil {
				return nil, err
			}
			return []Event{{
				Name:          EventRequisitionConverted,
				RequisitionID: r.RequisitionID,
				At:            s.now(),
				Payload:       ConvertedPayload{SupplierID: cmd.SupplierID},
			}}, nil
		})
}

// requisitionCommand runs a single-requisition mutation under the
// requisition's writer lock, with idempotency replay and bounded retry on
// version conflicts. Events returned by fn are published after commit.
func (s *Service) requisitionCommand(ctx context.Context, commandID, requisitionID string,
	fn func(ctx context.Context, r *models.Requisition) ([]Event, error)) (*models.Requisition, error) {

	unlock := s.reqLocks.Lock(requisitionID)
	defer unlock()

	var result *models.Requisition
	var events []Event
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		result, events, err = s.tryRequisitionCommand(ctx, commandID, requisitionID, fn)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
		s.log.Warn("requisition command conflict",
			zap.String("requisition", requisitionID),
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

func (s *Service) tryRequisitionCommand(ctx context.Context, commandID, requisitionID string,
	fn func(ctx context.Context, r *models.Requisition) ([]Event, error)) (*models.Requisition, []Event, error) {

	var result *models.Requisition
	var events []Event
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		if done, prev, err := s.replayedRequisition(ctx, commandID); err != nil {
			return err
		} else if done {
			result, events = prev, nil
			return nil
		}

		r, err := s.store.GetRequisition(ctx, requisitionID)
		if err != nil {
			return err
		}
		version := r.Version
		evts, err := fn(ctx, r)
		if err != nil {
			return err
		}
		if err := s.store.UpdateRequisition(ctx, r, version); err != nil {
			return err
		}
		if err := s.recordCommand(ctx, commandID, r.RequisitionID); err != nil {
			return err
		}
		result, events = r, evts
		return nil
	})
	return result, events, err
}

// replayedRequisition answers an already-executed command from its stored
// outcome: at-most-once effect per command id.
func (s *Service) replayedRequisition(ctx context.Context, commandID string) (bool, *models.Requisition, error) {
	if commandID == "" {
		return false, nil, nil
	}
	res, err := s.store.GetCommandResult(ctx, commandID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	r, err := s.store.GetRequisition(ctx, res.Entity)
	if err != nil {
		return false, nil, err
	}
	return true, r, nil
}

func (s *Service) recordCommand(ctx context.Context, commandID, entity string) error {
	if commandID == "" {
		return nil
	}
	return s.store.PutCommandResult(ctx, store.CommandResult{
		CommandID: commandID,
		Entity:    entity,
		At:        s.now(),
	})
}
