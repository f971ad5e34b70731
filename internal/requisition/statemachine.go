// Package requisition owns the requisition lifecycle: which states exist,
// which transitions are legal, and the guards each transition enforces.
// Transition functions mutate the requisition only when every guard passes.
package requisition

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/reconcile"
)

var (
	// ErrInvalidTransition means the command is not legal for the
	// requisition's current state. The requisition is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrValidation means a guard rejected the command's input.
	ErrValidation = errors.New("validation error")
)

// IsTerminal reports whether status is a sink state.
func IsTerminal(status string) bool {
	return status == models.StatusRejected || status == models.StatusCompleted
}

// Submit moves a draft to PENDING_APPROVAL. It requires the originating
// department and creator to be set and at least one line item with a
// positive ordered quantity.
func Submit(r *models.Requisition) error {
	if r.Status != models.StatusDraft {
		return ErrInvalidTransition
	}
	if r.DepartmentID == "" {
		return fmt.Errorf("%w: department is required", ErrValidation)
	}
	if r.CreatedBy == "" {
		return fmt.Errorf("%w: requester is required", ErrValidation)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: at least one line item is required", ErrValidation)
	}
	for _, item := range r.Items {
		if !item.OrderedQty.IsPositive() {
			return fmt.Errorf("%w: ordered quantity must be positive", ErrValidation)
		}
	}
	r.Status = models.StatusPendingApproval
	return nil
}

// Approve records the validator's decision on a pending requisition.
func Approve(r *models.Requisition, approverID, note string, at time.Time) error {
	if approverID == "" {
		return fmt.Errorf("%w: approver is required", ErrValidation)
	}
	if r.Status != models.StatusPendingApproval {
		return ErrInvalidTransition
	}
	r.Status = models.StatusApproved
	r.Approval = &models.ApprovalInfo{
		ApprovedBy: approverID,
		ApprovedAt: at,
		Note:       note,
	}
	return nil
}

// Reject moves a pending requisition to the terminal REJECTED state. A
// non-empty reason is mandatory. Rejecting an already-rejected requisition
// is a no-op success so that retried client requests do not fail; the
// returned bool reports whether the state actually changed.
func Reject(r *models.Requisition, rejectorID, reason string, at time.Time) (bool, error) {
	if strings.TrimSpace(reason) == "" {
		return false, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}
	if r.Status == models.StatusRejected {
		return false, nil
	}
	if r.Status != models.StatusPendingApproval {
		return false, ErrInvalidTransition
	}
	r.Status = models.StatusRejected
	r.Rejection = &models.RejectionInfo{
		RejectedBy: rejectorID,
		RejectedAt: at,
		Reason:     reason,
	}
	return true, nil
}

// ConvertToOrder turns an approved requisition into a supplier purchase
// order and starts the receiving branch of the lifecycle.
func ConvertToOrder(r *models.Requisition, supplierID string, expectedDelivery time.Time, actorID string, at time.Time) error {
	if supplierID == "" {
		return fmt.Errorf("%w: supplier is required", ErrValidation)
	}
	if r.Status != models.StatusApproved {
		return ErrInvalidTransition
	}
	r.Status = models.StatusProcessing
	r.PurchaseOrder = &models.PurchaseOrderInfo{
		SupplierID:       supplierID,
		ExpectedDelivery: expectedDelivery,
		ConvertedBy:      actorID,
		ConvertedAt:      at,
	}
	return nil
}

// CanReceive reports whether goods may be recorded against the requisition
// in its current state. COMPLETED passes the state guard so that a surplus
// delivery surfaces as an over-receipt on the line item rather than a
// transition error; there is never remaining quantity to absorb it.
func CanReceive(r *models.Requisition) error {
	switch r.Status {
	case models.StatusProcessing, models.StatusPartiallyReceived, models.StatusCompleted:
		return nil
	}
	return ErrInvalidTransition
}

// RecomputeFulfillment reclassifies the requisition after a receipt. Once
// receiving has begun there is no path back to PROCESSING: the requisition
// stays on the partial/complete branch until every line is fully received.
func RecomputeFulfillment(r *models.Requisition) {
	switch reconcile.Classify(r.Items) {
	case reconcile.FulfillmentComplete:
		r.Status = models.StatusCompleted
	case reconcile.FulfillmentPartial:
		r.Status = models.StatusPartiallyReceived
	default:
		r.Status = models.StatusProcessing
	}
}
