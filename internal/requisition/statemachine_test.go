package requisition

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"hospitality-procurement-api-server/internal/models"
)

func pendingRequisition() *models.Requisition {
	return &models.Requisition{
		RequisitionID: "REQ-TEST",
		DepartmentID:  "DEP-KITCHEN",
		CreatedBy:     "USR-1",
		Status:        models.StatusPendingApproval,
		Items: []models.LineItem{
			{LineItemID: "ITEM-1", ProductSKU: "TOMATO", OrderedQty: decimal.NewFromInt(50)},
		},
	}
}

func TestSubmit(t *testing.T) {
	t.Run("draft with valid items moves to pending approval", func(t *testing.T) {
		r := pendingRequisition()
		r.Status = models.StatusDraft
		require.NoError(t, Submit(r))
		require.Equal(t, models.StatusPendingApproval, r.Status)
	})

	t.Run("no line items", func(t *testing.T) {
		r := pendingRequisition()
		r.Status = models.StatusDraft
		r.Items = nil
		err := Submit(r)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("zero ordered quantity", func(t *testing.T) {
		r := pendingRequisition()
		r.Status = models.StatusDraft
		r.Items[0].OrderedQty = decimal.Zero
		err := Submit(r)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("non-draft state", func(t *testing.T) {
		r := pendingRequisition()
		require.ErrorIs(t, Submit(r), ErrInvalidTransition)
	})
}

func TestApprove(t *testing.T) {
	now := time.Now()

	t.Run("pending moves to approved", func(t *testing.T) {
		r := pendingRequisition()
		require.NoError(t, Approve(r, "USR-VAL", "looks fine", now))
		require.Equal(t, models.StatusApproved, r.Status)
		require.NotNil(t, r.Approval)
		require.Equal(t, "USR-VAL", r.Approval.ApprovedBy)
	})

	t.Run("already approved", func(t *testing.T) {
		r := pendingRequisition()
		r.Status = models.StatusApproved
		require.ErrorIs(t, Approve(r, "USR-VAL", "", now), ErrInvalidTransition)
	})

	t.Run("rejected is a sink", func(t *testing.T) {
		r := pendingRequisition()
		r.Status = models.StatusRejected
		require.ErrorIs(t, Approve(r, "USR-VAL", "", now), ErrInvalidTransition)
	})
}

func TestReject(t *testing.T) {
	now := time.Now()

	t.Run("pending moves to rejected", func(t *testing.T) {
		r := pendingRequisition()
		changed, err := Reject(r, "USR-VAL", "over budget", now)
		require.NoError(t, err)
		require.True(t, changed)
		require.Equal(t, models.StatusRejected, r.Status)
		require.Equal(t, "over budget", r.Rejection.Reason)
	})

	t.Run("empty reason", func(t *testing.T) {
		r := pendingRequisition()
		_, err := Reject(r, "USR-VAL", "   ", now)
		require.ErrorIs(t, err, ErrValidation)
		require.Equal(t, models.StatusPendingApproval, r.Status)
	})

	t.Run("re-reject is a no-op success", func(t *testing.T) {
		r := pendingRequisition()
		_, err := Reject(r, "USR-VAL", "over budget", now)
		require.NoError(t, err)

		changed, err := Reject(r, "USR-VAL", "over budget", now)
		require.NoError(t, err)
		require.False(t, changed)
	})

	t.Run("approved cannot be rejected", func(t *testing.T) {
		r := pendingRequisition()
		r.Status = models.StatusApproved
		_, err := Reject(r, "USR-VAL", "too late", now)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestConvertToOrder(t *testing.T) {
	now := time.Now()
	delivery := now.Add(7 * 24 * time.Hour)

	t.Run("approved moves to processing", func(t *testing.T) {
		r := pendingRequisition()
		r.Status = models.StatusApproved
		require.NoError(t, ConvertToOrder(r, "SUP-METRO", delivery, "USR-PUR", now))
		require.Equal(t, models.StatusProcessing, r.Status)
		require.Equal(t, "SUP-METRO", r.PurchaseOrder.SupplierID)
	})

	t.Run("missing supplier", func(t *testing.T) {
		r := pendingRequisition()
		r.Status = models.StatusApproved
		err := ConvertToOrder(r, "", delivery, "USR-PUR", now)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("pending cannot convert", func(t *testing.T) {
		r := pendingRequisition()
		err := ConvertToOrder(r, "SUP-METRO", delivery, "USR-PUR", now)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestCanReceive(t *testing.T) {
	for _, tc := range []struct {
		status string
		ok     bool
	}{
		{models.StatusProcessing, true},
		{models.StatusPartiallyReceived, true},
		{models.StatusCompleted, true},
		{models.StatusDraft, false},
		{models.StatusPendingApproval, false},
		{models.StatusApproved, false},
		{models.StatusRejected, false},
	} {
		r := pendingRequisition()
		r.Status = tc.status
		err := CanReceive(r)
		if tc.ok {
			require.NoError(t, err, tc.status)
		} else {
			require.True(t, errors.Is(err, ErrInvalidTransition), tc.status)
		}
	}
}

func TestRecomputeFulfillment(t *testing.T) {
	r := pendingRequisition()
	r.Status = models.StatusProcessing
	r.Items = []models.LineItem{
		{LineItemID: "ITEM-1", OrderedQty: decimal.NewFromInt(100)},
		{LineItemID: "ITEM-2", OrderedQty: decimal.NewFromInt(20)},
	}

	RecomputeFulfillment(r)
	require.Equal(t, models.StatusProcessing, r.Status)

	r.Items[0].ReceivedQty = decimal.NewFromInt(40)
	RecomputeFulfillment(r)
	require.Equal(t, models.StatusPartiallyReceived, r.Status)

	r.Items[0].ReceivedQty = decimal.NewFromInt(100)
	r.Items[1].ReceivedQty = decimal.NewFromInt(20)
	RecomputeFulfillment(r)
	require.Equal(t, models.StatusCompleted, r.Status)
}

func TestIsTerminal(t *testing.T) {
	require.True(t, IsTerminal(models.StatusRejected))
	require.True(t, IsTerminal(models.StatusCompleted))
	require.False(t, IsTerminal(models.StatusProcessing))
	require.False(t, IsTerminal(models.StatusPendingApproval))
}
