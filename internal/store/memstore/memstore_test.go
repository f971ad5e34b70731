package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"
)

func TestAtomicallyRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InsertRequisition(ctx, &models.Requisition{
		RequisitionID: "REQ-1", Status: models.StatusProcessing,
	}))

	boom := errors.New("boom")
	err := s.Atomically(ctx, func(ctx context.Context) error {
		r, err := s.GetRequisition(ctx, "REQ-1")
		require.NoError(t, err)
		r.Status = models.StatusCompleted
		require.NoError(t, s.UpdateRequisition(ctx, r, 0))
		require.NoError(t, s.AppendMovement(ctx, &models.StockMovement{
			MovementID: "MOV-1", ProductSKU: "TOMATO",
			Kind: models.MovementReceipt, QtyDelta: decimal.NewFromInt(5),
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Every mutation inside the failed transaction is gone.
	r, err := s.GetRequisition(ctx, "REQ-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusProcessing, r.Status)
	require.Equal(t, int64(0), r.Version)

	movements, err := s.ListMovements(ctx, "TOMATO")
	require.NoError(t, err)
	require.Empty(t, movements)
}

func TestUpdateRequisitionVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InsertRequisition(ctx, &models.Requisition{RequisitionID: "REQ-1"}))

	r, err := s.GetRequisition(ctx, "REQ-1")
	require.NoError(t, err)
	require.NoError(t, s.UpdateRequisition(ctx, r, 0))
	require.Equal(t, int64(1), r.Version)

	// A writer holding the old version loses.
	stale := &models.Requisition{RequisitionID: "REQ-1"}
	require.ErrorIs(t, s.UpdateRequisition(ctx, stale, 0), store.ErrConflict)

	require.ErrorIs(t, s.UpdateRequisition(ctx, &models.Requisition{RequisitionID: "REQ-MISSING"}, 0), store.ErrNotFound)
}

func TestGetRequisitionReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InsertRequisition(ctx, &models.Requisition{
		RequisitionID: "REQ-1",
		Items: []models.LineItem{
			{LineItemID: "ITEM-1", OrderedQty: decimal.NewFromInt(10)},
		},
	}))

	r, err := s.GetRequisition(ctx, "REQ-1")
	require.NoError(t, err)
	r.Items[0].ReceivedQty = decimal.NewFromInt(10)

	fresh, err := s.GetRequisition(ctx, "REQ-1")
	require.NoError(t, err)
	require.True(t, fresh.Items[0].ReceivedQty.IsZero())
}
