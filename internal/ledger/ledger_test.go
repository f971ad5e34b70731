package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store/memstore"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLedger() (*Ledger, *memstore.Store) {
	st := memstore.New()
	return New(st, zap.NewNop()), st
}

func TestAppendAssignsSequencePerProduct(t *testing.T) {
	ctx := context.Background()
	l, st := newTestLedger()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Append(ctx, &models.StockMovement{
			MovementID: "MOV-A" + string(rune('1'+i)),
			ProductSKU: "TOMATO",
			Kind:       models.MovementReceipt,
			QtyDelta:   dec("5"),
		}))
	}
	require.NoError(t, l.Append(ctx, &models.StockMovement{
		MovementID: "MOV-B1",
		ProductSKU: "OLIVE-OIL",
		Kind:       models.MovementReceipt,
		QtyDelta:   dec("2"),
	}))

	movements, err := st.ListMovements(ctx, "TOMATO")
	require.NoError(t, err)
	require.Len(t, movements, 3)
	for i, m := range movements {
		require.Equal(t, int64(i+1), m.Seq)
	}

	other, err := st.ListMovements(ctx, "OLIVE-OIL")
	require.NoError(t, err)
	require.Equal(t, int64(1), other[0].Seq)
}

func TestAppendUpdatesOnHand(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger()

	require.NoError(t, l.Append(ctx, &models.StockMovement{
		MovementID: "MOV-1", ProductSKU: "TOMATO", Kind: models.MovementReceipt, QtyDelta: dec("30"),
	}))
	require.NoError(t, l.Append(ctx, &models.StockMovement{
		MovementID: "MOV-2", ProductSKU: "TOMATO", Kind: models.MovementDispatch, QtyDelta: dec("-12.5"),
	}))

	level, err := l.OnHand(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.Equal(dec("17.5")))
}

func TestAppendRejectsMalformedMovements(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger()

	cases := []models.StockMovement{
		{MovementID: "M1", Kind: models.MovementReceipt, QtyDelta: dec("1")},
		{MovementID: "M2", ProductSKU: "TOMATO", Kind: models.MovementReceipt, QtyDelta: decimal.Zero},
		{MovementID: "M3", ProductSKU: "TOMATO", Kind: models.MovementReceipt, QtyDelta: dec("-1")},
		{MovementID: "M4", ProductSKU: "TOMATO", Kind: models.MovementDispatch, QtyDelta: dec("1")},
		{MovementID: "M5", ProductSKU: "TOMATO", Kind: "TRANSMUTATION", QtyDelta: dec("1")},
	}
	for _, m := range cases {
		m := m
		require.ErrorIs(t, l.Append(ctx, &m), ErrMalformedMovement, m.MovementID)
	}
}

func TestReplayMatchesCache(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger()

	deltas := []struct {
		kind  string
		delta string
	}{
		{models.MovementReceipt, "100"},
		{models.MovementDispatch, "-40"},
		{models.MovementAdjustment, "-0.75"},
		{models.MovementReceipt, "10.25"},
	}
	for i, d := range deltas {
		require.NoError(t, l.Append(ctx, &models.StockMovement{
			MovementID: "MOV-" + string(rune('1'+i)),
			ProductSKU: "TOMATO",
			Kind:       d.kind,
			QtyDelta:   dec(d.delta),
		}))
	}

	replayed, err := l.Replay(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, replayed.Equal(dec("69.5")))

	level, err := l.OnHand(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.Equal(replayed))

	drifts, err := l.Verify(ctx)
	require.NoError(t, err)
	require.Empty(t, drifts)
}

func TestVerifyDetectsDrift(t *testing.T) {
	ctx := context.Background()
	l, st := newTestLedger()

	require.NoError(t, l.Append(ctx, &models.StockMovement{
		MovementID: "MOV-1", ProductSKU: "TOMATO", Kind: models.MovementReceipt, QtyDelta: dec("10"),
	}))

	// Corrupt the cache behind the ledger's back.
	require.NoError(t, st.ApplyStockDelta(ctx, "TOMATO", dec("3"), 99))

	drifts, err := l.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	require.Equal(t, "TOMATO", drifts[0].ProductSKU)
	require.True(t, drifts[0].Cached.Equal(dec("13")))
	require.True(t, drifts[0].Replayed.Equal(dec("10")))
}

func TestCorrectionAdjustmentCompensates(t *testing.T) {
	ctx := context.Background()
	l, st := newTestLedger()

	require.NoError(t, l.Append(ctx, &models.StockMovement{
		MovementID: "MOV-1", ProductSKU: "TOMATO", Kind: models.MovementReceipt, QtyDelta: dec("50"),
	}))
	require.NoError(t, l.Append(ctx, &models.StockMovement{
		MovementID: "ADJ-1",
		ProductSKU: "TOMATO",
		Kind:       models.MovementAdjustment,
		QtyDelta:   dec("-5"),
		Reason:     models.ReasonCorrection,
		CorrectsID: "MOV-1",
	}))

	// History is append-only: the original movement is untouched.
	movements, err := st.ListMovements(ctx, "TOMATO")
	require.NoError(t, err)
	require.Len(t, movements, 2)
	require.True(t, movements[0].QtyDelta.Equal(dec("50")))
	require.Equal(t, "MOV-1", movements[1].CorrectsID)

	level, err := l.OnHand(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.Equal(dec("45")))
}
