package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"hospitality-procurement-api-server/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyReceipt(t *testing.T) {
	t.Run("partial receipts accumulate", func(t *testing.T) {
		item := models.LineItem{LineItemID: "ITEM-1", OrderedQty: dec("100")}

		require.NoError(t, ApplyReceipt(&item, dec("40")))
		require.True(t, item.ReceivedQty.Equal(dec("40")))

		require.NoError(t, ApplyReceipt(&item, dec("60")))
		require.True(t, item.ReceivedQty.Equal(dec("100")))
	})

	t.Run("over receipt is rejected, not clamped", func(t *testing.T) {
		item := models.LineItem{LineItemID: "ITEM-1", OrderedQty: dec("100"), ReceivedQty: dec("40")}

		err := ApplyReceipt(&item, dec("61"))
		require.ErrorIs(t, err, ErrOverReceipt)
		require.True(t, item.ReceivedQty.Equal(dec("40")))
	})

	t.Run("fractional quantities compare exactly", func(t *testing.T) {
		item := models.LineItem{LineItemID: "ITEM-1", OrderedQty: dec("0.3")}

		require.NoError(t, ApplyReceipt(&item, dec("0.1")))
		require.NoError(t, ApplyReceipt(&item, dec("0.2")))
		require.True(t, item.ReceivedQty.Equal(dec("0.3")))
		require.ErrorIs(t, ApplyReceipt(&item, dec("0.1")), ErrOverReceipt)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		item := models.LineItem{LineItemID: "ITEM-1", OrderedQty: dec("10")}
		require.ErrorIs(t, ApplyReceipt(&item, decimal.Zero), ErrQuantity)
		require.ErrorIs(t, ApplyReceipt(&item, dec("-1")), ErrQuantity)
	})
}

func TestCheckDispatch(t *testing.T) {
	t.Run("within on-hand returns negative delta", func(t *testing.T) {
		delta, err := CheckDispatch(dec("50"), dec("50"))
		require.NoError(t, err)
		require.True(t, delta.Equal(dec("-50")))
	})

	t.Run("exceeding on-hand", func(t *testing.T) {
		_, err := CheckDispatch(dec("50"), dec("50.001"))
		require.ErrorIs(t, err, ErrInsufficientStock)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := CheckDispatch(dec("50"), decimal.Zero)
		require.ErrorIs(t, err, ErrQuantity)
	})
}

func TestAllocateDispatch(t *testing.T) {
	t.Run("fills oldest lines first up to received", func(t *testing.T) {
		a := &models.LineItem{LineItemID: "A", OrderedQty: dec("50"), ReceivedQty: dec("30")}
		b := &models.LineItem{LineItemID: "B", OrderedQty: dec("40"), ReceivedQty: dec("40")}

		remaining := AllocateDispatch([]*models.LineItem{a, b}, dec("50"))
		require.True(t, remaining.IsZero())
		require.True(t, a.DispatchedQty.Equal(dec("30")))
		require.True(t, b.DispatchedQty.Equal(dec("20")))
	})

	t.Run("remainder survives when lines are exhausted", func(t *testing.T) {
		a := &models.LineItem{LineItemID: "A", OrderedQty: dec("10"), ReceivedQty: dec("10")}

		remaining := AllocateDispatch([]*models.LineItem{a}, dec("15"))
		require.True(t, remaining.Equal(dec("5")))
		require.True(t, a.DispatchedQty.Equal(dec("10")))
	})

	t.Run("skips fully dispatched lines", func(t *testing.T) {
		a := &models.LineItem{LineItemID: "A", OrderedQty: dec("10"), ReceivedQty: dec("10"), DispatchedQty: dec("10")}
		b := &models.LineItem{LineItemID: "B", OrderedQty: dec("10"), ReceivedQty: dec("10")}

		remaining := AllocateDispatch([]*models.LineItem{a, b}, dec("10"))
		require.True(t, remaining.IsZero())
		require.True(t, a.DispatchedQty.Equal(dec("10")))
		require.True(t, b.DispatchedQty.Equal(dec("10")))
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		items []models.LineItem
		want  string
	}{
		{
			name:  "no items",
			items: nil,
			want:  FulfillmentNone,
		},
		{
			name: "nothing received",
			items: []models.LineItem{
				{OrderedQty: dec("10")},
			},
			want: FulfillmentNone,
		},
		{
			name: "one line partially received",
			items: []models.LineItem{
				{OrderedQty: dec("10"), ReceivedQty: dec("4")},
			},
			want: FulfillmentPartial,
		},
		{
			name: "one line full, one untouched",
			items: []models.LineItem{
				{OrderedQty: dec("10"), ReceivedQty: dec("10")},
				{OrderedQty: dec("5")},
			},
			want: FulfillmentPartial,
		},
		{
			name: "all lines exactly full",
			items: []models.LineItem{
				{OrderedQty: dec("10"), ReceivedQty: dec("10")},
				{OrderedQty: dec("0.5"), ReceivedQty: dec("0.5")},
			},
			want: FulfillmentComplete,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.items))
		})
	}
}

func TestCheckInvariants(t *testing.T) {
	good := []models.LineItem{
		{LineItemID: "A", OrderedQty: dec("10"), ReceivedQty: dec("8"), DispatchedQty: dec("3")},
	}
	require.NoError(t, CheckInvariants(good))

	bad := []models.LineItem{
		{LineItemID: "B", OrderedQty: dec("10"), ReceivedQty: dec("8"), DispatchedQty: dec("9")},
	}
	require.Error(t, CheckInvariants(bad))
}
