package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospitality-procurement-api-server/internal/ledger"
	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store/memstore"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *capturePublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *capturePublisher) named(name string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *memstore.Store, *capturePublisher) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()

	for _, p := range []models.Product{
		{SKU: "TOMATO", Name: "Roma Tomato", Unit: "kg"},
		{SKU: "OLIVE-OIL", Name: "Olive Oil", Unit: "l"},
	} {
		p := p
		require.NoError(t, st.CreateProduct(ctx, &p))
	}
	for _, d := range []models.Department{
		{DepartmentID: "DEP-KITCHEN", Name: "Main Kitchen"},
		{DepartmentID: "DEP-BAR", Name: "Lobby Bar"},
	} {
		d := d
		require.NoError(t, st.CreateDepartment(ctx, &d))
	}
	require.NoError(t, st.CreateSupplier(ctx, &models.Supplier{SupplierID: "SUP-METRO", Name: "Metro Wholesale"}))

	pub := &capturePublisher{}
	svc := NewService(st, ledger.New(st, zap.NewNop()), pub, zap.NewNop())
	return svc, st, pub
}

func submitTomatoes(t *testing.T, svc *Service, qty string) *models.Requisition {
	t.Helper()
	r, err := svc.Submit(context.Background(), SubmitCommand{
		Title:        "Weekly produce",
		DepartmentID: "DEP-KITCHEN",
		RequestedBy:  "USR-STAFF",
		Items: []SubmitItem{
			{ProductSKU: "TOMATO", Quantity: dec(qty), UnitPrice: dec("2.40")},
		},
	})
	require.NoError(t, err)
	return r
}

func toProcessing(t *testing.T, svc *Service, requisitionID string) *models.Requisition {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Approve(ctx, ApproveCommand{RequisitionID: requisitionID, ApproverID: "USR-VAL"})
	require.NoError(t, err)
	r, err := svc.ConvertToOrder(ctx, ConvertCommand{
		RequisitionID:    requisitionID,
		SupplierID:       "SUP-METRO",
		ExpectedDelivery: time.Now().Add(7 * 24 * time.Hour),
		ActorID:          "USR-PUR",
	})
	require.NoError(t, err)
	return r
}

func TestFullLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService(t)

	r := submitTomatoes(t, svc, "50")
	require.Equal(t, models.StatusPendingApproval, r.Status)
	require.Len(t, r.Items, 1)
	require.Equal(t, "kg", r.Items[0].Unit)
	require.True(t, r.EstimatedTotal().Equal(dec("120")))

	r = toProcessing(t, svc, r.RequisitionID)
	require.Equal(t, models.StatusProcessing, r.Status)
	itemID := r.Items[0].LineItemID

	r, err := svc.RecordReceipt(ctx, ReceiptCommand{
		RequisitionID: r.RequisitionID, LineItemID: itemID, Quantity: dec("30"), ActorID: "USR-WH",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPartiallyReceived, r.Status)

	level, err := svc.GetStockLevel(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.Equal(dec("30")))

	r, err = svc.RecordReceipt(ctx, ReceiptCommand{
		RequisitionID: r.RequisitionID, LineItemID: itemID, Quantity: dec("20"), ActorID: "USR-WH",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, r.Status)

	received := pub.named(EventGoodsReceived)
	require.Len(t, received, 2)
	require.False(t, received[0].Payload.(GoodsReceivedPayload).IsFinalReceipt)
	require.True(t, received[1].Payload.(GoodsReceivedPayload).IsFinalReceipt)

	dsp, err := svc.Dispatch(ctx, DispatchCommand{
		ProductSKU: "TOMATO", Quantity: dec("50"), DepartmentID: "DEP-KITCHEN", ActorID: "USR-WH",
	})
	require.NoError(t, err)
	require.Equal(t, "TOMATO", dsp.ProductSKU)

	level, err = svc.GetStockLevel(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.IsZero())

	r, err = svc.GetRequisition(ctx, r.RequisitionID)
	require.NoError(t, err)
	require.True(t, r.Items[0].DispatchedQty.Equal(dec("50")))

	_, err = svc.Dispatch(ctx, DispatchCommand{
		ProductSKU: "TOMATO", Quantity: dec("1"), DepartmentID: "DEP-BAR", ActorID: "USR-WH",
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	drifts, err := ledger.New(svc.store, zap.NewNop()).Verify(ctx)
	require.NoError(t, err)
	require.Empty(t, drifts)
}

func TestOverReceiptRejectedWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	r := submitTomatoes(t, svc, "100")
	r = toProcessing(t, svc, r.RequisitionID)
	itemID := r.Items[0].LineItemID

	_, err := svc.RecordReceipt(ctx, ReceiptCommand{
		RequisitionID: r.RequisitionID, LineItemID: itemID, Quantity: dec("40"), ActorID: "USR-WH",
	})
	require.NoError(t, err)

	_, err = svc.RecordReceipt(ctx, ReceiptCommand{
		RequisitionID: r.RequisitionID, LineItemID: itemID, Quantity: dec("61"), ActorID: "USR-WH",
	})
	require.ErrorIs(t, err, ErrOverReceipt)

	// The failed receipt left no trace: no receipt row, no stock, no
	// status change.
	r, err = svc.GetRequisition(ctx, r.RequisitionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPartiallyReceived, r.Status)
	require.True(t, r.Items[0].ReceivedQty.Equal(dec("40")))

	receipts, err := st.ListReceipts(ctx, r.RequisitionID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)

	level, err := svc.GetStockLevel(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.Equal(dec("40")))
}

func TestReceiptAfterCompletionFailsAsOverReceipt(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	r := submitTomatoes(t, svc, "100")
	r = toProcessing(t, svc, r.RequisitionID)
	itemID := r.Items[0].LineItemID

	for _, qty := range []string{"40", "60"} {
		_, err := svc.RecordReceipt(ctx, ReceiptCommand{
			RequisitionID: r.RequisitionID, LineItemID: itemID, Quantity: dec(qty), ActorID: "USR-WH",
		})
		require.NoError(t, err)
	}

	r, err := svc.GetRequisition(ctx, r.RequisitionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, r.Status)

	// A completed order has no remaining quantity, so any further delivery
	// is a surplus on the line item, not a state violation.
	_, err = svc.RecordReceipt(ctx, ReceiptCommand{
		RequisitionID: r.RequisitionID, LineItemID: itemID, Quantity: dec("1"), ActorID: "USR-WH",
	})
	require.ErrorIs(t, err, ErrOverReceipt)

	r, err = svc.GetRequisition(ctx, r.RequisitionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, r.Status)
	require.True(t, r.Items[0].ReceivedQty.Equal(dec("100")))
}

func TestRejectFlow(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService(t)

	r := submitTomatoes(t, svc, "10")

	_, err := svc.Reject(ctx, RejectCommand{RequisitionID: r.RequisitionID, RejectorID: "USR-VAL", Reason: "  "})
	require.ErrorIs(t, err, ErrValidation)

	rejected, err := svc.Reject(ctx, RejectCommand{RequisitionID: r.RequisitionID, RejectorID: "USR-VAL", Reason: "over budget"})
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, rejected.Status)

	// Rejected is a sink: no approval, no receipts.
	_, err = svc.Approve(ctx, ApproveCommand{RequisitionID: r.RequisitionID, ApproverID: "USR-VAL"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.RecordReceipt(ctx, ReceiptCommand{
		RequisitionID: r.RequisitionID, LineItemID: rejected.Items[0].LineItemID, Quantity: dec("1"), ActorID: "USR-WH",
	})
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Re-rejecting succeeds without a second event.
	_, err = svc.Reject(ctx, RejectCommand{RequisitionID: r.RequisitionID, RejectorID: "USR-VAL", Reason: "over budget"})
	require.NoError(t, err)
	require.Len(t, pub.named(EventRequisitionRejected), 1)
}

func TestApproveCommandReplay(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService(t)

	r := submitTomatoes(t, svc, "10")

	first, err := svc.Approve(ctx, ApproveCommand{CommandID: "CMD-APPROVE-1", RequisitionID: r.RequisitionID, ApproverID: "USR-VAL"})
	require.NoError(t, err)

	second, err := svc.Approve(ctx, ApproveCommand{CommandID: "CMD-APPROVE-1", RequisitionID: r.RequisitionID, ApproverID: "USR-VAL"})
	require.NoError(t, err)
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.Version, second.Version)

	require.Len(t, pub.named(EventRequisitionApproved), 1)
}

func TestReceiptCommandReplay(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newTestService(t)

	r := submitTomatoes(t, svc, "100")
	r = toProcessing(t, svc, r.RequisitionID)
	itemID := r.Items[0].LineItemID

	cmd := ReceiptCommand{
		CommandID:     "CMD-RCPT-1",
		RequisitionID: r.RequisitionID,
		LineItemID:    itemID,
		Quantity:      dec("40"),
		ActorID:       "USR-WH",
	}
	_, err := svc.RecordReceipt(ctx, cmd)
	require.NoError(t, err)
	_, err = svc.RecordReceipt(ctx, cmd)
	require.NoError(t, err)

	r, err = svc.GetRequisition(ctx, r.RequisitionID)
	require.NoError(t, err)
	require.True(t, r.Items[0].ReceivedQty.Equal(dec("40")))

	receipts, err := st.ListReceipts(ctx, r.RequisitionID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)

	level, err := svc.GetStockLevel(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.Equal(dec("40")))

	require.Len(t, pub.named(EventGoodsReceived), 1)
}

func TestConcurrentReceiptsOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	r := submitTomatoes(t, svc, "100")
	r = toProcessing(t, svc, r.RequisitionID)
	itemID := r.Items[0].LineItemID

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordReceipt(ctx, ReceiptCommand{
				RequisitionID: r.RequisitionID,
				LineItemID:    itemID,
				Quantity:      dec("60"),
				ActorID:       "USR-WH",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var okCount, overCount int
	for err := range errs {
		switch {
		case err == nil:
			okCount++
		default:
			require.ErrorIs(t, err, ErrOverReceipt)
			overCount++
		}
	}
	require.Equal(t, 1, okCount)
	require.Equal(t, 1, overCount)

	r, err := svc.GetRequisition(ctx, r.RequisitionID)
	require.NoError(t, err)
	require.True(t, r.Items[0].ReceivedQty.Equal(dec("60")))

	level, err := svc.GetStockLevel(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.Equal(dec("60")))
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(ctx, SubmitCommand{
		Title: "No department", RequestedBy: "USR-STAFF",
		Items: []SubmitItem{{ProductSKU: "TOMATO", Quantity: dec("1")}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Submit(ctx, SubmitCommand{
		Title: "Unknown product", DepartmentID: "DEP-KITCHEN", RequestedBy: "USR-STAFF",
		Items: []SubmitItem{{ProductSKU: "CAVIAR", Quantity: dec("1")}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Submit(ctx, SubmitCommand{
		Title: "Bad urgency", DepartmentID: "DEP-KITCHEN", RequestedBy: "USR-STAFF", Urgency: "WHENEVER",
		Items: []SubmitItem{{ProductSKU: "TOMATO", Quantity: dec("1")}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Submit(ctx, SubmitCommand{
		Title: "No items", DepartmentID: "DEP-KITCHEN", RequestedBy: "USR-STAFF",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestConvertValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	r := submitTomatoes(t, svc, "10")
	_, err := svc.Approve(ctx, ApproveCommand{RequisitionID: r.RequisitionID, ApproverID: "USR-VAL"})
	require.NoError(t, err)

	_, err = svc.ConvertToOrder(ctx, ConvertCommand{
		RequisitionID:    r.RequisitionID,
		SupplierID:       "SUP-METRO",
		ExpectedDelivery: time.Now().Add(-48 * time.Hour),
		ActorID:          "USR-PUR",
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.ConvertToOrder(ctx, ConvertCommand{
		RequisitionID:    r.RequisitionID,
		SupplierID:       "SUP-NOBODY",
		ExpectedDelivery: time.Now().Add(48 * time.Hour),
		ActorID:          "USR-PUR",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDispatchAttributesAcrossRequisitionsFIFO(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	// A strictly increasing clock so creation order is unambiguous.
	var clockMu sync.Mutex
	base := time.Now()
	step := 0
	svc.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	older := submitTomatoes(t, svc, "30")
	older = toProcessing(t, svc, older.RequisitionID)
	newer := submitTomatoes(t, svc, "20")
	newer = toProcessing(t, svc, newer.RequisitionID)

	require.True(t, older.CreatedAt.Before(newer.CreatedAt))

	_, err := svc.RecordReceipt(ctx, ReceiptCommand{
		RequisitionID: older.RequisitionID, LineItemID: older.Items[0].LineItemID, Quantity: dec("30"), ActorID: "USR-WH",
	})
	require.NoError(t, err)
	_, err = svc.RecordReceipt(ctx, ReceiptCommand{
		RequisitionID: newer.RequisitionID, LineItemID: newer.Items[0].LineItemID, Quantity: dec("20"), ActorID: "USR-WH",
	})
	require.NoError(t, err)

	_, err = svc.Dispatch(ctx, DispatchCommand{
		ProductSKU: "TOMATO", Quantity: dec("40"), DepartmentID: "DEP-KITCHEN", ActorID: "USR-WH",
	})
	require.NoError(t, err)

	older, err = svc.GetRequisition(ctx, older.RequisitionID)
	require.NoError(t, err)
	newer, err = svc.GetRequisition(ctx, newer.RequisitionID)
	require.NoError(t, err)

	require.True(t, older.Items[0].DispatchedQty.Equal(dec("30")))
	require.True(t, newer.Items[0].DispatchedQty.Equal(dec("10")))
}

func TestDispatchValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Dispatch(ctx, DispatchCommand{
		ProductSKU: "TOMATO", Quantity: decimal.Zero, DepartmentID: "DEP-KITCHEN", ActorID: "USR-WH",
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Dispatch(ctx, DispatchCommand{
		ProductSKU: "CAVIAR", Quantity: dec("1"), DepartmentID: "DEP-KITCHEN", ActorID: "USR-WH",
	})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Dispatch(ctx, DispatchCommand{
		ProductSKU: "TOMATO", Quantity: dec("1"), DepartmentID: "DEP-SPA", ActorID: "USR-WH",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestAdjustments(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Adjust(ctx, AdjustCommand{ProductSKU: "TOMATO", QtyDelta: decimal.Zero, Reason: "count", ActorID: "USR-WH"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Adjust(ctx, AdjustCommand{ProductSKU: "TOMATO", QtyDelta: dec("5"), ActorID: "USR-WH"})
	require.ErrorIs(t, err, ErrValidation)

	m, err := svc.Adjust(ctx, AdjustCommand{ProductSKU: "TOMATO", QtyDelta: dec("5"), Reason: "opening count", ActorID: "USR-WH"})
	require.NoError(t, err)
	require.Equal(t, models.MovementAdjustment, m.Kind)

	level, err := svc.GetStockLevel(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.Equal(dec("5")))

	// Stock from adjustments can be dispatched; there is no line item to
	// attribute it to.
	_, err = svc.Dispatch(ctx, DispatchCommand{
		ProductSKU: "TOMATO", Quantity: dec("3"), DepartmentID: "DEP-KITCHEN", ActorID: "USR-WH",
	})
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, AdjustCommand{ProductSKU: "TOMATO", QtyDelta: dec("-10"), Reason: "spoilage", ActorID: "USR-WH"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	level, err = svc.GetStockLevel(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.Equal(dec("2")))
}

func TestAdjustCommandReplay(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newTestService(t)

	cmd := AdjustCommand{
		CommandID:  "CMD-ADJ-1",
		ProductSKU: "TOMATO",
		QtyDelta:   dec("5"),
		Reason:     "opening count",
		ActorID:    "USR-WH",
	}
	first, err := svc.Adjust(ctx, cmd)
	require.NoError(t, err)

	// A retried command returns the stored movement instead of appending a
	// second one.
	again, err := svc.Adjust(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, first.MovementID, again.MovementID)

	level, err := svc.GetStockLevel(ctx, "TOMATO")
	require.NoError(t, err)
	require.True(t, level.OnHand.Equal(dec("5")))

	movements, err := st.ListMovements(ctx, "TOMATO")
	require.NoError(t, err)
	require.Len(t, movements, 1)

	require.Len(t, pub.named(EventStockAdjusted), 1)
}

func TestConvertCommandReplayAfterDeliveryDatePassed(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService(t)

	r := submitTomatoes(t, svc, "10")
	_, err := svc.Approve(ctx, ApproveCommand{RequisitionID: r.RequisitionID, ApproverID: "USR-VAL"})
	require.NoError(t, err)

	cmd := ConvertCommand{
		CommandID:        "CMD-CNV-1",
		RequisitionID:    r.RequisitionID,
		SupplierID:       "SUP-METRO",
		ExpectedDelivery: time.Now().Add(24 * time.Hour),
		ActorID:          "USR-PUR",
	}
	converted, err := svc.ConvertToOrder(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, models.StatusProcessing, converted.Status)

	// The retry arrives after the delivery date has passed. The stored
	// outcome still wins over date validation.
	svc.now = func() time.Time { return time.Now().Add(3 * 24 * time.Hour) }
	replayed, err := svc.ConvertToOrder(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, models.StatusProcessing, replayed.Status)
	require.Len(t, pub.named(EventRequisitionConverted), 1)
}

func TestGetStockLevelUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetStockLevel(context.Background(), "CAVIAR")
	require.ErrorIs(t, err, ErrNotFound)
}
