package workflow

import (
	"time"

	"github.com/shopspring/decimal"
)

// Domain event names carried on the notification feed.
const (
	EventRequisitionSubmitted = "RequisitionSubmitted"
	EventRequisitionApproved  = "RequisitionApproved"
	EventRequisitionRejected  = "RequisitionRejected"
	EventRequisitionConverted = "RequisitionConverted"
	EventGoodsReceived        = "GoodsReceived"
	EventStockDispatched      = "StockDispatched"
	EventStockAdjusted        = "StockAdjusted"
)

// Event is emitted after a command's transaction commits. The coordinator
// never delivers notifications itself; an external collaborator consumes
// the feed.
type Event struct {
	Name          string    `json:"name"`
	RequisitionID string    `json:"requisitionID,omitempty"`
	At            time.Time `json:"at"`
	Payload       any       `json:"payload,omitempty"`
}

// Publisher receives committed domain events. Implementations must not
// block the caller for long; delivery is best-effort.
type Publisher interface {
	Publish(event Event)
}

// NopPublisher drops events. Used when no feed is wired.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

type RejectedPayload struct {
	Reason string `json:"reason"`
}

type ConvertedPayload struct {
	SupplierID string `json:"supplierID"`
}

type GoodsReceivedPayload struct {
	LineItemID     string          `json:"lineItemID"`
	Quantity       decimal.Decimal `json:"quantity"`
	IsFinalReceipt bool            `json:"isFinalReceipt"`
}

type StockDispatchedPayload struct {
	ProductSKU   string          `json:"productSKU"`
	Quantity     decimal.Decimal `json:"quantity"`
	DepartmentID string          `json:"departmentID"`
}

type StockAdjustedPayload struct {
	ProductSKU string          `json:"productSKU"`
	QtyDelta   decimal.Decimal `json:"qtyDelta"`
	Reason     string          `json:"reason"`
}
