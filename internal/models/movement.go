package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock movement kinds.
const (
	MovementReceipt    = "RECEIPT"
	MovementDispatch   = "DISPATCH"
	MovementAdjustment = "ADJUSTMENT"
)

// ReasonCorrection tags an adjustment that compensates an earlier movement.
const ReasonCorrection = "correction"

// StockMovement is one append-only entry in the per-product quantity ledger.
// Seq is assigned at append time and increases monotonically per product;
// on-hand is defined relative to a sequence point, never wall-clock time.
type StockMovement struct {
	MovementID string          `json:"movementID"`
	ProductSKU string          `json:"productSKU"`
	Seq        int64           `json:"seq"`
	Kind       string          `json:"kind"`
	QtyDelta   decimal.Decimal `json:"qtyDelta"`
	Reference  string          `json:"reference,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	// CorrectsID points at the movement being compensated when Reason is
	// "correction".
	CorrectsID string    `json:"correctsID,omitempty"`
	ActorID    string    `json:"actorID"`
	CreatedAt  time.Time `json:"createdAt"`
}

// StockLevel is the maintained running total for a product. It is a cache
// over the movement log, never an independent source of truth.
type StockLevel struct {
	ProductSKU string          `json:"productSKU"`
	OnHand     decimal.Decimal `json:"onHand"`
	LastSeq    int64           `json:"lastSeq"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ReceiptEvent is the immutable record of one (possibly partial) delivery
// against a requisition line item.
type ReceiptEvent struct {
	ReceiptID     string          `json:"receiptID"`
	RequisitionID string          `json:"requisitionID"`
	LineItemID    string          `json:"lineItemID"`
	ProductSKU    string          `json:"productSKU"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	Reference     string          `json:"reference"`
	DocumentURL   string          `json:"documentURL,omitempty"`
	RecordedBy    string          `json:"recordedBy"`
	RecordedAt    time.Time       `json:"recordedAt"`
}

// DispatchEvent is the immutable record of stock leaving the warehouse pool
// toward a department. It is not tied to a single requisition.
type DispatchEvent struct {
	DispatchID   string          `json:"dispatchID"`
	ProductSKU   string          `json:"productSKU"`
	Quantity     decimal.Decimal `json:"quantity"`
	DepartmentID string          `json:"departmentID"`
	RequestedBy  string          `json:"requestedBy"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}
