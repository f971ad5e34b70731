package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requisition lifecycle states.
const (
	StatusDraft             = "DRAFT"
	StatusPendingApproval   = "PENDING_APPROVAL"
	StatusApproved          = "APPROVED"
	StatusRejected          = "REJECTED"
	StatusProcessing        = "PROCESSING"
	StatusPartiallyReceived = "PARTIALLY_RECEIVED"
	StatusCompleted         = "COMPLETED"
)

// Urgency tiers.
const (
	UrgencyLow      = "LOW"
	UrgencyNormal   = "NORMAL"
	UrgencyHigh     = "HIGH"
	UrgencyCritical = "CRITICAL"
)

// LineItem is one requested product on a requisition. OrderedQty is a
// commitment fixed at submission; ReceivedQty and DispatchedQty only ever
// grow and are bounded by 0 <= dispatched <= received <= ordered.
type LineItem struct {
	LineItemID    string          `json:"lineItemID"`
	ProductSKU    string          `json:"productSKU"`
	Unit          string          `json:"unit"`
	OrderedQty    decimal.Decimal `json:"orderedQty"`
	ReceivedQty   decimal.Decimal `json:"receivedQty"`
	DispatchedQty decimal.Decimal `json:"dispatchedQty"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
}

type ApprovalInfo struct {
	ApprovedBy string    `json:"approvedBy"`
	ApprovedAt time.Time `json:"approvedAt"`
	Note       string    `json:"note,omitempty"`
}

type RejectionInfo struct {
	RejectedBy string    `json:"rejectedBy"`
	RejectedAt time.Time `json:"rejectedAt"`
	Reason     string    `json:"reason"`
}

// PurchaseOrderInfo is set when an approved requisition is converted into a
// supplier order.
type PurchaseOrderInfo struct {
	SupplierID       string    `json:"supplierID"`
	ExpectedDelivery time.Time `json:"expectedDelivery"`
	ConvertedBy      string    `json:"convertedBy"`
	ConvertedAt      time.Time `json:"convertedAt"`
}

type Requisition struct {
	RequisitionID string             `json:"requisitionID"`
	Title         string             `json:"title"`
	DepartmentID  string             `json:"departmentID"`
	CreatedBy     string             `json:"createdBy"`
	CreatedAt     time.Time          `json:"createdAt"`
	Urgency       string             `json:"urgency"`
	Status        string             `json:"status"`
	Items         []LineItem         `json:"items"`
	Approval      *ApprovalInfo      `json:"approval,omitempty"`
	Rejection     *RejectionInfo     `json:"rejection,omitempty"`
	PurchaseOrder *PurchaseOrderInfo `json:"purchaseOrder,omitempty"`

	// Version increments on every write and backs the optimistic
	// concurrency check in the store.
	Version int64 `json:"version"`
}

// EstimatedTotal is the derived monetary total. It is informational only and
// never authoritative.
func (r *Requisition) EstimatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.OrderedQty.Mul(item.UnitPrice))
	}
	return total
}

// Item returns the line item with the given id, or nil.
func (r *Requisition) Item(lineItemID string) *LineItem {
	for i := range r.Items {
		if r.Items[i].LineItemID == lineItemID {
			return &r.Items[i]
		}
	}
	return nil
}
