package mongostore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hospitality-procurement-api-server/internal/models"
)

// Persistence records. Decimal quantities are stored as strings so no
// precision is lost in BSON round trips.

type lineItemRecord struct {
	LineItemID    string `bson:"lineItemID"`
	ProductSKU    string `bson:"productSKU"`
	Unit          string `bson:"unit"`
	OrderedQty    string `bson:"orderedQty"`
	ReceivedQty   string `bson:"receivedQty"`
	DispatchedQty string `bson:"dispatchedQty"`
	UnitPrice     string `bson:"unitPrice"`
}

type approvalRecord struct {
	ApprovedBy string    `bson:"approvedBy"`
	ApprovedAt time.Time `bson:"approvedAt"`
	Note       string    `bson:"note,omitempty"`
}

type rejectionRecord struct {
	RejectedBy string    `bson:"rejectedBy"`
	RejectedAt time.Time `bson:"rejectedAt"`
	Reason     string    `bson:"reason"`
}

type purchaseOrderRecord struct {
	SupplierID       string    `bson:"supplierID"`
	ExpectedDelivery time.Time `bson:"expectedDelivery"`
	ConvertedBy      string    `bson:"convertedBy"`
	ConvertedAt      time.Time `bson:"convertedAt"`
}

type requisitionRecord struct {
	RequisitionID string               `bson:"requisitionID"`
	Title         string               `bson:"title"`
	DepartmentID  string               `bson:"departmentID"`
	CreatedBy     string               `bson:"createdBy"`
	CreatedAt     time.Time            `bson:"createdAt"`
	Urgency       string               `bson:"urgency"`
	Status        string               `bson:"status"`
	Items         []lineItemRecord     `bson:"items"`
	Approval      *approvalRecord      `bson:"approval,omitempty"`
	Rejection     *rejectionRecord     `bson:"rejection,omitempty"`
	PurchaseOrder *purchaseOrderRecord `bson:"purchaseOrder,omitempty"`
	Version       int64                `bson:"version"`
}

type receiptRecord struct {
	ReceiptID     string    `bson:"receiptID"`
	RequisitionID string    `bson:"requisitionID"`
	LineItemID    string    `bson:"lineItemID"`
	ProductSKU    string    `bson:"productSKU"`
	Quantity      string    `bson:"quantity"`
	Unit          string    `bson:"unit"`
	Reference     string    `bson:"reference"`
	DocumentURL   string    `bson:"documentURL,omitempty"`
	RecordedBy    string    `bson:"recordedBy"`
	RecordedAt    time.Time `bson:"recordedAt"`
}

type dispatchRecord struct {
	DispatchID   string    `bson:"dispatchID"`
	ProductSKU   string    `bson:"productSKU"`
	Quantity     string    `bson:"quantity"`
	DepartmentID string    `bson:"departmentID"`
	RequestedBy  string    `bson:"requestedBy"`
	Note         string    `bson:"note,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
}

type movementRecord struct {
	MovementID string    `bson:"movementID"`
	ProductSKU string    `bson:"productSKU"`
	Seq        int64     `bson:"seq"`
	Kind       string    `bson:"kind"`
	QtyDelta   string    `bson:"qtyDelta"`
	Reference  string    `bson:"reference,omitempty"`
	Reason     string    `bson:"reason,omitempty"`
	CorrectsID string    `bson:"correctsID,omitempty"`
	ActorID    string    `bson:"actorID"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type levelRecord struct {
	ProductSKU string    `bson:"productSKU"`
	OnHand     string    `bson:"onHand"`
	LastSeq    int64     `bson:"lastSeq"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

type commandRecord struct {
	CommandID string    `bson:"commandID"`
	Entity    string    `bson:"entity"`
	At        time.Time `bson:"at"`
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func toRequisitionRecord(r *models.Requisition) requisitionRecord {
	rec := requisitionRecord{
		RequisitionID: r.RequisitionID,
		Title:         r.Title,
		DepartmentID:  r.DepartmentID,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		Urgency:       r.Urgency,
		Status:        r.Status,
		Version:       r.Version,
	}
	for _, item := range r.Items {
		rec.Items = append(rec.Items, lineItemRecord{
			LineItemID:    item.LineItemID,
			ProductSKU:    item.ProductSKU,
			Unit:          item.Unit,
			OrderedQty:    item.OrderedQty.String(),
			ReceivedQty:   item.ReceivedQty.String(),
			DispatchedQty: item.DispatchedQty.String(),
			UnitPrice:     item.UnitPrice.String(),
		})
	}
	if r.Approval != nil {
		rec.Approval = &approvalRecord{ApprovedBy: r.Approval.ApprovedBy, ApprovedAt: r.Approval.ApprovedAt, Note: r.Approval.Note}
	}
	if r.Rejection != nil {
		rec.Rejection = &rejectionRecord{RejectedBy: r.Rejection.RejectedBy, RejectedAt: r.Rejection.RejectedAt, Reason: r.Rejection.Reason}
	}
	if r.PurchaseOrder != nil {
		rec.PurchaseOrder = &purchaseOrderRecord{
			SupplierID:       r.PurchaseOrder.SupplierID,
			ExpectedDelivery: r.PurchaseOrder.ExpectedDelivery,
			ConvertedBy:      r.PurchaseOrder.ConvertedBy,
			ConvertedAt:      r.PurchaseOrder.ConvertedAt,
		}
	}
	return rec
}

func fromRequisitionRecord(rec requisitionRecord) (*models.Requisition, error) {
	r := &models.Requisition{
		RequisitionID: rec.RequisitionID,
		Title:         rec.Title,
		DepartmentID:  rec.DepartmentID,
		CreatedBy:     rec.CreatedBy,
		CreatedAt:     rec.CreatedAt,
		Urgency:       rec.Urgency,
		Status:        rec.Status,
		Version:       rec.Version,
	}
	for _, item := range rec.Items {
		ordered, err := parseDecimal("orderedQty", item.OrderedQty)
		if err != nil {
			return nil, err
		}
		received, err := parseDecimal("receivedQty", item.ReceivedQty)
		if err != nil {
			return nil, err
		}
		dispatched, err := parseDecimal("dispatchedQty", item.DispatchedQty)
		if err != nil {
			return nil, err
		}
		price, err := parseDecimal("unitPrice", item.UnitPrice)
		if err != nil {
			return nil, err
		}
		r.Items = append(r.Items, models.LineItem{
			LineItemID:    item.LineItemID,
			ProductSKU:    item.ProductSKU,
			Unit:          item.Unit,
			OrderedQty:    ordered,
			ReceivedQty:   received,
			DispatchedQty: dispatched,
			UnitPrice:     price,
		})
	}
	if rec.Approval != nil {
		r.Approval = &models.ApprovalInfo{ApprovedBy: rec.Approval.ApprovedBy, ApprovedAt: rec.Approval.ApprovedAt, Note: rec.Approval.Note}
	}
	if rec.Rejection != nil {
		r.Rejection = &models.RejectionInfo{RejectedBy: rec.Rejection.RejectedBy, RejectedAt: rec.Rejection.RejectedAt, Reason: rec.Rejection.Reason}
	}
	if rec.PurchaseOrder != nil {
		r.PurchaseOrder = &models.PurchaseOrderInfo{
			SupplierID:       rec.PurchaseOrder.SupplierID,
			ExpectedDelivery: rec.PurchaseOrder.ExpectedDelivery,
			ConvertedBy:      rec.PurchaseOrder.ConvertedBy,
			ConvertedAt:      rec.PurchaseOrder.ConvertedAt,
		}
	}
	return r, nil
}

func fromReceiptRecord(rec receiptRecord) (models.ReceiptEvent, error) {
	qty, err := parseDecimal("quantity", rec.Quantity)
	if err != nil {
		return models.ReceiptEvent{}, err
	}
	return models.ReceiptEvent{
		ReceiptID:     rec.ReceiptID,
		RequisitionID: rec.RequisitionID,
		LineItemID:    rec.LineItemID,
		ProductSKU:    rec.ProductSKU,
		Quantity:      qty,
		Unit:          rec.Unit,
		Reference:     rec.Reference,
		DocumentURL:   rec.DocumentURL,
		RecordedBy:    rec.RecordedBy,
		RecordedAt:    rec.RecordedAt,
	}, nil
}

func fromDispatchRecord(rec dispatchRecord) (models.DispatchEvent, error) {
	qty, err := parseDecimal("quantity", rec.Quantity)
	if err != nil {
		return models.DispatchEvent{}, err
	}
	return models.DispatchEvent{
		DispatchID:   rec.DispatchID,
		ProductSKU:   rec.ProductSKU,
		Quantity:     qty,
		DepartmentID: rec.DepartmentID,
		RequestedBy:  rec.RequestedBy,
		Note:         rec.Note,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func fromMovementRecord(rec movementRecord) (models.StockMovement, error) {
	delta, err := parseDecimal("qtyDelta", rec.QtyDelta)
	if err != nil {
		return models.StockMovement{}, err
	}
	return models.StockMovement{
		MovementID: rec.MovementID,
		ProductSKU: rec.ProductSKU,
		Seq:        rec.Seq,
		Kind:       rec.Kind,
		QtyDelta:   delta,
		Reference:  rec.Reference,
		Reason:     rec.Reason,
		CorrectsID: rec.CorrectsID,
		ActorID:    rec.ActorID,
		CreatedAt:  rec.CreatedAt,
	}, nil
}
