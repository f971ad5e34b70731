package handlers

import (
	"fmt"
	"net/http"
	"time"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/s3"
	"hospitality-procurement-api-server/internal/store"
	"hospitality-procurement-api-server/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type RequisitionHandler struct {
	Workflow *workflow.Service
	Uploader *s3.Uploader
}

type SubmitItemRequest struct {
	ProductSKU string          `json:"productSKU" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

type SubmitRequisitionRequest struct {
	CommandID string              `json:"commandID"`
	Title     string              `json:"title" binding:"required"`
	Urgency   string              `json:"urgency"`
	Items     []SubmitItemRequest `json:"items" binding:"required,min=1,dive"`
}

// SubmitRequisition creates a requisition for the caller's department and
// sends it for approval.
func (h *RequisitionHandler) SubmitRequisition(c *gin.Context) {
	var req SubmitRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := workflow.SubmitCommand{
		CommandID:    req.CommandID,
		Title:        req.Title,
		DepartmentID: c.GetString("user_department_id"),
		RequestedBy:  c.GetString("user_id"),
		Urgency:      req.Urgency,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, workflow.SubmitItem{
			ProductSKU: item.ProductSKU,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		})
	}

	result, err := h.Workflow.Submit(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

type ApproveRequest struct {
	CommandID string `json:"commandID"`
	Note      string `json:"note"`
}

// ApproveRequisition records the validator's decision.
func (h *RequisitionHandler) ApproveRequisition(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Workflow.Approve(c.Request.Context(), workflow.ApproveCommand{
		CommandID:     req.CommandID,
		RequisitionID: c.Param("id"),
		ApproverID:    c.GetString("user_id"),
		Note:          req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type RejectRequest struct {
	CommandID string `json:"commandID"`
	Reason    string `json:"reason"`
}

// RejectRequisition rejects a pending requisition with a mandatory reason.
func (h *RequisitionHandler) RejectRequisition(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Workflow.Reject(c.Request.Context(), workflow.RejectCommand{
		CommandID:     req.CommandID,
		RequisitionID: c.Param("id"),
		RejectorID:    c.GetString("user_id"),
		Reason:        req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type ConvertRequest struct {
	CommandID        string `json:"commandID"`
	SupplierID       string `json:"supplierID" binding:"required"`
	ExpectedDelivery string `json:"expectedDelivery" binding:"required"` // YYYY-MM-DD
}

// ConvertToOrder turns an approved requisition into a purchase order.
func (h *RequisitionHandler) ConvertToOrder(c *gin.Context) {
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expectedDelivery, err := time.Parse("2006-01-02", req.ExpectedDelivery)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expectedDelivery must be in YYYY-MM-DD format"})
		return
	}

	result, err := h.Workflow.ConvertToOrder(c.Request.Context(), workflow.ConvertCommand{
		CommandID:        req.CommandID,
		RequisitionID:    c.Param("id"),
		SupplierID:       req.SupplierID,
		ExpectedDelivery: expectedDelivery,
		ActorID:          c.GetString("user_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type RecordReceiptRequest struct {
	CommandID  string          `json:"commandID"`
	LineItemID string          `json:"lineItemID" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	Reference  string          `json:"reference"`
}

// RecordReceipt books a full or partial delivery against one line item.
func (h *RequisitionHandler) RecordReceipt(c *gin.Context) {
	var req RecordReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Workflow.RecordReceipt(c.Request.Context(), workflow.ReceiptCommand{
		CommandID:     req.CommandID,
		RequisitionID: c.Param("id"),
		LineItemID:    req.LineItemID,
		Quantity:      req.Quantity,
		Reference:     req.Reference,
		ActorID:       c.GetString("user_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRequisition returns one requisition with its line items.
func (h *RequisitionHandler) GetRequisition(c *gin.Context) {
	result, err := h.Workflow.GetRequisition(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListRequisitions returns requisitions filtered by department, status and
// creation date range.
func (h *RequisitionHandler) ListRequisitions(c *gin.Context) {
	filter := store.RequisitionFilter{
		DepartmentID: c.Query("departmentID"),
		Status:       c.Query("status"),
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be in YYYY-MM-DD format"})
			return
		}
		filter.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be in YYYY-MM-DD format"})
			return
		}
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}

	// Department staff only see their own department's requisitions.
	if c.GetString("user_role") == models.RoleStaff {
		filter.DepartmentID = c.GetString("user_department_id")
	}

	results, err := h.Workflow.ListRequisitions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if results == nil {
		results = []models.Requisition{}
	}

	c.JSON(http.StatusOK, results)
}

// ListReceipts returns the receipt history of a requisition.
func (h *RequisitionHandler) ListReceipts(c *gin.Context) {
	results, err := h.Workflow.ListReceiptHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if results == nil {
		results = []models.ReceiptEvent{}
	}

	c.JSON(http.StatusOK, results)
}

// UploadReceiptDocument attaches a scanned delivery note to a receipt.
func (h *RequisitionHandler) UploadReceiptDocument(c *gin.Context) {
	if h.Uploader == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Document storage is not configured"})
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A document file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	receiptID := c.Param("receiptID")
	objectKey := fmt.Sprintf("receipts/%s/%s", receiptID, fileHeader.Filename)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.Uploader.UploadFile(c.Request.Context(), file, objectKey, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload document", "details": err.Error()})
		return
	}

	if err := h.Workflow.AttachReceiptDocument(c.Request.Context(), receiptID, url); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "documentURL": url})
}
