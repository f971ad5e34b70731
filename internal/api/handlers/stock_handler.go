package handlers

import (
	"net/http"

	"hospitality-procurement-api-server/internal/ledger"
	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type StockHandler struct {
	Workflow *workflow.Service
	Ledger   *ledger.Ledger
}

type DispatchRequest struct {
	CommandID    string          `json:"commandID"`
	ProductSKU   string          `json:"productSKU" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	DepartmentID string          `json:"departmentID" binding:"required"`
	Note         string          `json:"note"`
}

// Dispatch issues stock from the warehouse pool to a department.
func (h *StockHandler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Workflow.Dispatch(c.Request.Context(), workflow.DispatchCommand{
		CommandID:    req.CommandID,
		ProductSKU:   req.ProductSKU,
		Quantity:     req.Quantity,
		DepartmentID: req.DepartmentID,
		ActorID:      c.GetString("user_id"),
		Note:         req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

type AdjustRequest struct {
	CommandID  string          `json:"commandID"`
	ProductSKU string          `json:"productSKU" binding:"required"`
	QtyDelta   decimal.Decimal `json:"qtyDelta" binding:"required"`
	Reason     string          `json:"reason" binding:"required"`
	CorrectsID string          `json:"correctsID"`
}

// Adjust appends a manual correction movement to a product's ledger.
func (h *StockHandler) Adjust(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := h.Workflow.Adjust(c.Request.Context(), workflow.AdjustCommand{
		CommandID:  req.CommandID,
		ProductSKU: req.ProductSKU,
		QtyDelta:   req.QtyDelta,
		Reason:     req.Reason,
		CorrectsID: req.CorrectsID,
		ActorID:    c.GetString("user_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, movement)
}

// GetStockLevel returns the cached on-hand quantity for a product.
func (h *StockHandler) GetStockLevel(c *gin.Context) {
	level, err := h.Workflow.GetStockLevel(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, level)
}

// ListMovements returns a product's ledger entries in sequence order.
func (h *StockHandler) ListMovements(c *gin.Context) {
	movements, err := h.Workflow.ListMovements(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	if movements == nil {
		movements = []models.StockMovement{}
	}

	c.JSON(http.StatusOK, movements)
}

// ListDispatches returns a product's dispatch history.
func (h *StockHandler) ListDispatches(c *gin.Context) {
	dispatches, err := h.Workflow.ListDispatches(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	if dispatches == nil {
		dispatches = []models.DispatchEvent{}
	}

	c.JSON(http.StatusOK, dispatches)
}

// VerifyLedger replays every product's movement log and reports products
// whose cached on-hand total drifted from the replayed sum.
func (h *StockHandler) VerifyLedger(c *gin.Context) {
	drifts, err := h.Ledger.Verify(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if drifts == nil {
		drifts = []ledger.Drift{}
	}

	c.JSON(http.StatusOK, gin.H{"consistent": len(drifts) == 0, "drifts": drifts})
}
