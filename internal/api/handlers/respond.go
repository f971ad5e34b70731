package handlers

import (
	"errors"
	"net/http"

	"hospitality-procurement-api-server/internal/store"
	"hospitality-procurement-api-server/internal/workflow"

	"github.com/gin-gonic/gin"
)

// respondError translates workflow error kinds into HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrOverReceipt), errors.Is(err, workflow.ErrInsufficientStock):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
