package workflow

import (
	"hospitality-procurement-api-server/internal/reconcile"
	"hospitality-procurement-api-server/internal/requisition"
	"hospitality-procurement-api-server/internal/store"
)

// The coordinator surfaces exactly the error kinds the API contract names.
// They alias the sentinels of the packages that detect them, so errors.Is
// works across layers without translation tables.
var (
	ErrValidation        = requisition.ErrValidation
	ErrInvalidTransition = requisition.ErrInvalidTransition
	ErrOverReceipt       = reconcile.ErrOverReceipt
	ErrInsufficientStock = reconcile.ErrInsufficientStock
	ErrNotFound          = store.ErrNotFound
	ErrConflict          = store.ErrConflict
)
