// Package store defines the persistence interface the workflow runs
// against. Two implementations exist: mongostore for production and
// memstore for tests and local development.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"hospitality-procurement-api-server/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means a concurrent writer modified the requisition
	// between read and write. Safe to retry.
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

// RequisitionFilter narrows ListRequisitions. Zero values mean "any".
type RequisitionFilter struct {
	DepartmentID string
	Status       string
	From         time.Time
	To           time.Time
}

// CommandResult records the outcome of a completed command keyed by the
// client-supplied idempotency key. Replays return the stored outcome
// instead of executing again.
type CommandResult struct {
	CommandID string
	Entity    string
	At        time.Time
}

// Store is the single persistence boundary. Mutating methods called inside
// Atomically commit or roll back together; the coordinator additionally
// serializes writers per requisition and per product, so Store
// implementations never see two concurrent writers for the same key.
type Store interface {
	// Atomically runs fn inside one transaction. Mutations made through
	// the ctx passed to fn are invisible to other readers until fn
	// returns nil, and are discarded entirely when it returns an error.
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error

	InsertRequisition(ctx context.Context, r *models.Requisition) error
	// UpdateRequisition writes r only if the stored version still equals
	// expectedVersion, then increments it. Returns ErrConflict otherwise.
	UpdateRequisition(ctx context.Context, r *models.Requisition, expectedVersion int64) error
	GetRequisition(ctx context.Context, requisitionID string) (*models.Requisition, error)
	ListRequisitions(ctx context.Context, filter RequisitionFilter) ([]models.Requisition, error)
	// ListRequisitionsByProduct returns requisitions holding a line item
	// for the product with received stock not yet dispatched, oldest
	// first. Used for FIFO dispatch allocation.
	ListRequisitionsByProduct(ctx context.Context, productSKU string) ([]models.Requisition, error)

	InsertReceipt(ctx context.Context, e *models.ReceiptEvent) error
	ListReceipts(ctx context.Context, requisitionID string) ([]models.ReceiptEvent, error)
	GetReceipt(ctx context.Context, receiptID string) (*models.ReceiptEvent, error)
	// SetReceiptDocument attaches an uploaded delivery-note URL to a
	// receipt. The quantity record itself is never mutated.
	SetReceiptDocument(ctx context.Context, receiptID, url string) error

	InsertDispatch(ctx context.Context, e *models.DispatchEvent) error
	ListDispatches(ctx context.Context, productSKU string) ([]models.DispatchEvent, error)

	// AppendMovement assigns the next per-product sequence number and
	// appends the movement to the ledger log.
	AppendMovement(ctx context.Context, m *models.StockMovement) error
	ListMovements(ctx context.Context, productSKU string) ([]models.StockMovement, error)
	// ListMovementProducts returns every product that has at least one
	// ledger movement.
	ListMovementProducts(ctx context.Context) ([]string, error)
	GetStockLevel(ctx context.Context, productSKU string) (models.StockLevel, error)
	// ApplyStockDelta folds a movement into the running-total cache.
	ApplyStockDelta(ctx context.Context, productSKU string, delta decimal.Decimal, seq int64) error

	GetCommandResult(ctx context.Context, commandID string) (*CommandResult, error)
	PutCommandResult(ctx context.Context, result CommandResult) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, sku string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	DeleteProduct(ctx context.Context, sku string) error

	CreateSupplier(ctx context.Context, s *models.Supplier) error
	GetSupplier(ctx context.Context, supplierID string) (*models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)

	CreateDepartment(ctx context.Context, d *models.Department) error
	GetDepartment(ctx context.Context, departmentID string) (*models.Department, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
}
