// Package memstore is an in-memory Store used by tests and local
// development. A single mutex guards all state; Atomically snapshots the
// state and restores it when the transaction function fails, giving the
// same all-or-nothing behavior as the Mongo implementation.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"
)

type txMarker struct{}

type state struct {
	requisitions map[string]*models.Requisition
	receipts     map[string]*models.ReceiptEvent
	dispatches   []*models.DispatchEvent
	movements    map[string][]*models.StockMovement
	seqs         map[string]int64
	levels       map[string]models.StockLevel
	commands     map[string]store.CommandResult
	users        map[string]*models.User
	products     map[string]*models.Product
	suppliers    map[string]*models.Supplier
	departments  map[string]*models.Department
}

type Store struct {
	mu sync.Mutex
	st state
}

func New() *Store {
	return &Store{st: state{
		requisitions: map[string]*models.Requisition{},
		receipts:     map[string]*models.ReceiptEvent{},
		movements:    map[string][]*models.StockMovement{},
		seqs:         map[string]int64{},
		levels:       map[string]models.StockLevel{},
		commands:     map[string]store.CommandResult{},
		users:        map[string]*models.User{},
		products:     map[string]*models.Product{},
		suppliers:    map[string]*models.Supplier{},
		departments:  map[string]*models.Department{},
	}}
}

// lock takes the store mutex unless the context is already inside a
// transaction, which holds it for its whole duration.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	err := fn(context.WithValue(ctx, txMarker{}, struct{}{}))
	if err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) InsertRequisition(ctx context.Context, r *models.Requisition) error {
	defer s.lock(ctx)()
	if _, ok := s.st.requisitions[r.RequisitionID]; ok {
		return store.ErrAlreadyExists
	}
	s.st.requisitions[r.RequisitionID] = cloneRequisition(r)
	return nil
}

func (s *Store) UpdateRequisition(ctx context.Context, r *models.Requisition, expectedVersion int64) error {
	defer s.lock(ctx)()
	current, ok := s.st.requisitions[r.RequisitionID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != expectedVersion {
		return store.ErrConflict
	}
	updated := cloneRequisition(r)
	updated.Version = expectedVersion + 1
	s.st.requisitions[r.RequisitionID] = updated
	r.Version = updated.Version
	return nil
}

func (s *Store) GetRequisition(ctx context.Context, requisitionID string) (*models.Requisition, error) {
	defer s.lock(ctx)()
	r, ok := s.st.requisitions[requisitionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneRequisition(r), nil
}

func (s *Store) ListRequisitions(ctx context.Context, filter store.RequisitionFilter) ([]models.Requisition, error) {
	defer s.lock(ctx)()
	var out []models.Requisition
	for _, r := range s.st.requisitions {
		if filter.DepartmentID != "" && r.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && r.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && r.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, *cloneRequisition(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListRequisitionsByProduct(ctx context.Context, productSKU string) ([]models.Requisition, error) {
	defer s.lock(ctx)()
	var out []models.Requisition
	for _, r := range s.st.requisitions {
		for _, item := range r.Items {
			if item.ProductSKU == productSKU && item.ReceivedQty.GreaterThan(item.DispatchedQty) {
				out = append(out, *cloneRequisition(r))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertReceipt(ctx context.Context, e *models.ReceiptEvent) error {
	defer s.lock(ctx)()
	if _, ok := s.st.receipts[e.ReceiptID]; ok {
		return store.ErrAlreadyExists
	}
	clone := *e
	s.st.receipts[e.ReceiptID] = &clone
	return nil
}

func (s *Store) ListReceipts(ctx context.Context, requisitionID string) ([]models.ReceiptEvent, error) {
	defer s.lock(ctx)()
	var out []models.ReceiptEvent
	for _, e := range s.st.receipts {
		if e.RequisitionID == requisitionID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (s *Store) GetReceipt(ctx context.Context, receiptID string) (*models.ReceiptEvent, error) {
	defer s.lock(ctx)()
	e, ok := s.st.receipts[receiptID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (s *Store) SetReceiptDocument(ctx context.Context, receiptID, url string) error {
	defer s.lock(ctx)()
	e, ok := s.st.receipts[receiptID]
	if !ok {
		return store.ErrNotFound
	}
	e.DocumentURL = url
	return nil
}

func (s *Store) InsertDispatch(ctx context.Context, e *models.DispatchEvent) error {
	defer s.lock(ctx)()
	clone := *e
	s.st.dispatches = append(s.st.dispatches, &clone)
	return nil
}

func (s *Store) ListDispatches(ctx context.Context, productSKU string) ([]models.DispatchEvent, error) {
	defer s.lock(ctx)()
	var out []models.DispatchEvent
	for _, e := range s.st.dispatches {
		if productSKU == "" || e.ProductSKU == productSKU {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *Store) AppendMovement(ctx context.Context, m *models.StockMovement) error {
	defer s.lock(ctx)()
	s.st.seqs[m.ProductSKU]++
	m.Seq = s.st.seqs[m.ProductSKU]
	clone := *m
	s.st.movements[m.ProductSKU] = append(s.st.movements[m.ProductSKU], &clone)
	return nil
}

func (s *Store) ListMovements(ctx context.Context, productSKU string) ([]models.StockMovement, error) {
	defer s.lock(ctx)()
	var out []models.StockMovement
	for _, m := range s.st.movements[productSKU] {
		out = append(out, *m)
	}
	return out, nil
}

func (s *Store) ListMovementProducts(ctx context.Context) ([]string, error) {
	defer s.lock(ctx)()
	var out []string
	for sku := range s.st.movements {
		out = append(out, sku)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetStockLevel(ctx context.Context, productSKU string) (models.StockLevel, error) {
	defer s.lock(ctx)()
	level, ok := s.st.levels[productSKU]
	if !ok {
		return models.StockLevel{ProductSKU: productSKU, OnHand: decimal.Zero}, nil
	}
	return level, nil
}

func (s *Store) ApplyStockDelta(ctx context.Context, productSKU string, delta decimal.Decimal, seq int64) error {
	defer s.lock(ctx)()
	level, ok := s.st.levels[productSKU]
	if !ok {
		level = models.StockLevel{ProductSKU: productSKU, OnHand: decimal.Zero}
	}
	level.OnHand = level.OnHand.Add(delta)
	level.LastSeq = seq
	level.UpdatedAt = time.Now()
	s.st.levels[productSKU] = level
	return nil
}

func (s *Store) GetCommandResult(ctx context.Context, commandID string) (*store.CommandResult, error) {
	defer s.lock(ctx)()
	result, ok := s.st.commands[commandID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &result, nil
}

func (s *Store) PutCommandResult(ctx context.Context, result store.CommandResult) error {
	defer s.lock(ctx)()
	s.st.commands[result.CommandID] = result
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	defer s.lock(ctx)()
	if _, ok := s.st.users[u.Email]; ok {
		return store.ErrAlreadyExists
	}
	clone := *u
	s.st.users[u.Email] = &clone
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.lock(ctx)()
	u, ok := s.st.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	defer s.lock(ctx)()
	if _, ok := s.st.products[p.SKU]; ok {
		return store.ErrAlreadyExists
	}
	clone := *p
	s.st.products[p.SKU] = &clone
	return nil
}

func (s *Store) GetProduct(ctx context.Context, sku string) (*models.Product, error) {
	defer s.lock(ctx)()
	p, ok := s.st.products[sku]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	defer s.lock(ctx)()
	var out []models.Product
	for _, p := range s.st.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (s *Store) DeleteProduct(ctx context.Context, sku string) error {
	defer s.lock(ctx)()
	if _, ok := s.st.products[sku]; !ok {
		return store.ErrNotFound
	}
	delete(s.st.products, sku)
	return nil
}

func (s *Store) CreateSupplier(ctx context.Context, sp *models.Supplier) error {
	defer s.lock(ctx)()
	if _, ok := s.st.suppliers[sp.SupplierID]; ok {
		return store.ErrAlreadyExists
	}
	clone := *sp
	s.st.suppliers[sp.SupplierID] = &clone
	return nil
}

func (s *Store) GetSupplier(ctx context.Context, supplierID string) (*models.Supplier, error) {
	defer s.lock(ctx)()
	sp, ok := s.st.suppliers[supplierID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *sp
	return &clone, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	defer s.lock(ctx)()
	var out []models.Supplier
	for _, sp := range s.st.suppliers {
		out = append(out, *sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SupplierID < out[j].SupplierID })
	return out, nil
}

func (s *Store) CreateDepartment(ctx context.Context, d *models.Department) error {
	defer s.lock(ctx)()
	if _, ok := s.st.departments[d.DepartmentID]; ok {
		return store.ErrAlreadyExists
	}
	clone := *d
	s.st.departments[d.DepartmentID] = &clone
	return nil
}

func (s *Store) GetDepartment(ctx context.Context, departmentID string) (*models.Department, error) {
	defer s.lock(ctx)()
	d, ok := s.st.departments[departmentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	defer s.lock(ctx)()
	var out []models.Department
	for _, d := range s.st.departments {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartmentID < out[j].DepartmentID })
	return out, nil
}
