package memstore

import (
	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"
)

// Deep copies keep callers and snapshots isolated from the live maps.

func cloneRequisition(r *models.Requisition) *models.Requisition {
	clone := *r
	clone.Items = make([]models.LineItem, len(r.Items))
	copy(clone.Items, r.Items)
	if r.Approval != nil {
		a := *r.Approval
		clone.Approval = &a
	}
	if r.Rejection != nil {
		rej := *r.Rejection
		clone.Rejection = &rej
	}
	if r.PurchaseOrder != nil {
		po := *r.PurchaseOrder
		clone.PurchaseOrder = &po
	}
	return &clone
}

func (st state) clone() state {
	out := state{
		requisitions: make(map[string]*models.Requisition, len(st.requisitions)),
		receipts:     make(map[string]*models.ReceiptEvent, len(st.receipts)),
		dispatches:   make([]*models.DispatchEvent, len(st.dispatches)),
		movements:    make(map[string][]*models.StockMovement, len(st.movements)),
		seqs:         make(map[string]int64, len(st.seqs)),
		levels:       make(map[string]models.StockLevel, len(st.levels)),
		commands:     make(map[string]store.CommandResult, len(st.commands)),
		users:        make(map[string]*models.User, len(st.users)),
		products:     make(map[string]*models.Product, len(st.products)),
		suppliers:    make(map[string]*models.Supplier, len(st.suppliers)),
		departments:  make(map[string]*models.Department, len(st.departments)),
	}
	for k, v := range st.requisitions {
		out.requisitions[k] = cloneRequisition(v)
	}
	for k, v := range st.receipts {
		clone := *v
		out.receipts[k] = &clone
	}
	for i, v := range st.dispatches {
		clone := *v
		out.dispatches[i] = &clone
	}
	for k, list := range st.movements {
		cloned := make([]*models.StockMovement, len(list))
		for i, m := range list {
			c := *m
			cloned[i] = &c
		}
		out.movements[k] = cloned
	}
	for k, v := range st.seqs {
		out.seqs[k] = v
	}
	for k, v := range st.levels {
		out.levels[k] = v
	}
	for k, v := range st.commands {
		out.commands[k] = v
	}
	for k, v := range st.users {
		clone := *v
		out.users[k] = &clone
	}
	for k, v := range st.products {
		clone := *v
		out.products[k] = &clone
	}
	for k, v := range st.suppliers {
		clone := *v
		out.suppliers[k] = &clone
	}
	for k, v := range st.departments {
		clone := *v
		out.departments[k] = &clone
	}
	return out
}
