package models

import "time"

// Master data looked up by the workflow, managed by superadmin CRUD.

type Product struct {
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Supplier struct {
	SupplierID string    `json:"supplierID"`
	Name       string    `json:"name"`
	Contact    string    `json:"contact,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Department struct {
	DepartmentID string    `json:"departmentID"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}
