package models

import "time"

// Staff roles. The role decides which workflow commands a user may issue.
const (
	RoleStaff      = "staff"
	RoleValidator  = "validator"
	RolePurchasing = "purchasing"
	RoleWarehouse  = "warehouse"
	RoleSuperAdmin = "superadmin"
)

type User struct {
	UserID       string    `json:"userID"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Password     string    `json:"-"`
	Role         string    `json:"role"`
	DepartmentID string    `json:"departmentID"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}
