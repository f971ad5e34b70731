package database

import (
	"context"
	"errors"
	"time"

	"hospitality-procurement-api-server/config"
	"hospitality-procurement-api-server/internal/auth"
	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeedSuperAdmin creates the bootstrap superadmin account on first start.
func SeedSuperAdmin(ctx context.Context, st store.Store, cfg config.Config, log *zap.Logger) error {
	email := cfg.Seed.SuperAdminEmail
	if email == "" {
		email = "superadmin@example.com"
	}

	_, err := st.GetUserByEmail(ctx, email)
	if err == nil {
		log.Info("super admin already exists, seeding skipped")
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	log.Info("super admin not found, seeding", zap.String("email", email))
	password := cfg.Seed.SuperAdminPassword
	if password == "" {
		password = "superadminpassword"
	}
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	superAdmin := &models.User{
		UserID:    "USR-" + uuid.New().String()[:8],
		Email:     email,
		Name:      "Super Admin",
		Password:  hashedPassword,
		Role:      models.RoleSuperAdmin,
		Status:    "ACTIVE",
		CreatedAt: time.Now(),
	}
	if err := st.CreateUser(ctx, superAdmin); err != nil {
		return err
	}

	log.Info("super admin seeded successfully")
	return nil
}

// SeedDemoData loads a small master-data set for local development:
// a handful of products, one supplier and two departments. Existing
// records are left alone.
func SeedDemoData(ctx context.Context, st store.Store, log *zap.Logger) error {
	products := []models.Product{
		{SKU: "BEEF-TND", Name: "Beef Tenderloin", Unit: "kg", Category: "meat"},
		{SKU: "TOMATO", Name: "Roma Tomato", Unit: "kg", Category: "produce"},
		{SKU: "OLIVE-OIL", Name: "Extra Virgin Olive Oil", Unit: "l", Category: "pantry"},
		{SKU: "NAPKIN", Name: "Linen Napkin", Unit: "pcs", Category: "supplies"},
	}
	for i := range products {
		products[i].CreatedAt = time.Now()
		if err := st.CreateProduct(ctx, &products[i]); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return err
		}
	}

	suppliers := []models.Supplier{
		{SupplierID: "SUP-METRO", Name: "Metro Wholesale", Contact: "orders@metro.example.com"},
	}
	for i := range suppliers {
		suppliers[i].CreatedAt = time.Now()
		if err := st.CreateSupplier(ctx, &suppliers[i]); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return err
		}
	}

	departments := []models.Department{
		{DepartmentID: "DEP-KITCHEN", Name: "Main Kitchen"},
		{DepartmentID: "DEP-HOUSEKEEPING", Name: "Housekeeping"},
	}
	for i := range departments {
		departments[i].CreatedAt = time.Now()
		if err := st.CreateDepartment(ctx, &departments[i]); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return err
		}
	}

	log.Info("demo master data seeded")
	return nil
}
