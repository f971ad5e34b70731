package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"
)

type userRecord struct {
	UserID       string    `bson:"userID"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	Password     string    `bson:"password"`
	Role         string    `bson:"role"`
	DepartmentID string    `bson:"departmentID"`
	Status       string    `bson:"status"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.Collection(collUsers).InsertOne(ctx, userRecord{
		UserID:       u.UserID,
		Email:        u.Email,
		Name:         u.Name,
		Password:     u.Password,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
		Status:       u.Status,
		CreatedAt:    u.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var rec userRecord
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"email": email}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.User{
		UserID:       rec.UserID,
		Email:        rec.Email,
		Name:         rec.Name,
		Password:     rec.Password,
		Role:         rec.Role,
		DepartmentID: rec.DepartmentID,
		Status:       rec.Status,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	_, err := s.db.Collection(collProducts).InsertOne(ctx, bson.M{
		"sku":       p.SKU,
		"name":      p.Name,
		"unit":      p.Unit,
		"category":  p.Category,
		"createdAt": p.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetProduct(ctx context.Context, sku string) (*models.Product, error) {
	var rec struct {
		SKU       string    `bson:"sku"`
		Name      string    `bson:"name"`
		Unit      string    `bson:"unit"`
		Category  string    `bson:"category"`
		CreatedAt time.Time `bson:"createdAt"`
	}
	err := s.db.Collection(collProducts).FindOne(ctx, bson.M{"sku": sku}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.Product{SKU: rec.SKU, Name: rec.Name, Unit: rec.Unit, Category: rec.Category, CreatedAt: rec.CreatedAt}, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	cursor, err := s.db.Collection(collProducts).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "sku", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Product
	for cursor.Next(ctx) {
		var rec struct {
			SKU       string    `bson:"sku"`
			Name      string    `bson:"name"`
			Unit      string    `bson:"unit"`
			Category  string    `bson:"category"`
			CreatedAt time.Time `bson:"createdAt"`
		}
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, models.Product{SKU: rec.SKU, Name: rec.Name, Unit: rec.Unit, Category: rec.Category, CreatedAt: rec.CreatedAt})
	}
	return out, cursor.Err()
}

func (s *Store) DeleteProduct(ctx context.Context, sku string) error {
	result, err := s.db.Collection(collProducts).DeleteOne(ctx, bson.M{"sku": sku})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSupplier(ctx context.Context, sp *models.Supplier) error {
	_, err := s.db.Collection(collSuppliers).InsertOne(ctx, bson.M{
		"supplierID": sp.SupplierID,
		"name":       sp.Name,
		"contact":    sp.Contact,
		"createdAt":  sp.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetSupplier(ctx context.Context, supplierID string) (*models.Supplier, error) {
	var rec struct {
		SupplierID string    `bson:"supplierID"`
		Name       string    `bson:"name"`
		Contact    string    `bson:"contact"`
		CreatedAt  time.Time `bson:"createdAt"`
	}
	err := s.db.Collection(collSuppliers).FindOne(ctx, bson.M{"supplierID": supplierID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.Supplier{SupplierID: rec.SupplierID, Name: rec.Name, Contact: rec.Contact, CreatedAt: rec.CreatedAt}, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	cursor, err := s.db.Collection(collSuppliers).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "supplierID", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Supplier
	for cursor.Next(ctx) {
		var rec struct {
			SupplierID string    `bson:"supplierID"`
			Name       string    `bson:"name"`
			Contact    string    `bson:"contact"`
			CreatedAt  time.Time `bson:"createdAt"`
		}
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, models.Supplier{SupplierID: rec.SupplierID, Name: rec.Name, Contact: rec.Contact, CreatedAt: rec.CreatedAt})
	}
	return out, cursor.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, d *models.Department) error {
	_, err := s.db.Collection(collDepartments).InsertOne(ctx, bson.M{
		"departmentID": d.DepartmentID,
		"name":         d.Name,
		"createdAt":    d.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetDepartment(ctx context.Context, departmentID string) (*models.Department, error) {
	var rec struct {
		DepartmentID string    `bson:"departmentID"`
		Name         string    `bson:"name"`
		CreatedAt    time.Time `bson:"createdAt"`
	}
	err := s.db.Collection(collDepartments).FindOne(ctx, bson.M{"departmentID": departmentID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.Department{DepartmentID: rec.DepartmentID, Name: rec.Name, CreatedAt: rec.CreatedAt}, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	cursor, err := s.db.Collection(collDepartments).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "departmentID", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Department
	for cursor.Next(ctx) {
		var rec struct {
			DepartmentID string    `bson:"departmentID"`
			Name         string    `bson:"name"`
			CreatedAt    time.Time `bson:"createdAt"`
		}
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, models.Department{DepartmentID: rec.DepartmentID, Name: rec.Name, CreatedAt: rec.CreatedAt})
	}
	return out, cursor.Err()
}
