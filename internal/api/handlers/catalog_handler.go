package handlers

import (
	"errors"
	"net/http"
	"time"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"

	"github.com/gin-gonic/gin"
)

// CatalogHandler exposes the master data used by the workflow: products,
// suppliers and departments.
type CatalogHandler struct {
	Store store.Store
}

type CreateProductRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Unit     string `json:"unit" binding:"required"`
	Category string `json:"category"`
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := &models.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		Unit:      req.Unit,
		Category:  req.Category,
		CreatedAt: time.Now(),
	}
	if err := h.Store.CreateProduct(c.Request.Context(), product); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Product with this SKU already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	c.JSON(http.StatusCreated, product)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.Store.GetProduct(c.Request.Context(), c.Param("sku"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.Store.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query products"})
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.Store.DeleteProduct(c.Request.Context(), c.Param("sku")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

type CreateSupplierRequest struct {
	SupplierID string `json:"supplierID" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Contact    string `json:"contact"`
}

func (h *CatalogHandler) CreateSupplier(c *gin.Context) {
	var req CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supplier := &models.Supplier{
		SupplierID: req.SupplierID,
		Name:       req.Name,
		Contact:    req.Contact,
		CreatedAt:  time.Now(),
	}
	if err := h.Store.CreateSupplier(c.Request.Context(), supplier); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Supplier with this ID already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create supplier"})
		return
	}

	c.JSON(http.StatusCreated, supplier)
}

func (h *CatalogHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.Store.ListSuppliers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query suppliers"})
		return
	}
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}

	c.JSON(http.StatusOK, suppliers)
}

type CreateDepartmentRequest struct {
	DepartmentID string `json:"departmentID" binding:"required"`
	Name         string `json:"name" binding:"required"`
}

func (h *CatalogHandler) CreateDepartment(c *gin.Context) {
	var req CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	department := &models.Department{
		DepartmentID: req.DepartmentID,
		Name:         req.Name,
		CreatedAt:    time.Now(),
	}
	if err := h.Store.CreateDepartment(c.Request.Context(), department); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Department with this ID already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create department"})
		return
	}

	c.JSON(http.StatusCreated, department)
}

func (h *CatalogHandler) ListDepartments(c *gin.Context) {
	departments, err := h.Store.ListDepartments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query departments"})
		return
	}
	if departments == nil {
		departments = []models.Department{}
	}

	c.JSON(http.StatusOK, departments)
}
