package handlers

import (
	"errors"
	"net/http"
	"time"

	"hospitality-procurement-api-server/internal/auth"
	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserHandler struct {
	Store store.Store
	Auth  *auth.Service
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a JWT.
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.Auth.GenerateJWT(user.UserID, user.Email, user.Role, user.DepartmentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

type CreateUserRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name" binding:"required"`
	Password     string `json:"password" binding:"required,min=8"`
	Role         string `json:"role" binding:"required"`
	DepartmentID string `json:"departmentID"`
}

// CreateUser registers a new staff account. Superadmin only.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Role {
	case models.RoleStaff, models.RoleValidator, models.RolePurchasing, models.RoleWarehouse, models.RoleSuperAdmin:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + req.Role})
		return
	}
	if req.Role == models.RoleStaff && req.DepartmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Department is required for staff accounts"})
		return
	}
	if req.DepartmentID != "" {
		if _, err := h.Store.GetDepartment(c.Request.Context(), req.DepartmentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown department: " + req.DepartmentID})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up department"})
			return
		}
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := &models.User{
		UserID:       "USR-" + uuid.New().String()[:8],
		Email:        req.Email,
		Name:         req.Name,
		Password:     hashed,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
		Status:       "ACTIVE",
		CreatedAt:    time.Now(),
	}
	if err := h.Store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}
