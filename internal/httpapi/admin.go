package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"faceattend/internal/auth"
	"faceattend/internal/model"
	"faceattend/internal/sqlstore"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges admin credentials for a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.store.FindAdmin(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if a == nil || !auth.CheckPassword(a.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password."})
		return
	}
	h.issue(c, a)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh trades a refresh token for a new pair while the admin still exists.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, err := auth.ParseKind(req.RefreshToken, h.cfg.JWTSigningKey, h.cfg.JWTIssuer, auth.KindRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	a, err := h.store.FindAdmin(c.Request.Context(), claims.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if a == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	h.issue(c, a)
}

func (h *Handler) issue(c *gin.Context, a *model.Admin) {
	tokens, err := auth.Issue(a.Username, auth.RoleAdmin, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens, "admin": a})
}

type createAdminRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	DepartmentID    *int64 `json:"department_id"`
}

// CreateAdmin registers another admin. Only existing admins may call it.
func (h *Handler) CreateAdmin(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match!"})
		return
	}

	a, err := NewAdmin(req.Username, req.Password, req.DepartmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.CreateAdmin(c.Request.Context(), a); err != nil {
		if errors.Is(err, sqlstore.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists!"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error registering admin: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, a)
}

// NewAdmin validates credentials and hashes the password.
func NewAdmin(username, password string, departmentID *int64) (*model.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("password: %w", err)
	}
	return &model.Admin{Username: username, PasswordHash: hash, DepartmentID: departmentID}, nil
}

// EnsureAdmin creates username with password unless it already exists.
func EnsureAdmin(ctx context.Context, s AdminStore, username, password string) (bool, error) {
	existing, err := s.FindAdmin(ctx, username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	a, err := NewAdmin(username, password, nil)
	if err != nil {
		return false, err
	}
	if err := s.CreateAdmin(ctx, a); err != nil {
		if errors.Is(err, sqlstore.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
