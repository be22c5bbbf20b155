package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/licensegate/licensegate/internal/models"
	"github.com/licensegate/licensegate/internal/security"
	"gorm.io/gorm"
)

// SetupHandler handles the first-run account creation flow.
type SetupHandler struct {
	db *gorm.DB
}

// NewSetupHandler constructs a SetupHandler.
func NewSetupHandler(db *gorm.DB) *SetupHandler {
	return &SetupHandler{db: db}
}

// CheckAccess reports whether the setup endpoint is currently reachable.
// The condition is evaluated against the store on every call: setup is
// open while no admin exists, or while an admin has re-enabled it.
func (h *SetupHandler) CheckAccess(c *gin.Context) {
	allowed, errCheck := setupAllowed(c, h.db)
	if errCheck != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "setup access check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_allowed": allowed})
}

// setupRequest captures the payload for creating the admin account.
type setupRequest struct {
	Username     string `json:"username"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	SecretKey    string `json:"secret_key"`
	MobileNumber string `json:"mobile_number"`
	ProfileImage string `json:"profile_image"` // Opaque reference; upload storage is external.
}

// Setup creates the admin account while the setup gate is open.
func (h *SetupHandler) Setup(c *gin.Context) {
	allowed, errCheck := setupAllowed(c, h.db)
	if errCheck != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "setup access check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "setup is disabled"})
		return
	}

	var body setupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	name := strings.TrimSpace(body.Name)
	email := strings.TrimSpace(body.Email)
	password := strings.TrimSpace(body.Password)
	secretKey := body.SecretKey
	mobileNumber := strings.TrimSpace(body.MobileNumber)
	if username == "" || name == "" || email == "" || password == "" || secretKey == "" || mobileNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
		return
	}

	var existing models.Admin
	errDup := h.db.WithContext(c.Request.Context()).
		Where("username = ? OR email = ?", username, email).
		First(&existing).Error
	if errDup == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username or email already exists"})
		return
	}
	if !errors.Is(errDup, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	admin := models.Admin{
		Username:       username,
		Name:           name,
		Email:          email,
		Password:       hash,
		SecretKey:      secretKey,
		MobileNumber:   mobileNumber,
		ProfileImage:   strings.TrimSpace(body.ProfileImage),
		LastKnownIP:    c.ClientIP(),
		IsSetupEnabled: true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&admin).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create admin failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":            admin.ID,
		"username":      admin.Username,
		"name":          admin.Name,
		"email":         admin.Email,
		"mobile_number": admin.MobileNumber,
		"profile_image": admin.ProfileImage,
		"created_at":    admin.CreatedAt,
	})
}

// setupAllowed evaluates the setup gate against the store.
func setupAllowed(c *gin.Context, db *gorm.DB) (bool, error) {
	var count int64
	if errCount := db.WithContext(c.Request.Context()).Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	if count == 0 {
		return true, nil
	}

	var enabled int64
	if errCount := db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("is_setup_enabled = ?", true).
		Count(&enabled).Error; errCount != nil {
		return false, errCount
	}
	return enabled > 0, nil
}
