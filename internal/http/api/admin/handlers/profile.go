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

// ProfileHandler handles the admin's own account operations.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// Get returns the calling admin's profile without sensitive fields.
func (h *ProfileHandler) Get(c *gin.Context) {
	admin, ok := h.loadAdmin(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatAdmin(admin))
}

// updateProfileRequest captures the payload for profile updates.
type updateProfileRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	MobileNumber    string `json:"mobile_number"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Update changes profile fields; the password is replaced only after the
// current password re-verifies.
func (h *ProfileHandler) Update(c *gin.Context) {
	admin, ok := h.loadAdmin(c)
	if !ok {
		return
	}

	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	username := strings.TrimSpace(body.Username)
	if name == "" || username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and username are required"})
		return
	}

	if username != admin.Username {
		var existing models.Admin
		errCheck := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&existing).Error
		if errCheck == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username is already taken"})
			return
		}
		if !errors.Is(errCheck, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
	}

	updates := map[string]any{
		"name":          name,
		"username":      username,
		"mobile_number": strings.TrimSpace(body.MobileNumber),
	}

	if body.CurrentPassword != "" && body.NewPassword != "" {
		if !security.CheckPassword(admin.Password, body.CurrentPassword) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "current password is incorrect"})
			return
		}
		hash, errHash := security.HashPassword(body.NewPassword)
		if errHash != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
			return
		}
		updates["password"] = hash
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update profile failed"})
		return
	}

	var updated models.Admin
	if errLoad := h.db.WithContext(c.Request.Context()).First(&updated, admin.ID).Error; errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	c.JSON(http.StatusOK, formatAdmin(&updated))
}

// GetSetupControl reports whether the calling admin keeps setup reachable.
func (h *ProfileHandler) GetSetupControl(c *gin.Context) {
	admin, ok := h.loadAdmin(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_setup_enabled": admin.IsSetupEnabled})
}

// setupControlRequest captures the setup gate toggle.
type setupControlRequest struct {
	IsSetupEnabled *bool `json:"is_setup_enabled"`
}

// SetSetupControl toggles the setup gate on the calling admin's record.
func (h *ProfileHandler) SetSetupControl(c *gin.Context) {
	admin, ok := h.loadAdmin(c)
	if !ok {
		return
	}

	var body setupControlRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.IsSetupEnabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_setup_enabled is required"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Update("is_setup_enabled", *body.IsSetupEnabled).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update setup control failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":               admin.ID,
		"is_setup_enabled": *body.IsSetupEnabled,
	})
}

// loadAdmin fetches the authenticated admin row, responding on failure.
func (h *ProfileHandler) loadAdmin(c *gin.Context) (*models.Admin, bool) {
	adminID, okID := readAdminID(c)
	if !okID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "admin not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	return &admin, true
}

// formatAdmin renders an admin row without password or secret key.
func formatAdmin(admin *models.Admin) gin.H {
	return gin.H{
		"id":            admin.ID,
		"username":      admin.Username,
		"name":          admin.Name,
		"email":         admin.Email,
		"mobile_number": admin.MobileNumber,
		"profile_image": admin.ProfileImage,
		"last_known_ip": admin.LastKnownIP,
		"last_login_at": admin.LastLoginAt,
		"created_at":    admin.CreatedAt,
		"updated_at":    admin.UpdatedAt,
	}
}
