package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/licensegate/licensegate/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// VerifyHandler handles the public license verification endpoint.
type VerifyHandler struct {
	db *gorm.DB
}

// NewVerifyHandler constructs a VerifyHandler.
func NewVerifyHandler(db *gorm.DB) *VerifyHandler {
	return &VerifyHandler{db: db}
}

// verifyLicenseRequest is the request body third-party software submits.
type verifyLicenseRequest struct {
	Key    string `json:"key"`
	Domain string `json:"domain"`
}

// verifyLicenseResponse is the stable external contract: field names and
// the five documented outcomes must not change.
type verifyLicenseResponse struct {
	Valid     bool       `json:"valid"`
	Message   string     `json:"message"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// VerifyLicense runs the ordered validity checks for a key. The first
// failing check determines the response. A passing check marks the
// license activated if it was not already.
func (h *VerifyHandler) VerifyLicense(c *gin.Context) {
	var body verifyLicenseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, verifyLicenseResponse{Valid: false, Message: "license key is required"})
		return
	}
	key := strings.TrimSpace(body.Key)
	if key == "" {
		c.JSON(http.StatusBadRequest, verifyLicenseResponse{Valid: false, Message: "license key is required"})
		return
	}

	var license models.License
	if errFind := h.db.WithContext(c.Request.Context()).Where("key = ?", key).First(&license).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, verifyLicenseResponse{Valid: false, Message: "license key not found"})
			return
		}
		log.WithError(errFind).Error("license lookup failed")
		c.JSON(http.StatusInternalServerError, verifyLicenseResponse{Valid: false, Message: "internal server error"})
		return
	}

	if !license.IsActive {
		c.JSON(http.StatusForbidden, verifyLicenseResponse{Valid: false, Message: "license inactive"})
		return
	}

	if license.Expired(time.Now().UTC()) {
		c.JSON(http.StatusForbidden, verifyLicenseResponse{Valid: false, Message: "license expired"})
		return
	}

	// A license without a stored domain accepts any caller; a caller that
	// omits the domain is never domain-checked.
	domain := strings.TrimSpace(body.Domain)
	if domain != "" && license.Domain != "" && license.Domain != domain {
		c.JSON(http.StatusForbidden, verifyLicenseResponse{Valid: false, Message: "domain mismatch"})
		return
	}

	// First successful verification marks activation. The guarded update
	// keeps the timestamp set-once even when two verifications race: both
	// writers observe a null column and converge on equivalent values.
	if license.ActivatedAt == nil {
		now := time.Now().UTC()
		if errUpdate := h.db.WithContext(c.Request.Context()).
			Model(&models.License{}).
			Where("id = ? AND activated_at IS NULL", license.ID).
			Update("activated_at", now).Error; errUpdate != nil {
			log.WithError(errUpdate).WithField("license_id", license.ID).Error("activation stamp failed")
		}
	}

	c.JSON(http.StatusOK, verifyLicenseResponse{
		Valid:     true,
		Message:   "license verified successfully",
		ExpiresAt: license.ExpiresAt,
	})
}
