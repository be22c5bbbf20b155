package handlers

import (
	"crypto/rand"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/licensegate/licensegate/internal/db"
	"github.com/licensegate/licensegate/internal/models"
	"gorm.io/gorm"
)

// LicenseHandler handles admin operations for licenses.
type LicenseHandler struct {
	db *gorm.DB // Database handle for license queries.
}

// NewLicenseHandler wires a license handler with its database dependency.
func NewLicenseHandler(db *gorm.DB) *LicenseHandler {
	return &LicenseHandler{db: db}
}

// createLicenseRequest captures the payload for creating a license.
type createLicenseRequest struct {
	Key       string     `json:"key"`        // Optional; generated when empty.
	Email     string     `json:"email"`      // Licensee email.
	Domain    string     `json:"domain"`     // Optional domain binding.
	ExpiresAt *time.Time `json:"expires_at"` // Optional expiry; nil never expires.
}

// Create validates input and persists a new license owned by the caller.
func (h *LicenseHandler) Create(c *gin.Context) {
	var body createLicenseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email"})
		return
	}

	key := strings.ToUpper(strings.TrimSpace(body.Key))
	if key == "" {
		generated, errGen := GenerateLicenseKey()
		if errGen != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate license key"})
			return
		}
		key = generated
	}
	if !models.ValidLicenseKey(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid license key format"})
		return
	}

	var existing models.License
	errCheck := h.db.WithContext(c.Request.Context()).Where("key = ?", key).First(&existing).Error
	if errCheck == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "license key already exists"})
		return
	}
	if !errors.Is(errCheck, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	adminID, okAdmin := readAdminID(c)
	if !okAdmin {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	license := models.License{
		Key:       key,
		Email:     email,
		Domain:    strings.TrimSpace(body.Domain),
		IsActive:  true,
		ExpiresAt: body.ExpiresAt,
		AdminID:   adminID,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&license).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create license failed"})
		return
	}

	if errLoad := h.db.WithContext(c.Request.Context()).Preload("Admin").First(&license, license.ID).Error; errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load license failed"})
		return
	}
	c.JSON(http.StatusCreated, formatLicense(&license))
}

// List returns licenses newest-created first, optionally filtered by key
// or licensee email.
func (h *LicenseHandler) List(c *gin.Context) {
	var (
		keyQ   = strings.TrimSpace(c.Query("key"))
		emailQ = strings.TrimSpace(c.Query("email"))
	)

	q := h.db.WithContext(c.Request.Context()).
		Model(&models.License{}).
		Preload("Admin")
	if keyQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+keyQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "key"), pattern)
	}
	if emailQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+emailQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), pattern)
	}

	var rows []models.License
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list licenses failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatLicense(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"licenses": out})
}

// editLicenseRequest captures the payload for editing a license.
type editLicenseRequest struct {
	Key       string     `json:"key"`
	Email     string     `json:"email"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Edit overwrites key, email and expiry. The active flag and activation
// timestamp are not touched.
func (h *LicenseHandler) Edit(c *gin.Context) {
	id, okID := parseLicenseID(c)
	if !okID {
		return
	}

	var body editLicenseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	key := strings.ToUpper(strings.TrimSpace(body.Key))
	email := strings.TrimSpace(body.Email)
	if key == "" || email == "" || body.ExpiresAt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key, email and expires_at are required"})
		return
	}
	if !models.ValidLicenseKey(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid license key format"})
		return
	}

	var license models.License
	if errFind := h.db.WithContext(c.Request.Context()).First(&license, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "license not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	// Self-collision is excluded: the row may keep its own key.
	var collision models.License
	errCheck := h.db.WithContext(c.Request.Context()).
		Where("key = ? AND id <> ?", key, id).
		First(&collision).Error
	if errCheck == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "license key already exists"})
		return
	}
	if !errors.Is(errCheck, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.License{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"key":        key,
			"email":      email,
			"expires_at": body.ExpiresAt,
		}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update license failed"})
		return
	}

	if errLoad := h.db.WithContext(c.Request.Context()).Preload("Admin").First(&license, id).Error; errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load license failed"})
		return
	}
	c.JSON(http.StatusOK, formatLicense(&license))
}

// extendLicenseRequest captures the payload for extending a license.
type extendLicenseRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

// Extend sets a new expiry and unconditionally re-enables the license.
func (h *LicenseHandler) Extend(c *gin.Context) {
	id, okID := parseLicenseID(c)
	if !okID {
		return
	}

	var body extendLicenseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ExpiresAt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new expiration date is required"})
		return
	}

	var license models.License
	if errFind := h.db.WithContext(c.Request.Context()).First(&license, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "license not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.License{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"expires_at": body.ExpiresAt,
			"is_active":  true,
		}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "extend license failed"})
		return
	}

	if errLoad := h.db.WithContext(c.Request.Context()).Preload("Admin").First(&license, id).Error; errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load license failed"})
		return
	}
	c.JSON(http.StatusOK, formatLicense(&license))
}

// Delete hard-removes a license. Deleting the same id twice yields 404
// the second time.
func (h *LicenseHandler) Delete(c *gin.Context) {
	id, okID := parseLicenseID(c)
	if !okID {
		return
	}

	var license models.License
	if errFind := h.db.WithContext(c.Request.Context()).First(&license, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "license not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if errDelete := h.db.WithContext(c.Request.Context()).Delete(&models.License{}, id).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete license failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "license deleted"})
}

// formatLicense renders a license row with its creator for API responses.
func formatLicense(license *models.License) gin.H {
	out := gin.H{
		"id":           license.ID,
		"key":          license.Key,
		"email":        license.Email,
		"domain":       license.Domain,
		"is_active":    license.IsActive,
		"activated_at": license.ActivatedAt,
		"expires_at":   license.ExpiresAt,
		"created_at":   license.CreatedAt,
		"updated_at":   license.UpdatedAt,
	}
	if license.Admin != nil {
		out["created_by"] = gin.H{
			"name":  license.Admin.Name,
			"email": license.Admin.Email,
		}
	}
	return out
}

// parseLicenseID reads the :id path parameter, responding 400 on garbage.
func parseLicenseID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid license id"})
		return 0, false
	}
	return id, true
}

// readAdminID extracts the authenticated admin ID from the gin context.
func readAdminID(c *gin.Context) (uint64, bool) {
	value, ok := c.Get("adminID")
	if !ok {
		return 0, false
	}
	id, okID := value.(uint64)
	return id, okID
}

// licenseKeyAlphabet holds the characters used in generated license keys.
const licenseKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateLicenseKey returns a random key in the
// XXXXX-XXXXX-XXXXX-XXXXX-XXXXX format.
func GenerateLicenseKey() (string, error) {
	groups := make([]string, 0, 5)
	buf := make([]byte, 5)
	for g := 0; g < 5; g++ {
		for i := range buf {
			n, errRand := rand.Int(rand.Reader, big.NewInt(int64(len(licenseKeyAlphabet))))
			if errRand != nil {
				return "", errRand
			}
			buf[i] = licenseKeyAlphabet[n.Int64()]
		}
		groups = append(groups, string(buf))
	}
	return strings.Join(groups, "-"), nil
}
