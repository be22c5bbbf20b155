package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/licensegate/licensegate/internal/settings"
	"gorm.io/gorm"
)

// ConfigHandler serves public site configuration.
type ConfigHandler struct {
	db *gorm.DB
}

// NewConfigHandler constructs a ConfigHandler.
func NewConfigHandler(db *gorm.DB) *ConfigHandler {
	return &ConfigHandler{db: db}
}

// Get returns site-level configuration for the UI.
func (h *ConfigHandler) Get(c *gin.Context) {
	siteName, errLoad := settings.StringValue(c.Request.Context(), h.db, settings.SiteNameKey, settings.DefaultSiteName)
	if errLoad != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load site config failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"site_name": siteName})
}
