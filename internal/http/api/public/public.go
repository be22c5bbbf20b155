// Package public wires the unauthenticated API surface: license
// verification, first-run setup, and site configuration.
package public

import (
	"github.com/gin-gonic/gin"
	"github.com/licensegate/licensegate/internal/http/api/public/handlers"
	"gorm.io/gorm"
)

// RegisterPublicRoutes mounts the unauthenticated endpoints.
func RegisterPublicRoutes(engine *gin.Engine, db *gorm.DB) {
	verifyHandler := handlers.NewVerifyHandler(db)
	setupHandler := handlers.NewSetupHandler(db)
	configHandler := handlers.NewConfigHandler(db)

	api := engine.Group("/api")

	api.POST("/verify-license", verifyHandler.VerifyLicense)
	api.GET("/setup/check-access", setupHandler.CheckAccess)
	api.POST("/setup", setupHandler.Setup)
	api.GET("/config", configHandler.Get)
}
