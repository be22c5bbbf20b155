// Package admin wires the session-gated administrative API.
package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/licensegate/licensegate/internal/config"
	"github.com/licensegate/licensegate/internal/http/api/admin/handlers"
	"github.com/licensegate/licensegate/internal/mail"
	"gorm.io/gorm"
)

// RegisterAdminRoutes mounts authentication and admin-only endpoints.
func RegisterAdminRoutes(engine *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, sender mail.Sender) {
	authHandler := handlers.NewAuthHandler(db, jwtCfg, sender)
	licenseHandler := handlers.NewLicenseHandler(db)
	profileHandler := handlers.NewProfileHandler(db)

	api := engine.Group("/api/admin")

	api.POST("/auth/request-code", authHandler.RequestCode)
	api.POST("/auth/verify-code", authHandler.VerifyCode)

	protected := api.Group("", adminAuthMiddleware(jwtCfg))

	protected.GET("/licenses", licenseHandler.List)
	protected.POST("/licenses", licenseHandler.Create)
	protected.PATCH("/licenses/:id", licenseHandler.Edit)
	protected.PATCH("/licenses/:id/extend", licenseHandler.Extend)
	protected.DELETE("/licenses/:id", licenseHandler.Delete)

	protected.GET("/profile", profileHandler.Get)
	protected.PATCH("/profile", profileHandler.Update)
	protected.GET("/profile/setup-control", profileHandler.GetSetupControl)
	protected.POST("/profile/setup-control", profileHandler.SetSetupControl)
}
