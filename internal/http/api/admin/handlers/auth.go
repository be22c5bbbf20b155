package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/licensegate/licensegate/internal/config"
	"github.com/licensegate/licensegate/internal/mail"
	"github.com/licensegate/licensegate/internal/models"
	"github.com/licensegate/licensegate/internal/otp"
	"github.com/licensegate/licensegate/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Verification code timing.
const (
	// codeTTL is the lifetime of an issued verification code.
	codeTTL = 5 * time.Minute
	// resendCooldown rejects a new code request while the previous code is
	// this fresh. The cooldown is enforced server-side; client timers alone
	// are bypassable.
	resendCooldown = 60 * time.Second
)

// AuthHandler handles the two-step admin login flow.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
	sender mail.Sender
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, sender mail.Sender) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, sender: sender}
}

// requestCodeRequest defines the request body for the first login step.
type requestCodeRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	SecretKey string `json:"secret_key"`
}

// RequestCode validates primary credentials, then stores and emails a
// fresh verification code. Repeating the request while a code is pending
// acts as a resend and overwrites the stored pair, subject to a cooldown.
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var body requestCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	password := strings.TrimSpace(body.Password)
	secretKey := body.SecretKey
	if email == "" || password == "" || secretKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, password and secret key are required"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&admin).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if !security.CheckPassword(admin.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if admin.SecretKey != secretKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret key"})
		return
	}

	now := time.Now().UTC()
	if admin.HasPendingCode() && !admin.CodeExpired(now) {
		issuedAt := admin.VerificationExpires.Add(-codeTTL)
		if now.Before(issuedAt.Add(resendCooldown)) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "a verification code was sent recently, please wait before requesting another"})
			return
		}
	}

	code, errCode := otp.GenerateCode()
	if errCode != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate verification code"})
		return
	}
	expires := now.Add(codeTTL)

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Updates(map[string]any{
			"verification_code":    code,
			"verification_expires": expires,
		}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store verification code"})
		return
	}

	// The code stays valid even if delivery fails; a resend reuses the
	// same flow rather than rolling back.
	subject := "Your Login Verification Code"
	if errSend := h.sender.Send(admin.Email, subject, mail.VerificationCodeBody(code, codeTTL)); errSend != nil {
		log.WithError(errSend).WithField("admin_id", admin.ID).Error("verification code delivery failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send verification code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

// verifyCodeRequest defines the request body for the second login step.
type verifyCodeRequest struct {
	Email     string `json:"email"`
	Code      string `json:"code"`
	SecretKey string `json:"secret_key"`
}

// VerifyCode checks the submitted code against the stored pair and issues
// the admin session token. The stored pair is cleared on first success, so
// a code verifies exactly once.
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var body verifyCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	code := strings.TrimSpace(body.Code)
	if email == "" || code == "" || body.SecretKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, code and secret key are required"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&admin).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	// The secret key is re-checked on the second step.
	if admin.SecretKey != body.SecretKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret key"})
		return
	}

	if !admin.HasPendingCode() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no verification code requested"})
		return
	}

	now := time.Now().UTC()
	if admin.CodeExpired(now) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "verification code has expired"})
		return
	}

	if *admin.VerificationCode != code {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid verification code"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Updates(map[string]any{
			"verification_code":    nil,
			"verification_expires": nil,
			"last_login_at":        now,
			"last_known_ip":        c.ClientIP(),
		}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete login"})
		return
	}

	token, errToken := security.GenerateAdminToken(h.jwtCfg.Secret, admin.ID, admin.Email, admin.Name, h.jwtCfg.Expiry())
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":       admin.ID,
			"username": admin.Username,
			"name":     admin.Name,
			"email":    admin.Email,
		},
	})
}
