package models

import "time"

// Admin represents the operator account stored in the database.
//
// The verification code and its expiry form the server-side state of the
// two-step login flow: both are null until a code is requested, and both
// are cleared together when a code is accepted. An expired code is never
// purged proactively; it is rejected at comparison time.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Name     string `gorm:"type:text;not null"`             // Display name.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	SecretKey    string `gorm:"type:text;not null"` // Shared login secret, compared verbatim.
	MobileNumber string `gorm:"type:text"`          // Contact number.
	ProfileImage string `gorm:"type:text"`          // Opaque profile image reference.

	LastKnownIP string     `gorm:"type:text"` // Client IP recorded on setup and login.
	LastLoginAt *time.Time // Timestamp of the last completed login.

	VerificationCode    *string    `gorm:"type:text"` // Pending one-time login code.
	VerificationExpires *time.Time // Expiry of the pending code.

	IsSetupEnabled bool `gorm:"not null;default:false"` // Keeps the setup endpoint reachable.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// HasPendingCode reports whether a verification code pair is stored.
func (a *Admin) HasPendingCode() bool {
	return a.VerificationCode != nil && a.VerificationExpires != nil
}

// CodeExpired reports whether the stored code is past its expiry at now.
// It returns false when no code is pending.
func (a *Admin) CodeExpired(now time.Time) bool {
	if !a.HasPendingCode() {
		return false
	}
	return a.VerificationExpires.Before(now)
}
