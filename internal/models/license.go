package models

import (
	"regexp"
	"time"
)

// License represents an issued license key.
type License struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Key    string `gorm:"type:text;not null;uniqueIndex"` // Unique license key.
	Email  string `gorm:"type:text;not null"`             // Licensee email.
	Domain string `gorm:"type:text"`                      // Optional domain binding; empty accepts any domain.

	// IsActive has no column default on purpose: gorm skips zero-valued
	// fields that carry a default tag on Create, which would silently turn
	// an inactive row active. Creation paths set the flag explicitly.
	IsActive bool `gorm:"not null"` // Whether the license is enabled.

	ActivatedAt *time.Time // Set once on the first successful verification, never overwritten.
	ExpiresAt   *time.Time // Nil means the license never expires.

	AdminID uint64 `gorm:"not null;index"`     // Creating admin ID.
	Admin   *Admin `gorm:"foreignKey:AdminID"` // Creating admin record.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// licenseKeyPattern matches five hyphen-separated groups of five uppercase alphanumerics.
var licenseKeyPattern = regexp.MustCompile(`^[A-Z0-9]{5}(-[A-Z0-9]{5}){4}$`)

// ValidLicenseKey reports whether key matches the XXXXX-XXXXX-XXXXX-XXXXX-XXXXX format.
func ValidLicenseKey(key string) bool {
	return licenseKeyPattern.MatchString(key)
}

// Expired reports whether the license expiry is strictly before now.
// A nil expiry never expires.
func (l *License) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}
