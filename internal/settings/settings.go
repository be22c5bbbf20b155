// Package settings reads and writes site-level configuration stored in the
// settings table. Values are read through the store on every call rather
// than cached in process memory.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/licensegate/licensegate/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "LicenseGate"
)

// StringValue returns the string setting for key, or fallback when the key
// is absent or not a JSON string.
func StringValue(ctx context.Context, conn *gorm.DB, key, fallback string) (string, error) {
	if conn == nil {
		return fallback, errors.New("settings: nil db")
	}

	var row models.Setting
	errFind := conn.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fallback, nil
		}
		return fallback, errFind
	}

	var value string
	if errDecode := json.Unmarshal(row.Value, &value); errDecode != nil {
		return fallback, nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return value, nil
}

// SetStringValue upserts a string setting.
func SetStringValue(ctx context.Context, conn *gorm.DB, key, value string) error {
	if conn == nil {
		return errors.New("settings: nil db")
	}
	encoded, errEncode := json.Marshal(value)
	if errEncode != nil {
		return errEncode
	}
	row := models.Setting{Key: key, Value: encoded}
	return conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}
