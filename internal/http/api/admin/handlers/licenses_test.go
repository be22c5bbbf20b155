package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/licensegate/licensegate/internal/models"
	"gorm.io/gorm"
)

const testLicenseKey = "AB12C-3D4E5-F6G7H-8J9K0-L1M2N"

// newLicenseRouter mounts the license routes behind a middleware that
// injects the authenticated admin, standing in for the JWT layer.
func newLicenseRouter(db *gorm.DB, adminID uint64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewLicenseHandler(db)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("adminID", adminID)
		c.Next()
	})
	router.GET("/api/admin/licenses", handler.List)
	router.POST("/api/admin/licenses", handler.Create)
	router.PATCH("/api/admin/licenses/:id", handler.Edit)
	router.PATCH("/api/admin/licenses/:id/extend", handler.Extend)
	router.DELETE("/api/admin/licenses/:id", handler.Delete)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if payload != nil {
		body, errEncode := json.Marshal(payload)
		if errEncode != nil {
			t.Fatalf("encode payload: %v", errEncode)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if errDecode := json.Unmarshal(w.Body.Bytes(), out); errDecode != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), errDecode)
	}
}

func TestCreateLicense(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	expires := time.Now().UTC().Add(30 * 24 * time.Hour)
	w := doJSON(t, router, http.MethodPost, "/api/admin/licenses", gin.H{
		"key": testLicenseKey, "email": "customer@example.com", "expires_at": expires,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Key         string     `json:"key"`
		Email       string     `json:"email"`
		IsActive    bool       `json:"is_active"`
		ActivatedAt *time.Time `json:"activated_at"`
		CreatedBy   struct {
			Email string `json:"email"`
		} `json:"created_by"`
	}
	decodeJSON(t, w, &resp)
	if resp.Key != testLicenseKey {
		t.Fatalf("expected key %s, got %s", testLicenseKey, resp.Key)
	}
	if !resp.IsActive {
		t.Fatalf("new license must be active")
	}
	if resp.ActivatedAt != nil {
		t.Fatalf("new license must not be activated yet")
	}
	if resp.CreatedBy.Email != testAdminEmail {
		t.Fatalf("expected creator %s, got %s", testAdminEmail, resp.CreatedBy.Email)
	}
}

func TestCreateLicenseDuplicateKey(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	payload := gin.H{"key": testLicenseKey, "email": "customer@example.com"}
	if w := doJSON(t, router, http.MethodPost, "/api/admin/licenses", payload); w.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d", w.Code)
	}
	w := doJSON(t, router, http.MethodPost, "/api/admin/licenses", payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate create: expected 400, got %d", w.Code)
	}
	var resp map[string]string
	decodeJSON(t, w, &resp)
	if resp["error"] != "license key already exists" {
		t.Fatalf("expected license key already exists, got %q", resp["error"])
	}
}

func TestCreateLicenseNormalizesAndValidatesKey(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	// Lowercase input is uppercased before validation and storage.
	w := doJSON(t, router, http.MethodPost, "/api/admin/licenses", gin.H{
		"key": "  ab12c-3d4e5-f6g7h-8j9k0-l1m2n ", "email": "customer@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Key string `json:"key"`
	}
	decodeJSON(t, w, &created)
	if created.Key != testLicenseKey {
		t.Fatalf("expected normalized key %s, got %s", testLicenseKey, created.Key)
	}

	w = doJSON(t, router, http.MethodPost, "/api/admin/licenses", gin.H{
		"key": "TOO-SHORT", "email": "customer@example.com",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed key: expected 400, got %d", w.Code)
	}
	var resp map[string]string
	decodeJSON(t, w, &resp)
	if resp["error"] != "invalid license key format" {
		t.Fatalf("expected invalid license key format, got %q", resp["error"])
	}
}

func TestCreateLicenseGeneratesKey(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	w := doJSON(t, router, http.MethodPost, "/api/admin/licenses", gin.H{
		"email": "customer@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Key string `json:"key"`
	}
	decodeJSON(t, w, &resp)
	if !models.ValidLicenseKey(resp.Key) {
		t.Fatalf("generated key %q must satisfy the key format", resp.Key)
	}
}

func TestCreateLicenseRequiresEmail(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	w := doJSON(t, router, http.MethodPost, "/api/admin/licenses", gin.H{"key": testLicenseKey})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestListLicensesFilters(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	seed := []models.License{
		{Key: "AAAAA-AAAAA-AAAAA-AAAAA-AAAAA", Email: "alice@example.com", IsActive: true, AdminID: admin.ID},
		{Key: "BBBBB-BBBBB-BBBBB-BBBBB-BBBBB", Email: "bob@example.com", IsActive: true, AdminID: admin.ID},
	}
	for i := range seed {
		if errCreate := db.Create(&seed[i]).Error; errCreate != nil {
			t.Fatalf("seed license: %v", errCreate)
		}
	}

	var listing struct {
		Licenses []struct {
			Key string `json:"key"`
		} `json:"licenses"`
	}

	w := doJSON(t, router, http.MethodGet, "/api/admin/licenses", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	decodeJSON(t, w, &listing)
	if len(listing.Licenses) != 2 {
		t.Fatalf("expected 2 licenses, got %d", len(listing.Licenses))
	}

	// Filters match case-insensitively on substrings.
	w = doJSON(t, router, http.MethodGet, "/api/admin/licenses?email=ALICE", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	decodeJSON(t, w, &listing)
	if len(listing.Licenses) != 1 || listing.Licenses[0].Key != "AAAAA-AAAAA-AAAAA-AAAAA-AAAAA" {
		t.Fatalf("email filter returned wrong rows: %+v", listing.Licenses)
	}

	w = doJSON(t, router, http.MethodGet, "/api/admin/licenses?key=bbbbb", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	decodeJSON(t, w, &listing)
	if len(listing.Licenses) != 1 || listing.Licenses[0].Key != "BBBBB-BBBBB-BBBBB-BBBBB-BBBBB" {
		t.Fatalf("key filter returned wrong rows: %+v", listing.Licenses)
	}
}

func TestEditLicense(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	license := models.License{Key: testLicenseKey, Email: "old@example.com", IsActive: true, AdminID: admin.ID}
	if errCreate := db.Create(&license).Error; errCreate != nil {
		t.Fatalf("seed license: %v", errCreate)
	}

	expires := time.Now().UTC().Add(90 * 24 * time.Hour)
	w := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/admin/licenses/%d", license.ID), gin.H{
		"key": testLicenseKey, "email": "new@example.com", "expires_at": expires,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var stored models.License
	if errFind := db.First(&stored, license.ID).Error; errFind != nil {
		t.Fatalf("reload license: %v", errFind)
	}
	if stored.Email != "new@example.com" {
		t.Fatalf("expected updated email, got %q", stored.Email)
	}
	if stored.ExpiresAt == nil {
		t.Fatalf("expected expiry to be set")
	}
}

func TestEditLicenseKeepingOwnKey(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	license := models.License{Key: testLicenseKey, Email: "a@example.com", IsActive: true, AdminID: admin.ID}
	other := models.License{Key: "ZZZZZ-ZZZZZ-ZZZZZ-ZZZZZ-ZZZZZ", Email: "b@example.com", IsActive: true, AdminID: admin.ID}
	for _, row := range []*models.License{&license, &other} {
		if errCreate := db.Create(row).Error; errCreate != nil {
			t.Fatalf("seed license: %v", errCreate)
		}
	}

	expires := time.Now().UTC().Add(time.Hour)

	// Re-submitting the row's own key is not a collision.
	w := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/admin/licenses/%d", license.ID), gin.H{
		"key": testLicenseKey, "email": "a@example.com", "expires_at": expires,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("own key: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Another row's key is.
	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/admin/licenses/%d", license.ID), gin.H{
		"key": other.Key, "email": "a@example.com", "expires_at": expires,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("stolen key: expected 400, got %d", w.Code)
	}
}

func TestExtendLicenseReactivates(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	past := time.Now().UTC().Add(-time.Hour)
	license := models.License{Key: testLicenseKey, Email: "a@example.com", IsActive: false, ExpiresAt: &past, AdminID: admin.ID}
	if errCreate := db.Create(&license).Error; errCreate != nil {
		t.Fatalf("seed license: %v", errCreate)
	}

	// The re-enable property only means something if the row really
	// starts out inactive.
	var seeded models.License
	if errFind := db.First(&seeded, license.ID).Error; errFind != nil {
		t.Fatalf("reload license: %v", errFind)
	}
	if seeded.IsActive {
		t.Fatalf("seeded license must start inactive")
	}

	future := time.Now().UTC().Add(365 * 24 * time.Hour)
	w := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/admin/licenses/%d/extend", license.ID), gin.H{
		"expires_at": future,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var stored models.License
	if errFind := db.First(&stored, license.ID).Error; errFind != nil {
		t.Fatalf("reload license: %v", errFind)
	}
	if !stored.IsActive {
		t.Fatalf("extend must re-enable the license")
	}
	if stored.ExpiresAt == nil || !stored.ExpiresAt.After(time.Now().UTC()) {
		t.Fatalf("extend must move the expiry into the future")
	}
}

func TestExtendLicenseRequiresExpiry(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	license := models.License{Key: testLicenseKey, Email: "a@example.com", IsActive: true, AdminID: admin.ID}
	if errCreate := db.Create(&license).Error; errCreate != nil {
		t.Fatalf("seed license: %v", errCreate)
	}

	w := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/admin/licenses/%d/extend", license.ID), gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	var resp map[string]string
	decodeJSON(t, w, &resp)
	if resp["error"] != "new expiration date is required" {
		t.Fatalf("expected new expiration date is required, got %q", resp["error"])
	}
}

func TestExtendLicenseNotFound(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	future := time.Now().UTC().Add(time.Hour)
	w := doJSON(t, router, http.MethodPatch, "/api/admin/licenses/424242/extend", gin.H{"expires_at": future})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestDeleteLicense(t *testing.T) {
	db := setupAuthDB(t)
	admin := createTestAdmin(t, db)
	router := newLicenseRouter(db, admin.ID)

	license := models.License{Key: testLicenseKey, Email: "a@example.com", IsActive: true, AdminID: admin.ID}
	if errCreate := db.Create(&license).Error; errCreate != nil {
		t.Fatalf("seed license: %v", errCreate)
	}

	path := fmt.Sprintf("/api/admin/licenses/%d", license.ID)
	if w := doJSON(t, router, http.MethodDelete, path, nil); w.Code != http.StatusOK {
		t.Fatalf("first delete: expected 200, got %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodDelete, path, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
}

func TestGenerateLicenseKeyFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		key, errGen := GenerateLicenseKey()
		if errGen != nil {
			t.Fatalf("generate key: %v", errGen)
		}
		if !models.ValidLicenseKey(key) {
			t.Fatalf("generated key %q must satisfy the key format", key)
		}
		seen[key] = true
	}
	if len(seen) < 2 {
		t.Fatalf("generated keys must vary")
	}
}
