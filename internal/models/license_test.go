package models

import (
	"testing"
	"time"
)

func TestValidLicenseKey(t *testing.T) {
	valid := []string{
		"AB12C-3D4E5-F6G7H-8J9K0-L1M2N",
		"AAAAA-AAAAA-AAAAA-AAAAA-AAAAA",
		"00000-11111-22222-33333-44444",
	}
	for _, key := range valid {
		if !ValidLicenseKey(key) {
			t.Fatalf("expected %q to be valid", key)
		}
	}

	invalid := []string{
		"",
		"AB12C-3D4E5-F6G7H-8J9K0",
		"AB12C-3D4E5-F6G7H-8J9K0-L1M2N-XXXXX",
		"ab12c-3d4e5-f6g7h-8j9k0-l1m2n",
		"AB12C 3D4E5 F6G7H 8J9K0 L1M2N",
		"AB1!C-3D4E5-F6G7H-8J9K0-L1M2N",
		"AB12-3D4E5-F6G7H-8J9K0-L1M2N",
	}
	for _, key := range invalid {
		if ValidLicenseKey(key) {
			t.Fatalf("expected %q to be invalid", key)
		}
	}
}

func TestLicenseExpired(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	noExpiry := License{}
	if noExpiry.Expired(now) {
		t.Fatalf("nil expiry must never expire")
	}

	past := now.Add(-time.Minute)
	expired := License{ExpiresAt: &past}
	if !expired.Expired(now) {
		t.Fatalf("past expiry must be expired")
	}

	future := now.Add(time.Minute)
	active := License{ExpiresAt: &future}
	if active.Expired(now) {
		t.Fatalf("future expiry must not be expired")
	}

	exact := License{ExpiresAt: &now}
	if exact.Expired(now) {
		t.Fatalf("expiry equal to now is not strictly before now")
	}
}
