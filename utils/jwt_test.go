package utils

import (
	"testing"
	"time"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateAdminToken(secret, "ops@rallyrent.test", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}
	sub, err := ValidateAdminToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateAdminToken: %v", err)
	}
	if sub != "ops@rallyrent.test" {
		t.Fatalf("sub = %q", sub)
	}
}

func TestAdminTokenRejections(t *testing.T) {
	secret := []byte("test-secret")

	expired, err := GenerateAdminToken(secret, "ops", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}
	if _, err := ValidateAdminToken(secret, expired); err == nil {
		t.Fatal("expired token accepted")
	}

	other, _ := GenerateAdminToken([]byte("other"), "ops", time.Hour)
	if _, err := ValidateAdminToken(secret, other); err == nil {
		t.Fatal("token signed with another secret accepted")
	}

	if _, err := GenerateAdminToken(nil, "ops", time.Hour); err == nil {
		t.Fatal("empty secret should be refused")
	}
}
