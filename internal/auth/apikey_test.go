package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/krobus00/trading-service/internal/config"
)

func setAPIKeys(t *testing.T, keys []config.APIKeyConfig) {
	t.Helper()

	previous := config.Env
	config.Env = &config.EnvConfig{APIKeys: keys}
	t.Cleanup(func() { config.Env = previous })
}

func TestValidateAPIKey(t *testing.T) {
	futureExpiry := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	pastExpiry := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)

	setAPIKeys(t, []config.APIKeyConfig{
		{Name: "active", Key: "active-key", Active: true},
		{Name: "inactive", Key: "inactive-key", Active: false},
		{Name: "expiring", Key: "expiring-key", Active: true, ExpiredAt: futureExpiry},
		{Name: "expired", Key: "expired-key", Active: true, ExpiredAt: pastExpiry},
		{Name: "blank", Key: "   ", Active: true},
	})

	tests := []struct {
		name    string
		apiKey  string
		wantErr error
	}{
		{name: "active key", apiKey: "active-key"},
		{name: "active key with surrounding spaces", apiKey: "  active-key  "},
		{name: "key with future expiry", apiKey: "expiring-key"},
		{name: "empty key", apiKey: "", wantErr: ErrAPIKeyMissing},
		{name: "whitespace key", apiKey: "   ", wantErr: ErrAPIKeyMissing},
		{name: "unknown key", apiKey: "nope", wantErr: ErrAPIKeyInvalid},
		{name: "inactive key", apiKey: "inactive-key", wantErr: ErrAPIKeyInactive},
		{name: "expired key", apiKey: "expired-key", wantErr: ErrAPIKeyExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAPIKey(tt.apiKey); !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateAPIKey(%q) error = %v, want %v", tt.apiKey, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAPIKeyNoConfiguredKeys(t *testing.T) {
	setAPIKeys(t, nil)

	if err := ValidateAPIKey("any"); !errors.Is(err, ErrAPIKeyInvalid) {
		t.Fatalf("ValidateAPIKey() error = %v, want %v", err, ErrAPIKeyInvalid)
	}
}

func TestValidateAPIKeyDateOnlyExpiry(t *testing.T) {
	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")
	longAgo := "2020-01-01"

	setAPIKeys(t, []config.APIKeyConfig{
		{Name: "valid", Key: "valid-key", Active: true, ExpiredAt: tomorrow},
		{Name: "stale", Key: "stale-key", Active: true, ExpiredAt: longAgo},
	})

	if err := ValidateAPIKey("valid-key"); err != nil {
		t.Fatalf("ValidateAPIKey() error = %v", err)
	}
	if err := ValidateAPIKey("stale-key"); !errors.Is(err, ErrAPIKeyExpired) {
		t.Fatalf("ValidateAPIKey() error = %v, want %v", err, ErrAPIKeyExpired)
	}
}
