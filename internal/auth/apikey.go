package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/krobus00/trading-service/internal/config"
)

var (
	ErrAPIKeyMissing  = errors.New("api key is required")
	ErrAPIKeyInvalid  = errors.New("invalid api key")
	ErrAPIKeyInactive = errors.New("api key is inactive")
	ErrAPIKeyExpired  = errors.New("api key is expired")
)

// ValidateAPIKey checks the presented key against the configured service
// keys. Comparison is constant time so lookups do not leak key prefixes.
func ValidateAPIKey(rawAPIKey string) error {
	apiKey := strings.TrimSpace(rawAPIKey)
	if apiKey == "" {
		return ErrAPIKeyMissing
	}

	if config.Env == nil || len(config.Env.APIKeys) == 0 {
		return ErrAPIKeyInvalid
	}

	now := time.Now().UTC()
	for _, candidate := range config.Env.APIKeys {
		storedKey := strings.TrimSpace(candidate.Key)
		if storedKey == "" {
			continue
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(storedKey)) != 1 {
			continue
		}

		if !candidate.Active {
			return ErrAPIKeyInactive
		}

		expiredAt, hasExpiry, err := parseExpiry(candidate.ExpiredAt)
		if err != nil {
			return ErrAPIKeyInvalid
		}
		if !hasExpiry {
			return nil
		}

		if !now.Before(expiredAt) {
			return ErrAPIKeyExpired
		}

		return nil
	}

	return ErrAPIKeyInvalid
}

func parseExpiry(value any) (time.Time, bool, error) {
	if value == nil {
		return time.Time{}, false, nil
	}

	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false, nil
		}
		return v.UTC(), true, nil
	case string:
		raw := strings.TrimSpace(v)
		if raw == "" {
			return time.Time{}, false, nil
		}

		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			return parsed.UTC(), true, nil
		}

		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, false, err
		}

		// date-only expiry means valid through the end of that day
		return parsed.UTC().Add(24 * time.Hour), true, nil
	default:
		return time.Time{}, false, errors.New("unsupported expiry type")
	}
}
