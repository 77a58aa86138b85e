package config

import (
	"encoding/base64"
	"testing"
	"time"
)

func testSecret() string {
	return base64.StdEncoding.EncodeToString([]byte("secret-key-material-for-tests-01"))
}

func TestLoad_DefaultsWithRequiredSecrets(t *testing.T) {
	t.Setenv("USERSVC_JWT_ACCESS_SECRET", testSecret())
	t.Setenv("USERSVC_JWT_REFRESH_SECRET", testSecret())
	t.Setenv("USERSVC_JWT_TOKEN_PEPPER", "pepper")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "user-service" {
		t.Fatalf("expected default app name, got %s", cfg.App.Name)
	}
	if cfg.Redis.KeyPrefix != "user-service" {
		t.Fatalf("expected default key prefix, got %s", cfg.Redis.KeyPrefix)
	}
	if cfg.JWT.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m access ttl, got %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.JWT.RefreshTokenTTL != 336*time.Hour {
		t.Fatalf("expected 336h refresh ttl, got %v", cfg.JWT.RefreshTokenTTL)
	}
	if cfg.JWT.ClockSkew != 120*time.Second {
		t.Fatalf("expected 120s clock skew, got %v", cfg.JWT.ClockSkew)
	}
	if cfg.Email.CodeTTL != 5*time.Minute || cfg.Email.Cooltime != 60*time.Second {
		t.Fatalf("unexpected email policy: %+v", cfg.Email)
	}
	if cfg.Email.MaxAttempts != 5 {
		t.Fatalf("expected 5 max attempts, got %d", cfg.Email.MaxAttempts)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("USERSVC_JWT_ACCESS_SECRET", testSecret())
	t.Setenv("USERSVC_JWT_REFRESH_SECRET", testSecret())
	t.Setenv("USERSVC_JWT_TOKEN_PEPPER", "pepper")
	t.Setenv("USERSVC_JWT_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("USERSVC_REDIS_KEY_PREFIX", "staging")
	t.Setenv("USERSVC_EMAIL_MAX_ATTEMPTS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.JWT.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.Redis.KeyPrefix != "staging" {
		t.Fatalf("expected staging key prefix, got %s", cfg.Redis.KeyPrefix)
	}
	if cfg.Email.MaxAttempts != 3 {
		t.Fatalf("expected 3 max attempts, got %d", cfg.Email.MaxAttempts)
	}
}

func TestValidate(t *testing.T) {
	base := AppConfig{
		JWT: JWTSettings{
			AccessSecret:    testSecret(),
			RefreshSecret:   testSecret(),
			AccessTokenTTL:  30 * time.Minute,
			RefreshTokenTTL: 336 * time.Hour,
			TokenPepper:     "pepper",
		},
		Email: EmailSettings{MaxAttempts: 5},
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg := base
	cfg.JWT.AccessSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing access secret")
	}

	cfg = base
	cfg.JWT.RefreshSecret = "%%%not-base64%%%"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for non-base64 refresh secret")
	}

	cfg = base
	cfg.JWT.TokenPepper = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing pepper")
	}

	cfg = base
	cfg.JWT.AccessTokenTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero access ttl")
	}

	cfg = base
	cfg.Email.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero max attempts")
	}
}
