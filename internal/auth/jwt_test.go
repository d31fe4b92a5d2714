package auth

import (
	"errors"
	"testing"
	"time"
)

func testConfig() TokenConfig {
	return TokenConfig{
		SecretKey:            "test-secret-key",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "test-issuer",
	}
}

func TestTokenManager_AccessToken(t *testing.T) {
	manager := NewTokenManager(testConfig())

	token, err := manager.GenerateAccessToken("user-123", "Alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if !manager.Validate(token) {
		t.Error("Validate() = false for a fresh access token")
	}
	if !manager.IsAccessToken(token) {
		t.Error("IsAccessToken() = false for an access token")
	}

	userID, err := manager.ExtractUserID(token)
	if err != nil {
		t.Fatalf("ExtractUserID() error = %v", err)
	}
	if userID != "user-123" {
		t.Errorf("ExtractUserID() = %q, want user-123", userID)
	}

	claims, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.DisplayName != "Alice" || claims.Issuer != "test-issuer" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := manager.ValidateRefreshToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateRefreshToken(access) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_RefreshToken(t *testing.T) {
	manager := NewTokenManager(testConfig())

	token, err := manager.GenerateRefreshToken("user-456")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	if !manager.Validate(token) {
		t.Error("Validate() = false for a refresh token")
	}
	if manager.IsAccessToken(token) {
		t.Error("IsAccessToken() = true for a refresh token")
	}
	if _, err := manager.ValidateRefreshToken(token); err != nil {
		t.Errorf("ValidateRefreshToken() error = %v", err)
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	manager := NewTokenManager(testConfig())

	expiredCfg := testConfig()
	expiredCfg.AccessTokenDuration = -time.Minute
	expired, err := NewTokenManager(expiredCfg).GenerateAccessToken("user-1", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	otherCfg := testConfig()
	otherCfg.SecretKey = "another-secret"
	foreign, err := NewTokenManager(otherCfg).GenerateAccessToken("user-1", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"empty", "", ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
		{"wrong secret", foreign, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if manager.Validate(tt.token) {
				t.Error("Validate() = true")
			}
			if manager.IsAccessToken(tt.token) {
				t.Error("IsAccessToken() = true")
			}
			if _, err := manager.Parse(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}
