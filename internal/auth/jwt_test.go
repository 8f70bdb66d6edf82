// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return m
}

func TestNewJWTManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTManager("short", time.Hour); err == nil {
		t.Fatal("short secret accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.GenerateToken("user-42")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Errorf("userID = %q, want user-42", claims.UserID)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	m := newTestManager(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	otherSecret := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "user-42"})
	forged, err := otherSecret.SignedString([]byte("another-secret-that-is-32-chars!"))
	if err != nil {
		t.Fatal(err)
	}

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	anonymous, err := noUser.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"expired", expiredToken},
		{"wrong secret", forged},
		{"no user id", anonymous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("invalid token accepted")
			}
		})
	}
}

func TestMiddlewareAnonymousPassThrough(t *testing.T) {
	m := newTestManager(t)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := UserIDFromContext(r.Context()); got != "" {
			t.Errorf("anonymous request carries user id %q", got)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareValidToken(t *testing.T) {
	m := newTestManager(t)
	token, err := m.GenerateToken("user-42")
	if err != nil {
		t.Fatal(err)
	}

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := UserIDFromContext(r.Context()); got != "user-42" {
			t.Errorf("userID = %q, want user-42", got)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	m := newTestManager(t)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with invalid token")
	}))

	for _, header := range []string{"Bearer garbage", "Basic dXNlcjpwYXNz"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}
