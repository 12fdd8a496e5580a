// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/models"
)

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:      "test-secret-that-is-at-least-32-characters",
		SessionTimeout: time.Hour,
	}
}

func testUser() *models.User {
	return &models.User{ID: "user-1", Email: "alice@example.com", Name: "Alice", Role: models.RoleAdmin}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("CheckPassword rejected the right password")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("CheckPassword accepted a wrong password")
	}
	if _, err := HashPassword(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("long password error = %v, want ErrPasswordTooLong", err)
	}
}

func TestJWTManager(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "admin" || claims.Name != "Alice" {
		t.Errorf("claims = %+v", claims)
	}

	t.Run("tampered", func(t *testing.T) {
		if _, err := m.ValidateToken(token + "x"); err == nil {
			t.Error("expected error for tampered token")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: "another-secret-another-secret-1234", SessionTimeout: time.Hour})
		if _, err := other.ValidateToken(token); err == nil {
			t.Error("expected error for wrong secret")
		}
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "x", Role: "admin",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: jwtIssuer}})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("sign none: %v", err)
		}
		if _, err := m.ValidateToken(s); err == nil {
			t.Error("expected error for alg=none")
		}
	})

	t.Run("expired", func(t *testing.T) {
		short, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: "test-secret-that-is-at-least-32-characters", SessionTimeout: -time.Minute})
		tok, _ := short.GenerateToken(testUser())
		if _, err := m.ValidateToken(tok); err == nil {
			t.Error("expected error for expired token")
		}
	})

	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Error("expected error for empty secret")
	}
}

func runSessionStoreContract(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()

	subject := SubjectFromUser(testUser(), ProviderSession)
	s1 := NewSession(subject, time.Hour)
	s2 := NewSession(subject, time.Hour)
	if s1.ID == s2.ID || len(s1.ID) != 64 {
		t.Fatalf("session ids not unique or wrong length: %q %q", s1.ID, s2.ID)
	}

	for _, s := range []*Session{s1, s2} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := store.Get(ctx, s1.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "user-1" || got.Role != models.RoleAdmin {
		t.Errorf("Get = %+v", got)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrSessionNotFound", err)
	}

	if err := store.Delete(ctx, s1.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, s1.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after Delete error = %v", err)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}

	n, err := store.DeleteByUserID(ctx, "user-1")
	if err != nil || n != 1 {
		t.Errorf("DeleteByUserID = %d, %v; want 1", n, err)
	}
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	runSessionStoreContract(t, store)

	ctx := context.Background()
	expired := &Session{ID: "old", UserID: "u", ExpiresAt: time.Now().Add(-time.Minute)}
	_ = store.Create(ctx, expired)
	if _, err := store.Get(ctx, "old"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Get(expired) error = %v, want ErrSessionExpired", err)
	}
	n, _ := store.CleanupExpired(ctx)
	if n != 1 || store.Count() != 0 {
		t.Errorf("CleanupExpired = %d, remaining %d", n, store.Count())
	}
}

func TestBadgerSessionStore(t *testing.T) {
	store, err := OpenBadgerSessionStore(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("OpenBadgerSessionStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	runSessionStoreContract(t, store)

	expired := &Session{ID: "old", UserID: "u", ExpiresAt: time.Now().Add(-time.Minute)}
	if err := store.Create(context.Background(), expired); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Create(expired) error = %v, want ErrSessionExpired", err)
	}
}

func TestOpenSessionStore(t *testing.T) {
	s, err := OpenSessionStore("memory", "")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*MemorySessionStore); !ok {
		t.Errorf("memory store type = %T", s)
	}

	dir := t.TempDir()
	b, err := OpenSessionStore("badger", dir)
	if err != nil {
		t.Fatalf("badger: %v", err)
	}
	_ = b.Close()

	if _, err := OpenSessionStore("redis", ""); err == nil {
		t.Error("expected error for unknown store")
	}
}

func TestManager_Identity(t *testing.T) {
	cfg := testSecurityConfig()
	jwtManager, _ := NewJWTManager(cfg)
	m := NewManager(NewMemorySessionStore(), jwtManager, cfg)

	var seen *AuthSubject
	handler := m.Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAuthSubject(r.Context())
	}))

	// Log in to get a cookie and token.
	rec := httptest.NewRecorder()
	session, token, err := m.Login(context.Background(), rec, testUser())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantID   string
		provider string
	}{
		{"anonymous", func(r *http.Request) {}, "", ""},
		{"cookie", func(r *http.Request) { r.AddCookie(cookies[0]) }, "user-1", ProviderSession},
		{"session header", func(r *http.Request) { r.Header.Set(SessionHeaderName, session.ID) }, "user-1", ProviderSession},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, "user-1", ProviderJWT},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, "", ""},
		{"unknown cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "unknown"})
		}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantID == "" {
				if seen != nil {
					t.Errorf("subject = %+v, want anonymous", seen)
				}
				return
			}
			if seen == nil || seen.ID != tt.wantID || seen.Provider != tt.provider || !seen.IsAdmin() {
				t.Errorf("subject = %+v", seen)
			}
		})
	}

	t.Run("logout", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		if err := m.Logout(context.Background(), rec, req); err != nil {
			t.Fatalf("Logout: %v", err)
		}
		if _, err := m.Store().Get(context.Background(), session.ID); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("session still present after logout: %v", err)
		}
		cleared := rec.Result().Cookies()
		if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
			t.Errorf("logout cookie = %+v", cleared)
		}
	})
}
