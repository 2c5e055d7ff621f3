package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var testSecret = bytes.Repeat([]byte{0x42}, 32)

func TestGenerateToken(t *testing.T) {
	token, exp, err := GenerateToken(testSecret, "station-7", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if d := time.Until(exp); d < 59*time.Minute || d > time.Hour {
		t.Errorf("expiry in %v, want about 1h", d)
	}

	if _, _, err := GenerateToken(testSecret, "", time.Hour); err == nil {
		t.Error("expected error for empty subject")
	}
}

func TestRequireAuth(t *testing.T) {
	valid, _, err := GenerateToken(testSecret, "station-7", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	expired, _, _ := GenerateToken(testSecret, "station-7", -time.Minute)
	otherKey, _, _ := GenerateToken(bytes.Repeat([]byte{0x01}, 32), "station-7", time.Hour)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "station-7",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	foreignSigned, _ := foreign.SignedString(testSecret)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic abc", http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + otherKey, http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + foreignSigned, http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSubject string
			handler := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSubject = SubjectFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && gotSubject != "station-7" {
				t.Errorf("subject = %q, want station-7", gotSubject)
			}
		})
	}
}

func TestRequireAuthDisabled(t *testing.T) {
	called := false
	handler := RequireAuth(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if sub := SubjectFromContext(r.Context()); sub != "" {
			t.Errorf("subject = %q, want empty", sub)
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("handler not called with auth disabled")
	}
}
