package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func protected(t *testing.T, auth *JWTAuth) http.Handler {
	t.Helper()
	return auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"user_id": GetUserID(r.Context()).String(),
			"token":   GetToken(r.Context()),
		})
	}))
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestJWTAuth_Middleware(t *testing.T) {
	auth := NewJWTAuth("secret")
	userID := uuid.New()
	valid, err := auth.GenerateAccessToken(userID, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	expired, _ := auth.GenerateAccessToken(userID, -time.Minute)
	foreign, _ := NewJWTAuth("other").GenerateAccessToken(userID, time.Minute)
	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}).SignedString([]byte("secret"))

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"no user claim", "Bearer " + noUser, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
	}

	h := protected(t, auth)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.code != "" {
				if got := errorCode(t, rr); got != tt.code {
					t.Fatalf("expected code %s, got %s", tt.code, got)
				}
				return
			}
			var body map[string]string
			json.NewDecoder(rr.Body).Decode(&body)
			if body["user_id"] != userID.String() || body["token"] != valid {
				t.Fatalf("context not populated: %+v", body)
			}
		})
	}
}

func TestRateLimiter_PerKey(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(remote string, user uuid.UUID) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if user != uuid.Nil {
			req = req.WithContext(context.WithValue(req.Context(), UserIDKey, user))
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("1.1.1.1:1", uuid.Nil); code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, code)
		}
	}
	if code := call("1.1.1.1:1", uuid.Nil); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", code)
	}

	// Authenticated users get their own bucket regardless of address.
	user := uuid.New()
	if code := call("1.1.1.1:1", user); code != http.StatusNoContent {
		t.Fatalf("expected user bucket to be separate, got %d", code)
	}
}

func TestRateLimiter_WindowResetsDespiteSteadyTraffic(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	clock := start
	rl.mu.Lock()
	rl.now = func() time.Time { return clock }
	rl.mu.Unlock()

	steps := []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{10 * time.Second, true},
		{30 * time.Second, false},
		{59 * time.Second, false},
		// A new window opens one minute after the first request even
		// though the key kept sending requests.
		{61 * time.Second, true},
		{62 * time.Second, true},
		{63 * time.Second, false},
	}
	for _, s := range steps {
		rl.mu.Lock()
		clock = start.Add(s.at)
		rl.mu.Unlock()
		if got := rl.allow("user:x"); got != s.want {
			t.Fatalf("at +%s: allow = %v, want %v", s.at, got, s.want)
		}
	}
}
