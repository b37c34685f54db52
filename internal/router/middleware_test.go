package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/cache"
	"github.com/dujiao-next/payout-receipts/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type stubTokenVerifier struct {
	claims *service.JWTClaims
	state  *cache.AdminAuthState
}

func (v *stubTokenVerifier) ParseJWT(tokenString string) (*service.JWTClaims, error) {
	if tokenString != "good" || v.claims == nil {
		return nil, errors.New("invalid")
	}
	return v.claims, nil
}

func (v *stubTokenVerifier) ResolveAdminAuthState(_ context.Context, adminID uint) (*cache.AdminAuthState, error) {
	if v.state == nil || v.state.AdminID != adminID {
		return nil, service.ErrNotFound
	}
	return v.state, nil
}

func decodeStatusCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func TestJWTAuthMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware("", nil))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func TestJWTAuthMiddlewareTokenState(t *testing.T) {
	gin.SetMode(gin.TestMode)

	issuedAt := time.Now().Add(-time.Minute)
	claims := &service.JWTClaims{
		AdminID:      3,
		Username:     "ops",
		TokenVersion: 2,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	verifier := &stubTokenVerifier{
		claims: claims,
		state:  &cache.AdminAuthState{AdminID: 3, TokenVersion: 2, IsSuper: true},
	}

	r := gin.New()
	r.Use(JWTAuthMiddleware("secret", verifier))
	r.GET("/admin/ping", func(c *gin.Context) {
		isSuper, _ := c.Get(adminIsSuperContextKey)
		c.JSON(http.StatusOK, gin.H{"status_code": 0, "admin_id": c.GetUint("admin_id"), "is_super": isSuper})
	})

	call := func(header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w
	}

	w := call("Bearer good")
	if code := decodeStatusCode(t, w); code != 0 {
		t.Fatalf("valid token should pass, got %d", code)
	}
	if !strings.Contains(w.Body.String(), `"is_super":true`) {
		t.Fatalf("super flag should be propagated: %s", w.Body.String())
	}

	if code := decodeStatusCode(t, call("")); code != 401 {
		t.Fatalf("missing header want 401 got %d", code)
	}
	if code := decodeStatusCode(t, call("Token good")); code != 401 {
		t.Fatalf("malformed header want 401 got %d", code)
	}
	if code := decodeStatusCode(t, call("Bearer bad")); code != 401 {
		t.Fatalf("bad token want 401 got %d", code)
	}

	verifier.state.TokenVersion = 3
	if code := decodeStatusCode(t, call("Bearer good")); code != 401 {
		t.Fatalf("stale token version want 401 got %d", code)
	}

	verifier.state.TokenVersion = 2
	verifier.state.TokenInvalidBefore = time.Now().Unix()
	if code := decodeStatusCode(t, call("Bearer good")); code != 401 {
		t.Fatalf("token issued before invalidation want 401 got %d", code)
	}
}

func TestAdminRBACMiddlewareWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("admin_id", uint(1))
		c.Set(adminIsSuperContextKey, true)
		c.Next()
	})
	r.Use(AdminRBACMiddleware(nil))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("missing authz service should reject, got %d", code)
	}
}
