package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"email":" Test@Example.com "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("email")(c)
	if key != "test@example.com|1.2.3.4" {
		t.Fatalf("key want test@example.com|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Test@Example.com") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, nil))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestRateLimitRuleDisabled(t *testing.T) {
	for _, rule := range []RateLimitRule{
		{WindowSeconds: 0, MaxRequests: 5},
		{WindowSeconds: 60, MaxRequests: 0},
	} {
		if rule.enabled() {
			t.Fatalf("rule %+v should be disabled", rule)
		}
	}
	if !(RateLimitRule{WindowSeconds: 60, MaxRequests: 5}).enabled() {
		t.Fatalf("configured rule should be enabled")
	}
}

func TestReadJSONFieldIgnoresNonString(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":42}`))
	c.Request.RemoteAddr = "1.2.3.4:5678"
	if key := KeyByIPAndJSONField("username")(c); key != "1.2.3.4" {
		t.Fatalf("non-string field should fall back to ip, got %s", key)
	}
}

func TestKeyByAdminAndParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	var got string
	r.POST("/jobs/:id/step", func(c *gin.Context) {
		c.Set("admin_id", uint(9))
		got = KeyByAdminAndParam("id")(c)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs/abc/step", nil))
	if got != "admin:9|abc" {
		t.Fatalf("key want admin:9|abc got %s", got)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/jobs/abc/step", nil)
	c.Request.RemoteAddr = "5.6.7.8:1000"
	if key := KeyByAdminAndParam("id")(c); key != "5.6.7.8" {
		t.Fatalf("anonymous key should fall back to ip, got %s", key)
	}
}
