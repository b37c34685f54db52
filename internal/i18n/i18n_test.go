package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestTFallsBackToDefaultLocaleAndKey(t *testing.T) {
	if got := T(LocaleEN, "error.forbidden"); got != "You are not allowed to perform this action" {
		t.Fatalf("unexpected en message: %s", got)
	}
	if got := T("fr-FR", "error.forbidden"); got != messages[LocaleZH]["error.forbidden"] {
		t.Fatalf("unknown locale should fall back to default, got %s", got)
	}
	if got := T(LocaleEN, "error.missing_key"); got != "error.missing_key" {
		t.Fatalf("missing key should return key, got %s", got)
	}
}

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		url    string
		header string
		want   string
	}{
		{url: "/?lang=en", want: LocaleEN},
		{url: "/", header: "zh-TW,zh;q=0.9", want: LocaleTW},
		{url: "/", header: "en-US,en;q=0.8", want: LocaleEN},
		{url: "/", want: LocaleZH},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", tc.url, nil)
		if tc.header != "" {
			c.Request.Header.Set("Accept-Language", tc.header)
		}
		if got := ResolveLocale(c); got != tc.want {
			t.Fatalf("url=%s header=%s want %s got %s", tc.url, tc.header, tc.want, got)
		}
	}
}

func TestSprintf(t *testing.T) {
	if got := Sprintf(LocaleEN, "error.rate_limit_login", 30); got != "Too many login attempts, retry in 30 seconds" {
		t.Fatalf("unexpected message: %s", got)
	}
}
