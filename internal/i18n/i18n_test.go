package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestTFallsBackToDefaultLocaleAndKey(t *testing.T) {
	if got := T(LocaleEnUS, "error.not_found"); got != "Record not found" {
		t.Fatalf("unexpected en-US message: %s", got)
	}
	if got := T("fr-FR", "error.not_found"); got != "Registro não encontrado" {
		t.Fatalf("expected pt-BR fallback, got %s", got)
	}
	if got := T(LocaleZhCN, "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("expected key fallback, got %s", got)
	}
}

func TestSprintf(t *testing.T) {
	got := Sprintf(LocaleEnUS, "error.validation_field", "items", "sum must be 100%")
	if got != "Invalid field items: sum must be 100%" {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestMessageTablesHaveSameKeys(t *testing.T) {
	base := messages[DefaultLocale]
	for locale, table := range messages {
		if len(table) != len(base) {
			t.Fatalf("locale %s has %d keys, want %d", locale, len(table), len(base))
		}
		for key := range base {
			if _, ok := table[key]; !ok {
				t.Fatalf("locale %s missing key %s", locale, key)
			}
		}
	}
}

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		target string
		header map[string]string
		want   string
	}{
		{name: "default", target: "/", want: LocalePtBR},
		{name: "query", target: "/?lang=en", want: LocaleEnUS},
		{name: "header", target: "/", header: map[string]string{"X-Locale": "zh-CN"}, want: LocaleZhCN},
		{name: "accept language", target: "/", header: map[string]string{"Accept-Language": "en-GB,en;q=0.8"}, want: LocaleEnUS},
		{name: "unsupported", target: "/", header: map[string]string{"Accept-Language": "ja-JP"}, want: LocalePtBR},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", tc.target, nil)
			for key, value := range tc.header {
				c.Request.Header.Set(key, value)
			}
			if got := ResolveLocale(c); got != tc.want {
				t.Fatalf("ResolveLocale()=%s want %s", got, tc.want)
			}
		})
	}
}
