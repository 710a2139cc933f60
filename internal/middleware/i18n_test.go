package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback string
		country  string
		want     string
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "RU")
			},
			country: "US",
			want:    "ru",
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-US,en;q=0.9")
			},
			want: "en",
		},
		{
			name: "accept-language ru preference",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "ru-RU,en;q=0.8")
			},
			want: "ru",
		},
		{
			name:    "russian-speaking country",
			country: "BY",
			want:    "ru",
		},
		{
			name:    "other country falls back to en",
			country: "US",
			want:    "en",
		},
		{
			name:     "configured fallback",
			fallback: "en",
			want:     "en",
		},
		{
			name: "default to ru",
			want: "ru",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.setup != nil {
				tt.setup(r)
			}
			got := detectLocale(r, tt.fallback, tt.country)
			if got != tt.want {
				t.Fatalf("detectLocale = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestI18NMiddleware(t *testing.T) {
	lookup := func(ip string) (string, error) { return "ru", nil }

	var gotLocale, gotCountry string
	handler := I18N("ru", lookup)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotLocale = LocaleFromContext(r.Context())
		gotCountry = CountryFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.1:4444"
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if gotLocale != "ru" {
		t.Fatalf("locale = %q, want ru", gotLocale)
	}
	if gotCountry != "RU" {
		t.Fatalf("country = %q, want RU", gotCountry)
	}
}

func TestI18NHeaderCountryWins(t *testing.T) {
	var gotCountry string
	handler := I18N("ru", nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotCountry = CountryFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("CF-IPCountry", "kz")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if gotCountry != "KZ" {
		t.Fatalf("country = %q, want KZ", gotCountry)
	}
}

func TestLocaleFromContextDefault(t *testing.T) {
	if got := LocaleFromContext(context.Background()); got != "ru" {
		t.Fatalf("locale = %q, want ru", got)
	}
}
