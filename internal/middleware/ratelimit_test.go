package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPForRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		remoteAddr string
		want       string
	}{
		{
			name:       "single ip",
			header:     "203.0.113.1",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "multiple ips use first",
			header:     " 203.0.113.1 , 198.51.100.2 ",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "invalid forwarded falls back",
			header:     "invalid",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "no forwarded uses remote host",
			header:     "",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.header != "" {
				r.Header.Set("X-Forwarded-For", tt.header)
			}
			if got := clientIPForRateLimit(r); got != tt.want {
				t.Fatalf("clientIPForRateLimit = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitCapsPerIP(t *testing.T) {
	handler := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = ip + ":1000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	if send("203.0.113.1").Code != http.StatusOK || send("203.0.113.1").Code != http.StatusOK {
		t.Fatal("first two requests should pass")
	}
	rec := send("203.0.113.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatal("third request should be limited")
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("limited response should say when to retry")
	}
	// Another IP has its own window.
	if send("203.0.113.2").Code != http.StatusOK {
		t.Fatal("other clients must not be affected")
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	handler := RateLimit(1, 50*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "203.0.113.1:1000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	if send() != http.StatusOK {
		t.Fatal("first request should pass")
	}
	if send() != http.StatusTooManyRequests {
		t.Fatal("second request inside the window should be limited")
	}
	time.Sleep(60 * time.Millisecond)
	if send() != http.StatusOK {
		t.Fatal("a fresh window should admit requests again")
	}
}
