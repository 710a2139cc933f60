package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxTrackedClients bounds the per-IP window map; expired entries are evicted
// once it is exceeded.
const maxTrackedClients = 4096

// windowState tracks one client's requests inside the current fixed window.
type windowState struct {
	hits   int
	resets time.Time
}

// RateLimit caps requests per client IP over a fixed window. Rejected
// requests carry a Retry-After header pointing at the window reset.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	var mu sync.Mutex
	windows := make(map[string]*windowState)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIPForRateLimit(r)
			now := time.Now()

			mu.Lock()
			win, ok := windows[ip]
			if !ok || now.After(win.resets) {
				if len(windows) >= maxTrackedClients {
					for key, state := range windows {
						if now.After(state.resets) {
							delete(windows, key)
						}
					}
				}
				win = &windowState{resets: now.Add(per)}
				windows[ip] = win
			}
			if win.hits >= limit {
				retryIn := win.resets.Sub(now)
				mu.Unlock()
				w.Header().Set("Retry-After", strconv.Itoa(int(retryIn/time.Second)+1))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			win.hits++
			mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

// clientIPForRateLimit picks the window key: the first parseable forwarded
// address, else the remote host. Unparseable garbage keys on RemoteAddr so a
// forged header cannot dodge the limit.
func clientIPForRateLimit(r *http.Request) string {
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		candidate := strings.TrimSpace(part)
		if candidate != "" && net.ParseIP(candidate) != nil {
			return candidate
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}
