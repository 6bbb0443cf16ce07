package middleware

import (
	"net/http"
	"sync"
	"time"
)

// KeyFunc derives the bucket key a request is counted against.
type KeyFunc func(r *http.Request) string

// KeyByRemoteAddr buckets by client address; used for the anonymous
// session-creation endpoint.
func KeyByRemoteAddr(r *http.Request) string {
	return r.RemoteAddr
}

// KeyByToken buckets authenticated requests by their bearer token, so
// widgets sharing one NAT address do not share a budget. Requests
// without a token fall back to the client address.
func KeyByToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return h
	}
	return r.RemoteAddr
}

type visitor struct {
	count    int
	lastSeen time.Time
}

// RateLimiter caps requests per key within a window. The session
// message cooldown is enforced by the conversation state machine; this
// guards the HTTP surface itself.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	keyFn    KeyFunc
}

func NewRateLimiter(limit int, window time.Duration, keyFn KeyFunc) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		keyFn:    keyFn,
	}

	// Cleanup goroutine
	go func() {
		for {
			time.Sleep(window)
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if time.Since(v.lastSeen) > window {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFn(r)

		rl.mu.Lock()
		v, exists := rl.visitors[key]
		if !exists {
			rl.visitors[key] = &visitor{count: 1, lastSeen: time.Now()}
			rl.mu.Unlock()
			next.ServeHTTP(w, r)
			return
		}

		if time.Since(v.lastSeen) > rl.window {
			v.count = 1
			v.lastSeen = time.Now()
			rl.mu.Unlock()
			next.ServeHTTP(w, r)
			return
		}

		v.count++
		v.lastSeen = time.Now()
		count := v.count
		rl.mu.Unlock()

		if count > rl.limit {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
