package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

type visitor struct {
	count    int
	lastSeen time.Time
}

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// KeyByIP counts requests per remote address.
func KeyByIP(r *http.Request) string {
	return r.RemoteAddr
}

// KeyByUser counts requests per authenticated user, falling back to the
// remote address. It must run after JWTAuth.Middleware.
func KeyByUser(r *http.Request) string {
	if id := GetUserID(r.Context()); id != uuid.Nil {
		return "user:" + id.String()
	}
	return r.RemoteAddr
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	key      KeyFunc
	stop     chan struct{}
}

func NewRateLimiter(limit int, window time.Duration, key KeyFunc) *RateLimiter {
	if key == nil {
		key = KeyByIP
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		key:      key,
		stop:     make(chan struct{}),
	}

	// Cleanup goroutine
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
			}
			rl.mu.Lock()
			for k, v := range rl.visitors {
				if time.Since(v.lastSeen) > window {
					delete(rl.visitors, k)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

// Stop ends the cleanup goroutine. The limiter must not be used afterwards.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)

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
