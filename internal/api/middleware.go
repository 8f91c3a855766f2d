package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per caller, keyed by the
// requester credential with the remote address as fallback.
type clientLimiter struct {
	clients map[string]*client
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
}

func newClientLimiter(reqPerMinute, burst int) *clientLimiter {
	if reqPerMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = reqPerMinute
	}
	cl := &clientLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(float64(reqPerMinute) / 60.0),
		burst:   burst,
	}
	go cl.cleanup()
	return cl
}

func (cl *clientLimiter) get(key string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	c, ok := cl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[key] = c
	}
	c.lastSeen = time.Now()
	return c.limiter
}

func (cl *clientLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		cl.mu.Lock()
		for key, c := range cl.clients {
			if time.Since(c.lastSeen) > 3*time.Minute {
				delete(cl.clients, key)
			}
		}
		cl.mu.Unlock()
	}
}

func (s *HTTPServer) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			key := requester(r)
			if key == "" {
				key = r.RemoteAddr
			}
			if !s.limiter.get(key).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
		}
		next(w, r)
	}
}

func (s *HTTPServer) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeError(w, http.StatusForbidden, "admin API disabled")
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next(w, r)
	}
}
