package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucketIdleTTL is how long a client IP's bucket survives without requests.
const bucketIdleTTL = 10 * time.Minute

// RateLimitPerIP keeps a token bucket per client IP, taken from the
// connection's remote address. Headers such as X-Forwarded-For only count when
// chi's RealIP runs in front, which the router does behind a trusted proxy.
func RateLimitPerIP(rps rate.Limit, burst int) func(http.Handler) http.Handler {
	lim := newIPLimiter(rps, burst, bucketIdleTTL)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.allow(clientIP(r), time.Now()) {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

type ipLimiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newIPLimiter(rps rate.Limit, burst int, idle time.Duration) *ipLimiter {
	return &ipLimiter{rps: rps, burst: burst, idle: idle, visitors: make(map[string]*visitor)}
}

// allow takes a token for ip at now. Idle visitors are swept at most once per
// idle period.
func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastSweep.IsZero() {
		l.lastSweep = now
	}
	if now.Sub(l.lastSweep) >= l.idle {
		for k, v := range l.visitors {
			if now.Sub(v.seen) >= l.idle {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
