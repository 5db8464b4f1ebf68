package middleware

import (
	"net/http"
	"slotbook/config"
	"slotbook/transport/http/response"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	throttleIdleTTL     = 10 * time.Minute
	throttleJanitorTick = time.Minute
)

// Throttle is a per client token bucket in front of the reserve endpoint.
// It lives in process memory, unlike RateLimit.
type Throttle interface {
	Limit(next http.Handler) http.Handler
	Close()
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type throttle struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	visitors map[string]*visitor
	done     chan struct{}
	once     sync.Once
}

// NewThrottle starts the bucket janitor. A non-positive rate disables
// throttling.
func NewThrottle(cfg *config.Config) Throttle {
	t := &throttle{
		limit:    rate.Limit(cfg.Reservation.ThrottleRPS),
		burst:    max(1, cfg.Reservation.ThrottleBurst),
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}

	if t.limit > 0 {
		go t.janitor()
	}

	return t
}

func (t *throttle) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.limit <= 0 || t.allow(clientIP(r), time.Now()) {
			next.ServeHTTP(w, r)

			return
		}

		response.WithRequestLimitExceeded(w)
	})
}

func (t *throttle) allow(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[key] = v
	}

	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

func (t *throttle) janitor() {
	ticker := time.NewTicker(throttleJanitorTick)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case now := <-ticker.C:
			t.evict(now.Add(-throttleIdleTTL))
		}
	}
}

func (t *throttle) evict(before time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, v := range t.visitors {
		if v.lastSeen.Before(before) {
			delete(t.visitors, key)
		}
	}
}

func (t *throttle) Close() {
	t.once.Do(func() { close(t.done) })
}
