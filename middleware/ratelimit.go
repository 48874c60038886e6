package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type KeyFunc func(c *gin.Context) string

// DefaultKeyFunc keys authenticated callers by user id and everybody else by
// client address.
func DefaultKeyFunc(c *gin.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return "user:" + id.UserID
	}
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "unknown"
}

type clientEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client key. Idle entries are
// pruned while handling requests.
type ClientLimiter struct {
	mu      sync.Mutex
	entries map[string]*clientEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	pruneAt time.Time
	now     func() time.Time
}

func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		entries: make(map[string]*clientEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
		now:     time.Now,
	}
}

// Reserve reports whether key may proceed now and, when not, how long
// until it may.
func (l *ClientLimiter) Reserve(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	if now.After(l.pruneAt) {
		cutoff := now.Add(-l.idleTTL)
		for k, e := range l.entries {
			if e.lastSeen.Before(cutoff) {
				delete(l.entries, k)
			}
		}
		l.pruneAt = now.Add(l.idleTTL / 4)
	}
	ent, ok := l.entries[key]
	if !ok {
		ent = &clientEntry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.entries[key] = ent
	}
	ent.lastSeen = now
	l.mu.Unlock()

	if ent.lim.AllowN(now, 1) {
		return true, 0
	}
	r := ent.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// ClientRateLimit throttles API calls per client and answers 429 with a
// Retry-After header when the bucket is empty.
func ClientRateLimit(l *ClientLimiter, keyFn KeyFunc) gin.HandlerFunc {
	if keyFn == nil {
		keyFn = DefaultKeyFunc
	}
	return func(c *gin.Context) {
		allowed, wait := l.Reserve(keyFn(c))
		utils.TrackRateLimit("api", allowed)
		if !allowed {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			utils.Abort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
