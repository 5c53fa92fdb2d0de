package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Tier is a request budget per client IP.
type Tier struct {
	Name   string
	Limit  int
	Window time.Duration
}

var (
	GlobalTier = Tier{Name: "global", Limit: 100, Window: 15 * time.Minute}
	AuthTier   = Tier{Name: "auth", Limit: 10, Window: 15 * time.Minute}
	UploadTier = Tier{Name: "upload", Limit: 20, Window: time.Hour}
)

// Limiter decides whether one more request for key fits the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// ipLimiter holds a rate limiter per IP.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a token bucket per key kept in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	r        rate.Limit
	b        int
	idle     time.Duration
}

func NewMemoryLimiter(t Tier) *MemoryLimiter {
	return &MemoryLimiter{
		limiters: make(map[string]*ipLimiter),
		r:        rate.Every(t.Window / time.Duration(t.Limit)),
		b:        t.Limit,
		idle:     t.Window,
	}
}

func (s *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.limiters[key]; ok {
		v.lastSeen = time.Now()
		return v.limiter.Allow(), nil
	}
	l := &ipLimiter{limiter: rate.NewLimiter(s.r, s.b), lastSeen: time.Now()}
	s.limiters[key] = l
	return l.limiter.Allow(), nil
}

// Sweep drops entries idle for longer than the tier window.
func (s *MemoryLimiter) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, v := range s.limiters {
		if now.Sub(v.lastSeen) > s.idle {
			delete(s.limiters, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *MemoryLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Sweep(now)
			}
		}
	}()
}

// RedisLimiter is a fixed window counter shared by every instance using the
// same Redis.
type RedisLimiter struct {
	client *redis.Client
	tier   Tier
}

func NewRedisLimiter(client *redis.Client, t Tier) *RedisLimiter {
	return &RedisLimiter{client: client, tier: t}
}

// Allow counts the request and arms the window TTL in one MULTI/EXEC. EXPIRE
// NX keeps the first TTL, and resending it on every hit re-arms a key that
// lost its TTL. Needs Redis 7.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "ratelimit:" + r.tier.Name + ":" + key
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, r.tier.Window)
		return nil
	})
	if err != nil {
		return true, err
	}
	return incr.Val() <= int64(r.tier.Limit), nil
}

// RateLimit rejects clients over budget with 429. Limiter errors let the
// request through.
func RateLimit(l Limiter, log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		ok, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.WithError(err).Warn("rate limiter unavailable")
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too Many Requests",
				"message": "Too many requests from this IP, please try again later.",
			})
			return
		}
		c.Next()
	}
}

// Limiters builds one limiter per tier, on Redis when client is set.
type Limiters struct {
	Global Limiter
	Auth   Limiter
	Upload Limiter
}

func NewLimiters(ctx context.Context, client *redis.Client) Limiters {
	build := func(t Tier) Limiter {
		if client != nil {
			return NewRedisLimiter(client, t)
		}
		m := NewMemoryLimiter(t)
		m.StartSweeper(ctx, 10*time.Minute)
		return m
	}
	return Limiters{Global: build(GlobalTier), Auth: build(AuthTier), Upload: build(UploadTier)}
}
