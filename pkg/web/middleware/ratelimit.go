package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ImOpaque/GensTools-sub000/pkg/cache/lru"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	weberrors "github.com/ImOpaque/GensTools-sub000/pkg/web/errors"
)

// RateLimitConfig 令牌桶限流，RequestsPerSecond 为 0 时不启用
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`

	// PerIP 为 true 时每个客户端 IP 一个令牌桶，否则全局共用
	PerIP bool `mapstructure:"per_ip"`

	// 按 IP 的令牌桶数量上限与空闲回收时间
	MaxClients int           `mapstructure:"max_clients"`
	IdleTTL    time.Duration `mapstructure:"idle_ttl"`

	SkipPaths []string `mapstructure:"skip_paths"`
}

// RateLimiter 按配置分配令牌桶
type RateLimiter struct {
	cfg     *RateLimitConfig
	global  *rate.Limiter
	clients *lru.LRU[string, *rate.Limiter]
	skip    map[string]struct{}
	logger  logger.Logger
}

// NewRateLimiter 创建限流器
func NewRateLimiter(l logger.Logger, cfg *RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:    cfg,
		global: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		skip:   make(map[string]struct{}, len(cfg.SkipPaths)),
		logger: l,
	}
	for _, p := range cfg.SkipPaths {
		rl.skip[p] = struct{}{}
	}
	if cfg.PerIP {
		rl.clients = lru.New[string, *rate.Limiter](
			&lru.Config{MaxSize: cfg.MaxClients, DefaultTTL: cfg.IdleTTL, CleanupInterval: cfg.IdleTTL},
		)
	}
	return rl
}

// Allow 消耗 clientIP 对应令牌桶的一个令牌
func (rl *RateLimiter) Allow(clientIP string) bool {
	if rl.clients == nil {
		return rl.global.Allow()
	}
	return rl.clients.GetOrCreate(clientIP, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)
	}).Allow()
}

// Close 停止空闲令牌桶回收
func (rl *RateLimiter) Close() error {
	if rl.clients == nil {
		return nil
	}
	return rl.clients.Close()
}

// RateLimit 超限直接返回 429，不排队等待
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := rl.skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		if rl.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		rl.logger.Warn("rate limit exceeded", "client_ip", c.ClientIP(), "path", c.FullPath())
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rl.cfg.RequestsPerSecond)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":    weberrors.CodeRateLimited,
			"message": "too many requests",
		})
	}
}

func retryAfterSeconds(rps float64) int {
	if rps <= 0 || rps >= 1 {
		return 1
	}
	return int(1/rps + 0.5)
}
