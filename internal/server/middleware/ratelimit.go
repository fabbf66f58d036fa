package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/iudanet/petalsync/internal/server/handlers"
	"github.com/iudanet/petalsync/pkg/api"
)

// RateLimiter ограничивает число запросов клиента в фиксированном окне
type RateLimiter struct {
	buckets map[string]*bucket
	logger  *slog.Logger
	stop    chan struct{}
	now     func() time.Time
	rate    int
	window  time.Duration
	once    sync.Once
	mu      sync.Mutex
}

type bucket struct {
	windowStart time.Time
	used        int
}

// NewRateLimiter создает limiter на rate запросов за window.
// Фоновая горутина удаляет неактивные buckets до вызова Stop.
func NewRateLimiter(rate int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		logger:  logger,
		stop:    make(chan struct{}),
		now:     time.Now,
		rate:    rate,
		window:  window,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether one more request from key fits into the current window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.windowStart) >= rl.window {
		b = &bucket{windowStart: now}
		rl.buckets[key] = b
	}

	if b.used >= rl.rate {
		return false
	}
	b.used++
	return true
}

// Stop останавливает cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict()
		case <-rl.stop:
			return
		}
	}
}

// evict удаляет buckets, окно которых давно закончилось
func (rl *RateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window*2 {
			delete(rl.buckets, key)
		}
	}
}

// Middleware ограничивает запросы по subject токена, а без него по адресу клиента.
// Подключается после AuthMiddleware и chi middleware.RealIP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientAddr(r.RemoteAddr)
		if subject, ok := handlers.GetSubject(r.Context()); ok && subject != "" {
			key = "sub:" + subject
		}

		if !rl.Allow(key) {
			rl.logger.Warn("Rate limit exceeded", "client", key, "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Retry-After", retryAfter(rl.window))
			writeError(w, http.StatusTooManyRequests, api.ErrorResponse{Error: "rate limit exceeded, please try again later"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientAddr отбрасывает порт: новое соединение того же клиента приходит с другого порта
func clientAddr(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func retryAfter(window time.Duration) string {
	return strconv.Itoa(max(1, int(window.Seconds())))
}
