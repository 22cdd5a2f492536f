package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/uptrace/bunrouter"
	"github.com/wheresmywater/backend/internal/rest/middleware/ip"
	"github.com/wheresmywater/backend/internal/rest/render"
	"github.com/wheresmywater/backend/internal/rest/types"
	"github.com/wheresmywater/backend/internal/setup/config"
	"github.com/wheresmywater/backend/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	errBlocked    = "temporarily blocked for repeated rate limit violations"
	errRateLimit  = "rate limit exceeded"
	headerRetryAt = "Retry-After"

	defaultRequestsPerSecond = 5
	defaultBurstSize         = 10
	defaultStrikeLimit       = 10
	defaultBlockSeconds      = 300
)

type limiterState struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	strikes      int       // Number of times client has violated rate limit
	blockedUntil time.Time // Time until client is blocked for repeated violations
}

// Middleware implements per-IP rate limiting for API requests.
type Middleware struct {
	limiters      *utils.TTLMap[string, *limiterState]
	limit         rate.Limit
	burst         int
	strikeLimit   int
	blockDuration time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// New creates a new rate limiting middleware.
func New(cfg *config.RateLimit, logger *zap.Logger) *Middleware {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = defaultBurstSize
	}
	strikeLimit := cfg.StrikeLimit
	if strikeLimit <= 0 {
		strikeLimit = defaultStrikeLimit
	}
	blockSeconds := cfg.BlockSeconds
	if blockSeconds <= 0 {
		blockSeconds = defaultBlockSeconds
	}
	blockDuration := time.Duration(blockSeconds) * time.Second

	// Use the longer of block duration or burst window * 2 for TTL
	ttl := time.Second * time.Duration(burst*2)
	if blockTTL := blockDuration * 2; blockTTL > ttl {
		ttl = blockTTL
	}

	return &Middleware{
		limiters:      utils.NewTTLMap[string, *limiterState](ttl),
		limit:         rate.Limit(rps),
		burst:         burst,
		strikeLimit:   strikeLimit,
		blockDuration: blockDuration,
		now:           time.Now,
		logger:        logger.Named("rate_limit"),
	}
}

// Close releases the limiter table.
func (m *Middleware) Close() {
	m.limiters.Close()
}

// AsRESTMiddleware returns a bunrouter middleware handler for rate limiting.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		clientIP := ip.FromContext(req.Context())
		if allowed, retryAfter, msg := m.Allow(clientIP); !allowed {
			if retryAfter > 0 {
				w.Header().Set(headerRetryAt, strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			}
			return render.JSON(w, http.StatusTooManyRequests, types.ErrorResponse{Error: msg})
		}
		return next(w, req)
	}
}

// Allow checks if a request from clientIP may proceed and updates violation tracking.
// When it may not, it returns how long to wait and the reason.
func (m *Middleware) Allow(clientIP string) (bool, time.Duration, string) {
	state := m.limiters.GetOrSet(clientIP, func() *limiterState {
		return &limiterState{limiter: rate.NewLimiter(m.limit, m.burst)}
	})

	state.mu.Lock()
	defer state.mu.Unlock()

	now := m.now()

	if !state.blockedUntil.IsZero() && now.Before(state.blockedUntil) {
		retryAfter := state.blockedUntil.Sub(now)
		m.logger.Debug("Client is temporarily blocked",
			zap.String("ip", clientIP),
			zap.Duration("retry_after", retryAfter))
		return false, retryAfter, errBlocked
	}

	reservation := state.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return m.strike(state, clientIP, 0)
	}

	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return m.strike(state, clientIP, delay)
	}

	state.strikes = 0
	return true, 0, ""
}

// strike records a violation and blocks the client once the strike limit is hit.
func (m *Middleware) strike(state *limiterState, clientIP string, delay time.Duration) (bool, time.Duration, string) {
	state.strikes++

	if state.strikes >= m.strikeLimit {
		state.blockedUntil = m.now().Add(m.blockDuration)
		state.strikes = 0

		m.logger.Warn("Client exceeded strike limit and is now blocked",
			zap.String("ip", clientIP),
			zap.Int("strikes", m.strikeLimit),
			zap.Duration("block_duration", m.blockDuration))
		return false, m.blockDuration, errBlocked
	}

	m.logger.Debug("Rate limit exceeded",
		zap.String("ip", clientIP),
		zap.Duration("delay", delay),
		zap.Int("strikes", state.strikes))
	return false, delay, errRateLimit
}
