package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	catalogRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_rate_limit_remaining",
		Help: "Number of requests remaining in the current catalog API window",
	})

	catalogRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to a critical request budget",
	})

	catalogRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low request budget",
	})
)

// DefaultThrottleDelay is how long a request waits in the warning state.
const DefaultThrottleDelay = 1 * time.Second

// Tracker monitors the shared request budget and gates requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	// ThrottleDelay is the pause applied in the warning state.
	ThrottleDelay time.Duration
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		ThrottleDelay: DefaultThrottleDelay,
	}
}

// defaultState is assumed until the API reports a budget.
func defaultState() *State {
	now := time.Now()
	return &State{
		Remaining:  100,
		ResetAt:    now.Add(60 * time.Second),
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// GetState retrieves the current state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	values, err := t.redis.MGet(ctx, RedisKeyRemaining, RedisKeyResetTimestamp, RedisKeyLastUpdate).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	if values[0] == nil {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return defaultState(), nil
	}

	remaining, err := parseRedisInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}

	var resetUnix, lastUnix int64
	if values[1] != nil {
		v, err := parseRedisInt(values[1])
		if err != nil {
			return nil, fmt.Errorf("parse reset timestamp: %w", err)
		}
		resetUnix = int64(v)
	}
	if values[2] != nil {
		v, err := parseRedisInt(values[2])
		if err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
		lastUnix = int64(v)
	}

	state := &State{
		Remaining:  remaining,
		ResetAt:    time.Unix(resetUnix, 0),
		LastUpdate: time.Unix(lastUnix, 0),
	}
	state.UpdateHealth()

	return state, nil
}

// ParseHeaders extracts the request budget from response headers.
// ok is false when the response carries no budget headers.
func ParseHeaders(headers http.Header, now time.Time) (state *State, ok bool, err error) {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil, false, nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return nil, false, errors.New(HeaderReset + " header missing")
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	state = &State{
		Remaining:  remain,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
	}
	state.UpdateHealth()
	return state, true, nil
}

// UpdateFromHeaders parses budget headers and updates Redis state.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, ok, err := ParseHeaders(headers, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		// Header not present - fine for endpoints without a budget
		return nil
	}

	ttl := state.TimeUntilReset() + time.Minute

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, ttl)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), ttl)
	pipe.Set(ctx, RedisKeyLastUpdate, state.LastUpdate.Unix(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	catalogRateLimitRemaining.Set(float64(state.Remaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("Catalog request budget CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("Catalog request budget WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).
			Msg("Catalog request budget updated")
	}

	return nil
}

// ShouldAllowRequest checks whether a request may be sent now.
// Returns false if the request should be blocked; waits ThrottleDelay in the
// warning state unless ctx is done first.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Catalog request budget critical - blocking request")

		catalogRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("delay", t.ThrottleDelay).
			Msg("Catalog request budget low - throttling request")

		catalogRateLimitThrottlesTotal.Inc()

		timer := time.NewTimer(t.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}

func parseRedisInt(v interface{}) (int, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected redis value type %T", v)
	}
	return strconv.Atoi(s)
}
