package room

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines the per-connection inbound message gate: a token
// bucket in front of the role handler plus a warning budget for connections
// that keep sending on an empty bucket.
type RateLimitConfig struct {
	// Capacity is the maximum number of tokens the bucket holds.
	Capacity int
	// RefillInterval is the time between single-token refills.
	RefillInterval time.Duration
	// WarnWindow is how often the accumulated warning count resets.
	WarnWindow time.Duration
	// WarnLimit is the number of warnings tolerated before the connection
	// is terminated.
	WarnLimit int
	// Enabled determines if rate limiting is active.
	Enabled bool
}

// DefaultRateLimitConfig returns the default gate configuration:
// 20 tokens, +1 token every 100ms, 3 warnings tolerated per 5s window.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Capacity:       20,
		RefillInterval: 100 * time.Millisecond,
		WarnWindow:     5 * time.Second,
		WarnLimit:      3,
		Enabled:        true,
	}
}

// NoRateLimit returns a configuration with the gate disabled.
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

// verdict is the outcome of offering one inbound message to the gate.
type verdict int

const (
	// verdictAdmit lets the message through to the role handler.
	verdictAdmit verdict = iota
	// verdictDrop discards the message after notifying the sender.
	verdictDrop
	// verdictKill terminates the connection: the warning budget ran out.
	verdictKill
)

// bucket is one connection's rate gate. The token side is a rate.Limiter;
// the warning counter sits on top and resets on its own period, independent
// of token refill.
type bucket struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	warnings int

	cfg *RateLimitConfig
}

func newBucket(cfg *RateLimitConfig) *bucket {
	if cfg == nil {
		cfg = DefaultRateLimitConfig()
	}

	var limiter *rate.Limiter
	if cfg.Enabled {
		limiter = rate.NewLimiter(rate.Every(cfg.RefillInterval), cfg.Capacity)
	}

	return &bucket{
		limiter: limiter,
		cfg:     cfg,
	}
}

// offer consumes one token if available. On an empty bucket it burns one
// warning; the verdict escalates to kill once the warning budget is spent.
func (b *bucket) offer() verdict {
	if b.limiter == nil {
		return verdictAdmit
	}

	if b.limiter.Allow() {
		return verdictAdmit
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.warnings++
	if b.warnings >= b.cfg.WarnLimit {
		return verdictKill
	}
	return verdictDrop
}

// run clears the warning counter every WarnWindow until ctx is cancelled.
// Token refill needs no goroutine; rate.Limiter accrues tokens by time.
func (b *bucket) run(ctx context.Context) {
	if b.limiter == nil {
		return
	}

	ticker := time.NewTicker(b.cfg.WarnWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.mu.Lock()
			b.warnings = 0
			b.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}
