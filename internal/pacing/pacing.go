// Package pacing implements the traffic-shaping policy consumed by the
// pipeline: randomized inter-request delays layered over a hard rate cap,
// plus browser identity rotation. The policy is injected so tests can disable
// it deterministically.
package pacing

import (
	"context"
	"fmt"
	"time"

	random "github.com/mazen160/go-random"
	"golang.org/x/time/rate"
)

// Policy is consulted before each entity scrape. MaybeWait applies the same
// delay with the configured probability, used for the optional post-entity
// pause.
type Policy interface {
	Wait(ctx context.Context) error
	MaybeWait(ctx context.Context) error
}

// Config bounds the jittered delay.
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// MaxRPS caps the request rate regardless of jitter; <= 0 means no cap.
	MaxRPS float64
	// PostWaitChance is the probability (0..1) that MaybeWait pauses.
	PostWaitChance float64
}

// Jittered draws a uniform delay from [MinDelay, MaxDelay] and additionally
// honors a token-bucket rate limit.
type Jittered struct {
	cfg     Config
	limiter *rate.Limiter
}

// NewJittered builds a Jittered policy from cfg.
func NewJittered(cfg Config) *Jittered {
	if cfg.MinDelay < 0 {
		cfg.MinDelay = 0
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	var limiter *rate.Limiter
	if cfg.MaxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), 1)
	}
	return &Jittered{cfg: cfg, limiter: limiter}
}

// Wait blocks for the drawn delay, then for the rate limiter.
func (p *Jittered) Wait(ctx context.Context) error {
	delay := p.drawDelay()
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("pacing wait: %w", ctx.Err())
		case <-timer.C:
		}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("pacing rate limit: %w", err)
		}
	}
	return nil
}

// MaybeWait pauses with probability PostWaitChance.
func (p *Jittered) MaybeWait(ctx context.Context) error {
	if p.cfg.PostWaitChance <= 0 {
		return nil
	}
	roll, err := random.IntRange(0, 100)
	if err != nil {
		return nil
	}
	if float64(roll) >= p.cfg.PostWaitChance*100 {
		return nil
	}
	return p.Wait(ctx)
}

func (p *Jittered) drawDelay() time.Duration {
	if p.cfg.MaxDelay <= 0 {
		return 0
	}
	if p.cfg.MaxDelay == p.cfg.MinDelay {
		return p.cfg.MinDelay
	}
	spreadMs := int((p.cfg.MaxDelay - p.cfg.MinDelay).Milliseconds())
	jitter, err := random.IntRange(0, spreadMs+1)
	if err != nil {
		return p.cfg.MinDelay
	}
	return p.cfg.MinDelay + time.Duration(jitter)*time.Millisecond
}

// None is the disabled policy used in tests; throughput throttling is not a
// correctness requirement.
type None struct{}

// Wait returns immediately.
func (None) Wait(_ context.Context) error { return nil }

// MaybeWait returns immediately.
func (None) MaybeWait(_ context.Context) error { return nil }
