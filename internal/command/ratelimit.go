// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Flood-guard defaults. A session may burst DefaultBurstCapacity commands
// and then sustain DefaultSustainedRate per second.
const (
	DefaultBurstCapacity = 10
	DefaultSustainedRate = 2.0

	// DefaultCleanupInterval is how often stale session buckets are swept.
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultSessionMaxAge is how long an idle bucket survives a sweep.
	DefaultSessionMaxAge = time.Hour
)

// RateLimiterConfig configures the flood guard. Zero values take the
// defaults above.
type RateLimiterConfig struct {
	BurstCapacity   int
	SustainedRate   float64
	CleanupInterval time.Duration
	SessionMaxAge   time.Duration
}

// sessionBucket is the token-bucket state for one session.
type sessionBucket struct {
	tokens    float64
	lastCheck time.Time
}

// RateLimiter is a per-session token-bucket flood guard. It runs a
// background sweep goroutine; call Close to stop it.
type RateLimiter struct {
	mu            sync.Mutex
	sessions      map[ulid.ULID]*sessionBucket
	burstCapacity int
	sustainedRate float64
	sessionMaxAge time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup

	sessionGauge prometheus.Gauge
}

// NewRateLimiter creates a rate limiter. reg may be nil to skip the
// session gauge.
func NewRateLimiter(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	if cfg.BurstCapacity <= 0 {
		cfg.BurstCapacity = DefaultBurstCapacity
	}
	if cfg.SustainedRate <= 0 {
		cfg.SustainedRate = DefaultSustainedRate
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = DefaultSessionMaxAge
	}

	rl := &RateLimiter{
		sessions:      make(map[ulid.ULID]*sessionBucket),
		burstCapacity: cfg.BurstCapacity,
		sustainedRate: cfg.SustainedRate,
		sessionMaxAge: cfg.SessionMaxAge,
		stopChan:      make(chan struct{}),
	}

	if reg != nil {
		rl.sessionGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mythosmud_ratelimiter_sessions",
			Help: "Current number of tracked rate limiter sessions",
		})
		reg.MustRegister(rl.sessionGauge)
	}

	rl.wg.Add(1)
	go rl.cleanupLoop(cfg.CleanupInterval)
	return rl
}

// Allow consumes one token for the session if available. When denied it
// returns the milliseconds until the next token.
func (rl *RateLimiter) Allow(sessionID ulid.ULID) (allowed bool, cooldownMs int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	bucket, exists := rl.sessions[sessionID]
	if !exists {
		bucket = &sessionBucket{
			tokens:    float64(rl.burstCapacity),
			lastCheck: now,
		}
		rl.sessions[sessionID] = bucket
	}

	elapsed := now.Sub(bucket.lastCheck).Seconds()
	bucket.tokens += elapsed * rl.sustainedRate
	if bucket.tokens > float64(rl.burstCapacity) {
		bucket.tokens = float64(rl.burstCapacity)
	}
	bucket.lastCheck = now

	if bucket.tokens >= 1.0 {
		bucket.tokens -= 1.0
		return true, 0
	}

	deficit := 1.0 - bucket.tokens
	return false, int64(deficit / rl.sustainedRate * 1000)
}

// SessionCount returns the number of tracked sessions.
func (rl *RateLimiter) SessionCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.sessions)
}

// Cleanup removes buckets idle longer than maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := time.Now().Add(-maxAge)
	for id, bucket := range rl.sessions {
		if bucket.lastCheck.Before(threshold) {
			delete(rl.sessions, id)
		}
	}
	if rl.sessionGauge != nil {
		rl.sessionGauge.Set(float64(len(rl.sessions)))
	}
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.Cleanup(rl.sessionMaxAge)
		}
	}
}

// Close stops the background sweep and blocks until it exits.
func (rl *RateLimiter) Close() {
	close(rl.stopChan)
	rl.wg.Wait()
}
