package sockline

import (
	"math"
	"time"
)

// ReconnectDelayStrategy computes the wait before reconnection attempt
// n (zero-based). Reset is called once a connection has proven stable.
type ReconnectDelayStrategy interface {
	ConnectWaitDuration(attempt int) time.Duration
	Reset()
}

// FixedDelayStrategy waits the same delay before every attempt.
type FixedDelayStrategy struct {
	Delay time.Duration
}

// NewFixedDelayStrategy returns a new FixedDelayStrategy.
func NewFixedDelayStrategy(delay time.Duration) *FixedDelayStrategy {
	if delay < 0 {
		delay = 0
	}
	return &FixedDelayStrategy{Delay: delay}
}

// ConnectWaitDuration returns the fixed delay.
func (strategy *FixedDelayStrategy) ConnectWaitDuration(attempt int) time.Duration {
	if strategy == nil {
		return 0
	}
	return strategy.Delay
}

// Reset is a no-op for the fixed strategy.
func (strategy *FixedDelayStrategy) Reset() {}

// ExponentialDelayStrategy grows the delay geometrically up to a cap:
// delay(n) = min(InitialDelay × Multiplier^n, MaxDelay). No jitter is
// applied; inject a custom strategy for jittered backoff.
type ExponentialDelayStrategy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NewExponentialDelayStrategy returns a new ExponentialDelayStrategy.
func NewExponentialDelayStrategy(initialDelay time.Duration, maxDelay time.Duration, multiplier float64) *ExponentialDelayStrategy {
	if initialDelay < 0 {
		initialDelay = 0
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	if multiplier < 1 {
		multiplier = 2
	}
	return &ExponentialDelayStrategy{
		InitialDelay: initialDelay,
		MaxDelay:     maxDelay,
		Multiplier:   multiplier,
	}
}

// ConnectWaitDuration returns the capped exponential delay for attempt.
func (strategy *ExponentialDelayStrategy) ConnectWaitDuration(attempt int) time.Duration {
	if strategy == nil {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := strategy.InitialDelay
	if attempt > 0 && delay > 0 {
		delayFloat := float64(delay) * math.Pow(strategy.Multiplier, float64(attempt))
		if delayFloat > float64(strategy.MaxDelay) {
			delayFloat = float64(strategy.MaxDelay)
		}
		delay = time.Duration(delayFloat)
	}
	if delay > strategy.MaxDelay {
		delay = strategy.MaxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// Reset is a no-op: the strategy is a pure function of the attempt
// number, which the client tracks.
func (strategy *ExponentialDelayStrategy) Reset() {}
