package sockline

import (
	"log/slog"
	"time"
)

// DropPolicy selects which message is discarded when the outbound
// queue is at capacity.
type DropPolicy int

const (
	// DropOldest discards the head of the queue to admit the new message.
	DropOldest DropPolicy = iota
	// DropNewest discards the incoming message.
	DropNewest
)

// String returns the string representation of the DropPolicy.
func (policy DropPolicy) String() string {
	switch policy {
	case DropOldest:
		return "oldest"
	case DropNewest:
		return "newest"
	default:
		return "unknown"
	}
}

// RateLimit bounds how many sends are permitted per window. A Count of
// zero disables rate limiting.
type RateLimit struct {
	Count  int
	Window time.Duration
}

// Options configures a Client. The zero value of any field falls back
// to the DefaultOptions value, except Reconnect, which is taken as
// given.
type Options struct {
	// Reconnect enables automatic reconnection after failures.
	Reconnect bool
	// MaxReconnectAttempts caps automatic retries before the client
	// settles in Disconnected.
	MaxReconnectAttempts int
	// InitialRetryDelay is the backoff delay before the first retry.
	InitialRetryDelay time.Duration
	// MaxRetryDelay caps the backoff delay.
	MaxRetryDelay time.Duration
	// RetryMultiplier grows the delay between consecutive retries.
	RetryMultiplier float64
	// PingInterval is the period between liveness probes. Zero disables
	// the heartbeat.
	PingInterval time.Duration
	// PongTimeout bounds how long an unanswered probe is tolerated.
	PongTimeout time.Duration
	// ConnectTimeout bounds a socket open.
	ConnectTimeout time.Duration
	// DisconnectTimeout bounds a clean close before force-termination.
	DisconnectTimeout time.Duration
	// MaxQueueSize bounds the outbound queue.
	MaxQueueSize int
	// DropPolicy applies when the queue is at capacity.
	DropPolicy DropPolicy
	// RateLimit bounds sends per window.
	RateLimit RateLimit
	// StabilityWindow is how long a connection must stay Connected
	// before the attempt counter and backoff delay reset. Zero resets
	// immediately on reaching Connected.
	StabilityWindow time.Duration

	// Logger receives structured client events. Defaults to
	// slog.Default().
	Logger *slog.Logger
	// Factory opens sockets. Defaults to NewWebSocketFactory().
	Factory SocketFactory
	// Clock drives all timers. Defaults to SystemClock.
	Clock Clock
	// Strategy computes retry delays. Defaults to an exponential
	// strategy built from the retry fields above.
	Strategy ReconnectDelayStrategy
}

// DefaultOptions returns the baseline configuration.
func DefaultOptions() Options {
	return Options{
		Reconnect:            true,
		MaxReconnectAttempts: 10,
		InitialRetryDelay:    time.Second,
		MaxRetryDelay:        30 * time.Second,
		RetryMultiplier:      2,
		PingInterval:         30 * time.Second,
		PongTimeout:          10 * time.Second,
		ConnectTimeout:       10 * time.Second,
		DisconnectTimeout:    5 * time.Second,
		MaxQueueSize:         256,
		DropPolicy:           DropOldest,
		RateLimit:            RateLimit{},
		StabilityWindow:      30 * time.Second,
	}
}

func normalizeOptions(options Options) Options {
	normalized := options
	defaults := DefaultOptions()
	if normalized.MaxReconnectAttempts <= 0 {
		normalized.MaxReconnectAttempts = defaults.MaxReconnectAttempts
	}
	if normalized.InitialRetryDelay <= 0 {
		normalized.InitialRetryDelay = defaults.InitialRetryDelay
	}
	if normalized.MaxRetryDelay <= 0 {
		normalized.MaxRetryDelay = defaults.MaxRetryDelay
	}
	if normalized.RetryMultiplier < 1 {
		normalized.RetryMultiplier = defaults.RetryMultiplier
	}
	if normalized.PongTimeout <= 0 {
		normalized.PongTimeout = defaults.PongTimeout
	}
	if normalized.ConnectTimeout <= 0 {
		normalized.ConnectTimeout = defaults.ConnectTimeout
	}
	if normalized.DisconnectTimeout <= 0 {
		normalized.DisconnectTimeout = defaults.DisconnectTimeout
	}
	if normalized.MaxQueueSize <= 0 {
		normalized.MaxQueueSize = defaults.MaxQueueSize
	}
	if normalized.RateLimit.Count > 0 && normalized.RateLimit.Window <= 0 {
		normalized.RateLimit.Window = time.Second
	}
	if normalized.Logger == nil {
		normalized.Logger = slog.Default()
	}
	if normalized.Factory == nil {
		normalized.Factory = NewWebSocketFactory()
	}
	if normalized.Clock == nil {
		normalized.Clock = SystemClock{}
	}
	if normalized.Strategy == nil {
		normalized.Strategy = NewExponentialDelayStrategy(
			normalized.InitialRetryDelay,
			normalized.MaxRetryDelay,
			normalized.RetryMultiplier,
		)
	}
	return normalized
}
