// Package ratelimit tracks attempts per client key in fixed time windows.
package ratelimit

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultMaxAttempts is the number of contact submissions allowed per window.
	DefaultMaxAttempts = 3
	// DefaultWindow is the length of one counting window.
	DefaultWindow = time.Hour
	// DefaultMaxTrackedKeys bounds the number of client keys held in memory.
	DefaultMaxTrackedKeys = 10000

	// UnknownClientKey is used when no client address can be determined.
	UnknownClientKey = "unknown"
)

var (
	ErrInvalidMaxAttempts = errors.New("ratelimit: max attempts must be positive")
	ErrInvalidWindow      = errors.New("ratelimit: window must be positive")
)

// Limiter decides whether another attempt for a key is admitted.
type Limiter interface {
	TryConsume(key string) bool
}

// Config describes a fixed-window limit.
type Config struct {
	MaxAttempts    int
	Window         time.Duration
	MaxTrackedKeys int
}

// DefaultConfig returns the contact submission limit of three attempts per hour.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    DefaultMaxAttempts,
		Window:         DefaultWindow,
		MaxTrackedKeys: DefaultMaxTrackedKeys,
	}
}

// Option customizes a FixedWindowLimiter.
type Option func(*FixedWindowLimiter)

// WithClock overrides the time source used to open and expire windows.
func WithClock(clock func() time.Time) Option {
	return func(limiter *FixedWindowLimiter) {
		if clock != nil {
			limiter.now = clock
		}
	}
}

type windowEntry struct {
	count       int
	windowStart time.Time
}

// FixedWindowLimiter admits up to MaxAttempts per key within a window that opens on the first attempt.
// Denied attempts never modify the window. Bursts of up to twice the limit are possible across a window boundary.
type FixedWindowLimiter struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time
	mutex       sync.Mutex
	entries     *expirable.LRU[string, windowEntry]
}

// NewFixedWindowLimiter validates the configuration and constructs a limiter.
func NewFixedWindowLimiter(config Config, options ...Option) (*FixedWindowLimiter, error) {
	if config.MaxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if config.Window <= 0 {
		return nil, ErrInvalidWindow
	}
	maxTrackedKeys := config.MaxTrackedKeys
	if maxTrackedKeys <= 0 {
		maxTrackedKeys = DefaultMaxTrackedKeys
	}

	limiter := &FixedWindowLimiter{
		maxAttempts: config.MaxAttempts,
		window:      config.Window,
		now:         time.Now,
		entries:     expirable.NewLRU[string, windowEntry](maxTrackedKeys, nil, config.Window),
	}
	for _, option := range options {
		if option != nil {
			option(limiter)
		}
	}
	return limiter, nil
}

// TryConsume records an attempt for the key and reports whether it is admitted.
func (limiter *FixedWindowLimiter) TryConsume(key string) bool {
	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		normalizedKey = UnknownClientKey
	}

	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	now := limiter.now()
	entry, found := limiter.entries.Get(normalizedKey)
	if !found || now.Sub(entry.windowStart) > limiter.window {
		limiter.entries.Add(normalizedKey, windowEntry{count: 1, windowStart: now})
		return true
	}
	if entry.count >= limiter.maxAttempts {
		return false
	}
	entry.count++
	limiter.entries.Add(normalizedKey, entry)
	return true
}

// remaining reports how many attempts the key has left in its current window.
func (limiter *FixedWindowLimiter) remaining(key string) int {
	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		normalizedKey = UnknownClientKey
	}

	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	entry, found := limiter.entries.Peek(normalizedKey)
	if !found || limiter.now().Sub(entry.windowStart) > limiter.window {
		return limiter.maxAttempts
	}
	return limiter.maxAttempts - entry.count
}
