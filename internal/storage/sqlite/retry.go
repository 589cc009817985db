package sqlite

import (
	"math/rand"
	"strings"
	"time"
)

// RetryConfig controls backoff for SQLite lock contention.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	JitterPct  float64 // 0.25 adds up to 25% on top of each delay
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 7,
		BaseDelay:  50 * time.Millisecond,
		JitterPct:  0.25,
	}
}

// RetryOnDBLock retries fn while it reports "database is locked",
// doubling the delay each attempt. Any other error, booking conflicts
// included, returns on the first attempt.
func RetryOnDBLock(fn func() error) error {
	return retryOnDBLockInternal(DefaultRetryConfig(), fn, time.Sleep)
}

func RetryOnDBLockWithConfig(cfg RetryConfig, fn func() error) error {
	return retryOnDBLockInternal(cfg, fn, time.Sleep)
}

func retryOnDBLockInternal(cfg RetryConfig, fn func() error, sleep func(time.Duration)) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !isDBLocked(err) || attempt == cfg.MaxRetries {
			return err
		}
		delay := cfg.BaseDelay << attempt
		delay += time.Duration(rand.Float64() * cfg.JitterPct * float64(delay))
		sleep(delay)
	}
}

func isDBLocked(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "database is locked")
}
