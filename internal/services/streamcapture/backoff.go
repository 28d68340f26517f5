package streamcapture

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffPolicy bounds the pause between reconnect rounds
type BackoffPolicy struct {
	Min       time.Duration
	Max       time.Duration
	JitterPct int
}

// CalculateBackoffDelay calculates jittered exponential backoff delay
func (b BackoffPolicy) CalculateBackoffDelay(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	baseDelay := time.Duration(math.Pow(2, float64(attempt))) * time.Second

	// Clamp to configured min/max
	if b.Min > 0 && baseDelay < b.Min {
		baseDelay = b.Min
	}
	if b.Max > 0 && baseDelay > b.Max {
		baseDelay = b.Max
	}

	// Add jitter (random percentage of the delay)
	jitterPct := float64(b.JitterPct) / 100.0
	jitter := time.Duration(float64(baseDelay) * jitterPct * (rand.Float64()*2 - 1))

	return baseDelay + jitter
}
