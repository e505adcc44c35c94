package llm

import (
	"math/rand/v2"
	"time"
)

// Backoff returns the delay to wait before the given retry (1-based)
type Backoff interface {
	Delay(retry int) time.Duration
}

// ExponentialBackoff doubles the delay on every retry up to Max and spreads
// it by JitterFactor in both directions.
type ExponentialBackoff struct {
	Base         time.Duration
	Max          time.Duration
	JitterFactor float64
	// Rand returns a value in [0, 1). Defaults to math/rand.
	Rand func() float64
}

// NewExponentialBackoff uses a 0.2 jitter factor
func NewExponentialBackoff(base, max time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{Base: base, Max: max, JitterFactor: 0.2}
}

// Delay implements Backoff
func (b *ExponentialBackoff) Delay(retry int) time.Duration {
	if retry < 1 || b.Base <= 0 {
		return 0
	}
	d := b.Base
	for i := 1; i < retry; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			d = b.Max
			break
		}
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	if b.JitterFactor <= 0 {
		return d
	}

	rnd := b.Rand
	if rnd == nil {
		rnd = rand.Float64
	}
	jitter := b.JitterFactor * float64(d) * (rnd()*2 - 1)
	final := time.Duration(float64(d) + jitter)
	if final < 0 {
		return 0
	}
	return final
}
