package tts

import "time"

// RetryPolicy controls how the client handles transient synthesis
// failures. Delays grow geometrically from InitialDelay and are capped
// at MaxDelay.
type RetryPolicy struct {
	Attempts     int // total attempts, including the first
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy makes three attempts, waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     3,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2,
	}
}

// Delay returns how long to wait after the given 1-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.InitialDelay
	if d <= 0 {
		d = time.Second
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * mult)
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
