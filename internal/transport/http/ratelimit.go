package http

import "golang.org/x/time/rate"

// execLimiter caps execution requests per connection. A zero or negative
// rate disables the cap.
type execLimiter struct {
	limiter *rate.Limiter
}

func newExecLimiter(perSec float64) *execLimiter {
	if perSec <= 0 {
		return &execLimiter{}
	}
	burst := int(perSec) * 2
	if burst < 1 {
		burst = 1
	}
	return &execLimiter{limiter: rate.NewLimiter(rate.Limit(perSec), burst)}
}

func (e *execLimiter) allow() bool {
	if e.limiter == nil {
		return true
	}
	return e.limiter.Allow()
}
