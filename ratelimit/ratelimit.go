// Package ratelimit implements the one form of throttling the core
// protocol expresses: the QoS level negotiated with the gateway via
// ADMIN/QOS. It wraps golang.org/x/time/rate rather than hand-rolling a
// token bucket, since every outbound request path in the session funnels
// through a single shared limiter.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/alexgolec/td-ameritrade-api/fields"
)

// rates maps each QoS level to a requests-per-second figure and a burst
// allowance. These are this implementation's choice (see SPEC_FULL §9);
// the wire contract only carries the integer qoslevel.
var rates = map[fields.QOSLevel]struct {
	rps   float64
	burst int
}{
	fields.QOSExpress:  {rps: 20, burst: 20},
	fields.QOSRealTime: {rps: 10, burst: 10},
	fields.QOSFast:     {rps: 5, burst: 5},
	fields.QOSModerate: {rps: 2, burst: 4},
	fields.QOSSlow:     {rps: 1, burst: 2},
	fields.QOSDelayed:  {rps: 0.2, burst: 1},
}

// Limiter gates outbound requests at the rate implied by the most recent
// QoS level.
type Limiter struct {
	rl *rate.Limiter
}

// New creates a Limiter at QOSRealTime, the gateway's default tier until a
// QoS command changes it.
func New() *Limiter {
	l := &Limiter{rl: rate.NewLimiter(rate.Inf, 1)}
	l.SetLevel(fields.QOSRealTime)
	return l
}

// SetLevel reconfigures the limiter's rate and burst for level. An unknown
// level is rejected rather than silently falling back to a default, since a
// caller passing a bad level almost certainly has a bug.
func (l *Limiter) SetLevel(level fields.QOSLevel) error {
	cfg, ok := rates[level]
	if !ok {
		return fmt.Errorf("ratelimit: unknown QoS level %d", level)
	}
	l.rl.SetLimit(rate.Limit(cfg.rps))
	l.rl.SetBurst(cfg.burst)
	return nil
}

// Wait blocks until a request token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}
