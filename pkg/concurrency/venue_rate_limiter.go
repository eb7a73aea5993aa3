package concurrency

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// VenueRateLimiter holds one token-bucket limiter per venue so outbound
// calls respect each connector's configured rate limit (§5: "HTTP clients:
// one pooled client per connector... configured rate limits respected per
// venue").
type VenueRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	defaults map[string]rate.Limit
	burst    int
}

// NewVenueRateLimiter builds a limiter keyed by venue name. defaultRPS is
// used for venues with no explicit override.
func NewVenueRateLimiter(defaultRPS float64, burst int) *VenueRateLimiter {
	return &VenueRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: map[string]rate.Limit{"": rate.Limit(defaultRPS)},
		burst:    burst,
	}
}

// SetVenueLimit overrides the requests-per-second budget for one venue.
func (v *VenueRateLimiter) SetVenueLimit(venue string, rps float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.limiters, venue)
	v.defaults[venue] = rate.Limit(rps)
}

func (v *VenueRateLimiter) limiterFor(venue string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	if l, ok := v.limiters[venue]; ok {
		return l
	}

	limit, ok := v.defaults[venue]
	if !ok {
		limit = v.defaults[""]
	}
	l := rate.NewLimiter(limit, v.burst)
	v.limiters[venue] = l
	return l
}

// Wait blocks until venue's bucket has a token or ctx is cancelled.
func (v *VenueRateLimiter) Wait(ctx context.Context, venue string) error {
	return v.limiterFor(venue).Wait(ctx)
}
