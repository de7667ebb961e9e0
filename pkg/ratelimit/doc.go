// Package ratelimit provides an optional request budget for the search API.
//
// Unsplash grants demo applications a fixed number of requests per hour. A
// TokenBucket with that capacity and a one hour refill period keeps a run
// under the budget; Wait blocks until the bucket refills or the context is
// cancelled.
//
// Usage:
//
//	limiter := ratelimit.NewPerHour(50) // nil when the budget is 0
//	if limiter != nil {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package ratelimit
