// Package retry provides exponential backoff and retry logic for transient
// failures of search requests.
//
// Retrying is off unless more than one attempt is configured. Only network
// and server errors are retried; an invalid access key (401) or an exhausted
// quota (403, 429) is returned on the first attempt, since waiting a few
// seconds cannot fix either. A Retry-After header on a failed response
// overrides the computed backoff, up to the configured maximum.
//
// Basic usage:
//
//	retrier := retry.NewSearchRetrier(3, time.Second, logger.GetLogger()).WithContext(ctx)
//	err := retrier.Do(func() error {
//		resp, err = client.SearchPhotos(ctx, params)
//		return err
//	})
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff: &retry.SearchBackoff{
//			BaseDelay:  2 * time.Second,
//			MaxDelay:   30 * time.Second,
//			Multiplier: 2.0,
//			Jitter:     0.1,
//		},
//		RetryIf: retry.DefaultRetryIf,
//	}
//	result, err := retry.DoWithResult(operation, cfg)
package retry
