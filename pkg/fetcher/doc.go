// Package fetcher runs a keyword batch: one search per keyword, then a
// streamed download of each result until the per-keyword target is met.
//
// The Fetcher never writes to the console. Progress is published as Event
// values to an EventHandler; ui.Reporter renders them for people and
// LogEvents turns them into structured log lines. Combine several handlers
// with Handlers.
//
// Failure policy:
//
//   - The output directory cannot be created: Run returns a storage error
//     before any request is made.
//   - A search fails (network, 401, 403, malformed JSON): the keyword is
//     reported and skipped, the next keyword runs immediately.
//   - A record has no URL for the chosen quality or no id: skipped, no request.
//   - A download or a write fails: reported, the next record is tried.
//
// Usage:
//
//	client := unsplash.NewClient(&cfg.Unsplash, cfg.Download.Timeout, log)
//	f := fetcher.New(cfg, client, reporter.Handle, log)
//	summary, err := f.Run(ctx)
package fetcher
