// Package logger provides the structured logging layer used across imgfetch.
//
// It wraps zerolog behind a small Logger interface so that the fetcher, the
// API client and the worker pool can be handed a no-op or capturing logger in
// tests while the CLI installs a console (and optionally file) backed one.
//
// Basic Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("keyword", "cafe ambiance").Info("searching")
//
// Structured fields:
//
//	log.InfoWithFields("image saved", map[string]interface{}{
//	    "keyword":  keyword,
//	    "photo_id": id,
//	    "bytes":    n,
//	})
package logger
