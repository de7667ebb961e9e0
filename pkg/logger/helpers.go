package logger

import (
	"github.com/rs/zerolog"
)

// LogRequest logs an HTTP exchange at a level matching its status
func LogRequest(l Logger, method, url string, statusCode int, durationMs int64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogDownload logs the outcome of a single image download
func LogDownload(l Logger, keyword, photoID string, success bool, err error) {
	entry := l.WithFields(map[string]interface{}{
		"keyword":  keyword,
		"photo_id": photoID,
		"success":  success,
	})

	switch {
	case err != nil:
		entry.WithError(err).Error("Download failed")
	case success:
		entry.Info("Download completed")
	default:
		entry.Warn("Download skipped")
	}
}

// LogRateLimit logs a request held back or refused because of the hourly quota
func LogRateLimit(l Logger, endpoint string, keyword string) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"keyword":  keyword,
		"action":   "rate_limited",
	}).Warn("Rate limit reached")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
