package fetcher

import (
	"sync"

	"imgfetch/pkg/errors"
	"imgfetch/pkg/logger"
)

// EventType identifies what happened during a run
type EventType string

const (
	EventKeywordStart      EventType = "keyword_start"
	EventSearchFailed      EventType = "search_failed"
	EventNoResults         EventType = "no_results"
	EventResultsFound      EventType = "results_found"
	EventRecordSkipped     EventType = "record_skipped"
	EventDownloadSucceeded EventType = "download_succeeded"
	EventDownloadFailed    EventType = "download_failed"
	EventSaveFailed        EventType = "save_failed"
	EventKeywordDone       EventType = "keyword_done"
	EventRunComplete       EventType = "run_complete"
)

// Event is a progress notification. Only the fields relevant to Type are set:
// Count is the number of results for results_found, the successes for
// keyword_done and the run total for run_complete. Path is the output
// directory for run_complete.
type Event struct {
	Type    EventType
	Keyword string
	PhotoID string
	URL     string
	Path    string
	Count   int
	Err     error
}

// EventHandler receives run events. The Fetcher serializes calls, so
// handlers need not be safe for concurrent use.
type EventHandler func(Event)

// Handlers fans an event out to every non-nil handler in order
func Handlers(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// LogEvents returns a handler that writes each event to log
func LogEvents(log logger.Logger) EventHandler {
	return func(e Event) {
		fields := map[string]interface{}{
			"event": string(e.Type),
		}
		if e.Keyword != "" {
			fields["keyword"] = e.Keyword
		}
		if e.PhotoID != "" {
			fields["photo_id"] = e.PhotoID
		}
		if e.URL != "" {
			fields["url"] = e.URL
		}
		if e.Path != "" {
			fields["path"] = e.Path
		}

		switch e.Type {
		case EventSearchFailed, EventDownloadFailed, EventSaveFailed:
			fields["error_kind"] = string(errors.KindOf(e.Err))
			log.WithError(e.Err).WarnWithFields("Keyword step failed", fields)
		case EventRecordSkipped:
			log.DebugWithFields("Record skipped", fields)
		case EventDownloadSucceeded:
			logger.LogDownload(log, e.Keyword, e.PhotoID, true, nil)
		case EventResultsFound, EventKeywordDone:
			fields["count"] = e.Count
			log.DebugWithFields("Keyword progress", fields)
		case EventRunComplete:
			fields["total_downloaded"] = e.Count
			log.InfoWithFields("Run complete", fields)
		default:
			log.DebugWithFields("Keyword event", fields)
		}
	}
}

// serialHandler guards a handler with a mutex
type serialHandler struct {
	mu sync.Mutex
	h  EventHandler
}

func (s *serialHandler) emit(e Event) {
	if s.h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h(e)
}
