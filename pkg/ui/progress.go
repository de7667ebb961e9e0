package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker keeps track of keyword progress across a run
type StatusTracker struct {
	mu              sync.Mutex
	TotalKeywords   int
	KeywordsDone    int
	TotalDownloaded int
	Failures        int
	StartTime       time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker(totalKeywords int) *StatusTracker {
	return &StatusTracker{
		TotalKeywords: totalKeywords,
		StartTime:     time.Now(),
	}
}

// IncrementDownloaded records one saved image
func (st *StatusTracker) IncrementDownloaded() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.TotalDownloaded++
}

// IncrementFailures records one failed search, download or write
func (st *StatusTracker) IncrementFailures() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Failures++
}

// KeywordFinished records a completed keyword
func (st *StatusTracker) KeywordFinished() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.KeywordsDone++
}

// GetKeywordProgress returns a formatted progress bar over the keyword list
func (st *StatusTracker) GetKeywordProgress() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	const width = 20
	filled := 0
	if st.TotalKeywords > 0 {
		filled = st.KeywordsDone * width / st.TotalKeywords
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.KeywordsDone, st.TotalKeywords)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetDownloadRate returns the average download rate (items per minute)
func (st *StatusTracker) GetDownloadRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.GetDownloadedCount()) / elapsed
}

// Stats summarizes elapsed time, download rate and failures
func (st *StatusTracker) Stats() string {
	return fmt.Sprintf("elapsed %s, %.1f images/min, %d failures",
		st.GetElapsedTime().Round(time.Second), st.GetDownloadRate(), st.GetFailureCount())
}

// GetDownloadedCount returns the total number of downloaded items
func (st *StatusTracker) GetDownloadedCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.TotalDownloaded
}

// GetFailureCount returns the number of recorded failures
func (st *StatusTracker) GetFailureCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.Failures
}
