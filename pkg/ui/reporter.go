package ui

import (
	"fmt"
	"io"

	"imgfetch/pkg/errors"
	"imgfetch/pkg/fetcher"
)

// Reporter renders fetcher events as console lines
type Reporter struct {
	out        io.Writer
	perKeyword int
	tracker    *StatusTracker
	verbose    bool
}

// NewReporter creates a reporter writing to out
func NewReporter(out io.Writer, perKeyword, totalKeywords int) *Reporter {
	return &Reporter{
		out:        out,
		perKeyword: perKeyword,
		tracker:    NewStatusTracker(totalKeywords),
	}
}

// SetVerbose adds keyword progress bars after each keyword
func (r *Reporter) SetVerbose(verbose bool) {
	r.verbose = verbose
}

// Tracker returns the progress counters fed by Handle
func (r *Reporter) Tracker() *StatusTracker {
	return r.tracker
}

// Handle renders a single event. It satisfies fetcher.EventHandler.
func (r *Reporter) Handle(e fetcher.Event) {
	switch e.Type {
	case fetcher.EventKeywordStart:
		r.printf("\n%s '%s' (target: %d images)\n", Magenta("Searching for"), e.Keyword, r.perKeyword)

	case fetcher.EventSearchFailed:
		r.tracker.IncrementFailures()
		r.printf("  %s\n", Red(fmt.Sprintf("API request failed: %v", e.Err)))
		if hint := searchHint(e.Err); hint != "" {
			r.printf("  %s\n", Red(hint))
		}

	case fetcher.EventNoResults:
		r.printf("  %s\n", Yellow(fmt.Sprintf("No images found for '%s'.", e.Keyword)))

	case fetcher.EventResultsFound:
		r.printf("  Found %d images, starting download...\n", e.Count)

	case fetcher.EventRecordSkipped:
		r.printf("  %s\n", Yellow("Error: image record is missing URL or ID."))

	case fetcher.EventDownloadSucceeded:
		r.tracker.IncrementDownloaded()
		r.printf("  %s %s\n", Green("Downloaded:"), e.Path)

	case fetcher.EventDownloadFailed:
		r.tracker.IncrementFailures()
		r.printf("  %s\n", Red(fmt.Sprintf("Download failed: %s - error: %v", e.URL, e.Err)))

	case fetcher.EventSaveFailed:
		r.tracker.IncrementFailures()
		r.printf("  %s\n", Red(fmt.Sprintf("Failed to save file: %s - error: %v", e.Path, e.Err)))

	case fetcher.EventKeywordDone:
		r.tracker.KeywordFinished()
		if r.verbose {
			r.printf("  %s %s\n", Dim("keywords"), Cyan(r.tracker.GetKeywordProgress()))
		}

	case fetcher.EventRunComplete:
		r.printf("\n%s\n", Cyan("--- Download complete ---"))
		r.printf("%s\n", Green(FinalLine(e.Count, e.Path)))
		if r.verbose {
			r.printf("%s\n", Dim(r.tracker.Stats()))
		}
	}
}

// FinalLine is the closing line of a run
func FinalLine(total int, dir string) string {
	return fmt.Sprintf("Downloaded %d images to %s", total, dir)
}

// PrintDirectoryError reports a fatal output directory failure
func (r *Reporter) PrintDirectoryError(dir string, err error) {
	r.printf("%s\n", Red(fmt.Sprintf("Cannot create directory %s: %v", dir, err)))
}

// searchHint explains the search failures a user can act on
func searchHint(err error) string {
	switch errors.KindOf(err) {
	case errors.KindAuth:
		return "Error: check your Unsplash access key."
	case errors.KindRateLimit:
		return "Error: API access denied, rate limit likely reached. Try again later."
	case errors.KindParsing:
		return "Error: failed to parse API response."
	default:
		return ""
	}
}

func (r *Reporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}
