package fetcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"imgfetch/internal/downloader"
	"imgfetch/pkg/config"
	"imgfetch/pkg/errors"
	"imgfetch/pkg/logger"
	"imgfetch/pkg/metadata"
	"imgfetch/pkg/ratelimit"
	"imgfetch/pkg/retry"
	"imgfetch/pkg/storage"
	"imgfetch/pkg/unsplash"
)

// KeywordResult is the outcome of one keyword
type KeywordResult struct {
	Keyword    string
	Found      int
	Downloaded int
	Skipped    int
	Failed     int
	Err        error
}

// Summary is the outcome of a run
type Summary struct {
	RunID           string
	TotalDownloaded int
	OutputDir       string
	Keywords        []KeywordResult
	ManifestPath    string
	Interrupted     bool
	Duration        time.Duration
}

// Fetcher orchestrates the search and download of every configured keyword
type Fetcher struct {
	client   PhotoClient
	config   *config.Config
	events   *serialHandler
	base     logger.Logger
	logger   logger.Logger
	limiter  ratelimit.Limiter
	retrier  *retry.Retrier
	storage  *storage.Manager
	manifest *metadata.Manifest
	total    atomic.Int64
}

// New creates a Fetcher. handler may be nil.
func New(cfg *config.Config, client PhotoClient, handler EventHandler, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}

	f := &Fetcher{
		client:  client,
		config:  cfg,
		events:  &serialHandler{h: handler},
		base:    log,
		logger:  log,
		retrier: retry.NewSearchRetrier(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay, log),
	}

	// A nil *TokenBucket must not end up inside the interface
	if tb := ratelimit.NewPerHour(cfg.RateLimit.RequestsPerHour); tb != nil {
		f.limiter = tb
	}

	return f
}

// SetLimiter overrides the request budget; nil disables it
func (f *Fetcher) SetLimiter(l ratelimit.Limiter) {
	f.limiter = l
}

// SetRetrier overrides the search retry policy
func (f *Fetcher) SetRetrier(r *retry.Retrier) {
	f.retrier = r
}

// Run processes every keyword and returns the summary. The only error it
// returns is a failure to prepare the output directory, in which case no
// request has been made.
func (f *Fetcher) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	outputDir := f.config.Output.Directory
	runID := uuid.New().String()
	f.logger = f.base.WithField("run_id", runID)

	storageManager, err := storage.NewManager(outputDir, f.config.Download.ChunkSize)
	if err != nil {
		f.logger.WithError(err).WithField("output_dir", outputDir).Error("Failed to prepare output directory")
		return nil, err
	}
	f.storage = storageManager
	f.total.Store(0)

	if f.config.Output.WriteManifest {
		f.manifest = metadata.NewManifest(runID)
	}

	keywords := f.config.Search.Keywords
	f.logger.InfoWithFields("Starting fetch run", map[string]interface{}{
		"keywords":    len(keywords),
		"per_keyword": f.config.Search.PerKeyword,
		"quality":     f.config.Search.Quality,
		"orientation": f.config.Search.Orientation,
		"output_dir":  outputDir,
		"workers":     f.config.Download.ConcurrentKeywords,
	})

	results := downloader.Run(ctx, f.config.Download.ConcurrentKeywords, keywords, f.processKeyword, f.logger)

	summary := &Summary{
		RunID:           runID,
		TotalDownloaded: int(f.total.Load()),
		OutputDir:       outputDir,
		Keywords:        make([]KeywordResult, 0, len(results)),
		Interrupted:     ctx.Err() != nil,
	}
	for _, r := range results {
		summary.Keywords = append(summary.Keywords, r.Value)
	}

	if f.manifest != nil {
		path, err := f.manifest.Save(outputDir)
		if err != nil {
			f.logger.WithError(err).Warn("Failed to write manifest")
		} else {
			summary.ManifestPath = path
		}
	}

	summary.Duration = time.Since(start)
	f.events.emit(Event{Type: EventRunComplete, Path: outputDir, Count: summary.TotalDownloaded})

	return summary, nil
}

// processKeyword searches one keyword and downloads its results until the target is met
func (f *Fetcher) processKeyword(ctx context.Context, keyword string) KeywordResult {
	result := KeywordResult{Keyword: keyword}
	target := f.config.Search.PerKeyword

	f.events.emit(Event{Type: EventKeywordStart, Keyword: keyword})
	defer func() {
		f.events.emit(Event{Type: EventKeywordDone, Keyword: keyword, Count: result.Downloaded})
	}()

	resp, err := f.search(ctx, keyword, target)
	if err != nil {
		result.Err = err
		f.events.emit(Event{Type: EventSearchFailed, Keyword: keyword, Err: err})
		return result
	}

	result.Found = len(resp.Results)
	if result.Found == 0 {
		f.events.emit(Event{Type: EventNoResults, Keyword: keyword})
		return result
	}
	f.events.emit(Event{Type: EventResultsFound, Keyword: keyword, Count: result.Found})

	for i := range resp.Results {
		if result.Downloaded >= target || ctx.Err() != nil {
			break
		}

		photo := &resp.Results[i]
		switch f.downloadRecord(ctx, keyword, photo) {
		case outcomeSaved:
			result.Downloaded++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
	}

	return result
}

// search issues the keyword query, honouring the request budget and retry policy
func (f *Fetcher) search(ctx context.Context, keyword string, perPage int) (*unsplash.SearchResponse, error) {
	params := unsplash.SearchParams{
		Query:       keyword,
		PerPage:     perPage,
		Orientation: f.config.Search.Orientation,
	}

	var resp *unsplash.SearchResponse
	retrier := f.retrier.WithContext(ctx).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		f.logger.WarnWithFields("Retrying search", map[string]interface{}{
			"keyword":    keyword,
			"attempt":    attempt,
			"delay_ms":   delay.Milliseconds(),
			"error_kind": string(errors.KindOf(err)),
		})
	})
	err := retrier.Do(func() error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		var err error
		resp, err = f.client.SearchPhotos(ctx, params)
		return err
	})
	if err != nil {
		if errors.Is(err, errors.KindRateLimit) {
			logger.LogRateLimit(f.logger, unsplash.SearchEndpoint, keyword)
		}
		return nil, err
	}
	return resp, nil
}

type recordOutcome int

const (
	outcomeSaved recordOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// downloadRecord streams a single photo to disk
func (f *Fetcher) downloadRecord(ctx context.Context, keyword string, photo *unsplash.Photo) recordOutcome {
	quality := f.config.Search.Quality
	if photo.Invalid() {
		f.events.emit(Event{
			Type:    EventRecordSkipped,
			Keyword: keyword,
			Err:     errors.Wrap(errors.KindParsing, photo.DecodeErr, "malformed image record"),
		})
		return outcomeSkipped
	}

	imageURL, ok := photo.URL(quality)
	if !ok || photo.ID == "" {
		f.events.emit(Event{
			Type:    EventRecordSkipped,
			Keyword: keyword,
			PhotoID: photo.ID,
			Err:     errors.New(errors.KindParsing, fmt.Sprintf("record has no id or no %q url", quality)),
		})
		return outcomeSkipped
	}

	body, err := f.client.OpenImage(ctx, imageURL)
	if err != nil {
		f.events.emit(Event{Type: EventDownloadFailed, Keyword: keyword, PhotoID: photo.ID, URL: imageURL, Err: err})
		return outcomeFailed
	}
	defer body.Close()

	path, size, err := f.storage.SaveImage(body, keyword, photo.ID)
	if err != nil {
		if errors.Is(err, errors.KindNetwork) {
			f.events.emit(Event{Type: EventDownloadFailed, Keyword: keyword, PhotoID: photo.ID, URL: imageURL, Err: err})
		} else {
			f.events.emit(Event{Type: EventSaveFailed, Keyword: keyword, PhotoID: photo.ID, Path: path, Err: err})
		}
		return outcomeFailed
	}

	f.total.Add(1)
	if f.manifest != nil {
		f.manifest.Add(metadata.FromPhoto(keyword, quality, path, photo, size))
	}
	f.events.emit(Event{Type: EventDownloadSucceeded, Keyword: keyword, PhotoID: photo.ID, URL: imageURL, Path: path})

	return outcomeSaved
}
