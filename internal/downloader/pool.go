package downloader

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"imgfetch/pkg/logger"
)

// KeywordJob represents the search-and-download work for one keyword
type KeywordJob struct {
	Index   int
	Keyword string
}

// KeywordResult represents the outcome of a keyword job
type KeywordResult[R any] struct {
	Job      KeywordJob
	Value    R
	Duration time.Duration
}

// ProcessFunc handles a single keyword
type ProcessFunc[R any] func(ctx context.Context, keyword string) R

// KeywordPool runs keyword jobs on a bounded set of workers.
// With a single worker jobs are processed strictly in submission order.
type KeywordPool[R any] struct {
	numWorkers  int
	jobQueue    chan KeywordJob
	resultQueue chan KeywordResult[R]
	workers     errgroup.Group
	ctx         context.Context
	cancel      context.CancelFunc
	process     ProcessFunc[R]
	logger      logger.Logger
}

// NewKeywordPool creates a new keyword worker pool bound to ctx
func NewKeywordPool[R any](ctx context.Context, numWorkers int, process ProcessFunc[R], log logger.Logger) *KeywordPool[R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &KeywordPool[R]{
		numWorkers:  numWorkers,
		jobQueue:    make(chan KeywordJob, numWorkers*2), // Buffer size = 2x workers
		resultQueue: make(chan KeywordResult[R], numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		process:     process,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (p *KeywordPool[R]) Start() {
	p.logger.DebugWithFields("Starting keyword pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		id := i
		p.workers.Go(func() error {
			p.worker(id)
			return nil
		})
	}
}

// Stop closes the job queue, waits for in-flight jobs and closes the results channel
func (p *KeywordPool[R]) Stop() {
	close(p.jobQueue)
	_ = p.workers.Wait()
	close(p.resultQueue)
	p.cancel()

	p.logger.Debug("Keyword pool stopped")
}

// Submit adds a new keyword job to the queue
func (p *KeywordPool[R]) Submit(job KeywordJob) error {
	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("Keyword job queued", map[string]interface{}{
			"keyword": job.Keyword,
			"index":   job.Index,
		})
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("keyword pool is shutting down: %w", p.ctx.Err())
	}
}

// Results returns the result channel for consuming keyword results
func (p *KeywordPool[R]) Results() <-chan KeywordResult[R] {
	return p.resultQueue
}

// worker is the main worker routine
func (p *KeywordPool[R]) worker(id int) {
	for job := range p.jobQueue {
		// Check if context is cancelled
		select {
		case <-p.ctx.Done():
			p.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		start := time.Now()
		value := p.process(p.ctx, job.Keyword)

		// Results are always delivered; the collector drains until Stop closes the channel
		p.resultQueue <- KeywordResult[R]{
			Job:      job,
			Value:    value,
			Duration: time.Since(start),
		}
	}
}

// GetActiveWorkers returns the number of workers
func (p *KeywordPool[R]) GetActiveWorkers() int {
	return p.numWorkers
}

// Run processes keywords on numWorkers workers and returns the results of
// every keyword that was processed, in keyword order. Keywords not started
// before ctx is cancelled are left out.
func Run[R any](ctx context.Context, numWorkers int, keywords []string, process ProcessFunc[R], log logger.Logger) []KeywordResult[R] {
	pool := NewKeywordPool(ctx, numWorkers, process, log)
	pool.Start()

	go func() {
		defer pool.Stop()
		for i, keyword := range keywords {
			if err := pool.Submit(KeywordJob{Index: i, Keyword: keyword}); err != nil {
				pool.logger.DebugWithFields("Stopped submitting keywords", map[string]interface{}{
					"remaining": len(keywords) - i,
					"reason":    err.Error(),
				})
				return
			}
		}
	}()

	results := make([]KeywordResult[R], 0, len(keywords))
	for result := range pool.Results() {
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Job.Index < results[j].Job.Index
	})
	return results
}
