// Package downloader resolves reel URLs and saves the media to disk with a
// fixed pool of workers.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelproxy/internal/httputil"
	"reelproxy/pkg/instagram"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/metadata"
	"reelproxy/pkg/ratelimit"
	"reelproxy/pkg/reel"
	"reelproxy/pkg/storage"
)

// ErrPoolClosed is returned by Submit after Stop
var ErrPoolClosed = errors.New("worker pool is shutting down")

// Job is one source URL to download
type Job struct {
	URL string
}

// Result is the outcome of one Job
type Result struct {
	Job       Job
	Shortcode string
	Path      string
	Size      int64
	Skipped   bool
	Media     *reel.Result
	Err       error
	Duration  time.Duration
}

// Resolver turns a source URL into a media URL
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*reel.Result, error)
}

// Fetcher streams a media URL
type Fetcher interface {
	Download(ctx context.Context, mediaURL string) (io.ReadCloser, int64, error)
}

// Store persists media files
type Store interface {
	IsDownloaded(shortcode string) bool
	Path(shortcode string) string
	Save(r io.Reader, shortcode, ext string) (string, int64, error)
}

// Options tune a WorkerPool. Zero values fall back to one worker, no
// per-job timeout and no CDN rate limit.
type Options struct {
	Workers       int
	JobTimeout    time.Duration
	WriteMetadata bool
	Overwrite     bool
	Limiter       ratelimit.Limiter
	Reporter      Reporter
	Logger        logger.Logger
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	resolver Resolver
	fetcher  Fetcher
	store    Store
	opts     Options

	jobs    chan Job
	results chan Result
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	logger logger.Logger
}

// NewWorkerPool creates a pool. Call Start before Submit.
func NewWorkerPool(resolver Resolver, fetcher Fetcher, store Store, opts Options) *WorkerPool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		resolver: resolver,
		fetcher:  fetcher,
		store:    store,
		opts:     opts,
		jobs:     make(chan Job, opts.Workers*2),
		results:  make(chan Result, opts.Workers),
		logger:   log.WithField("component", "downloader"),
	}
}

// Start launches the workers. Cancelling ctx aborts in-flight jobs.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.mu.Lock()
	wp.ctx, wp.cancel = context.WithCancel(ctx)
	wp.mu.Unlock()

	logger.LogComponentStart(wp.logger, "downloader", map[string]interface{}{
		"workers":        wp.opts.Workers,
		"write_metadata": wp.opts.WriteMetadata,
	})

	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for queued jobs to finish and closes Results
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobs)
	wp.mu.Unlock()

	wp.wg.Wait()
	close(wp.results)
	wp.cancel()

	logger.LogComponentStop(wp.logger, "downloader", "queue drained")
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.jobs <- job:
		wp.logger.DebugWithFields("job queued", map[string]interface{}{"url": job.URL})
		return nil
	case <-wp.ctx.Done():
		return ErrPoolClosed
	}
}

// Results returns the channel of finished jobs. It is closed by Stop.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.results
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.logger.WithField("worker_id", id)

	for job := range wp.jobs {
		if wp.ctx.Err() != nil {
			wp.results <- Result{Job: job, Err: wp.ctx.Err()}
			continue
		}
		wp.results <- wp.process(job, log)
	}
}

func (wp *WorkerPool) process(job Job, log logger.Logger) Result {
	start := time.Now()
	shortcode := ShortcodeFor(job.URL)
	result := Result{Job: job, Shortcode: shortcode}
	log = log.WithField("shortcode", shortcode)

	if err := wp.waitWhilePaused(); err != nil {
		result.Err = err
		return result
	}

	if !wp.opts.Overwrite && wp.store.IsDownloaded(shortcode) {
		result.Skipped = true
		result.Path = wp.store.Path(shortcode)
		result.Duration = time.Since(start)
		wp.opts.Reporter.SkipDownload(shortcode)
		log.Debug("already downloaded")
		return result
	}

	ctx := wp.ctx
	if wp.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.opts.JobTimeout)
		defer cancel()
	}

	fail := func(err error) Result {
		result.Err = err
		result.Duration = time.Since(start)
		wp.opts.Reporter.FailDownload(shortcode, err)
		logger.LogDownload(log, shortcode, "reel", false, err)
		return result
	}

	media, err := wp.resolver.Resolve(ctx, job.URL)
	if err != nil {
		return fail(fmt.Errorf("resolve failed: %w", err))
	}
	result.Media = media

	if err := wp.opts.Limiter.WaitContext(ctx); err != nil {
		return fail(err)
	}

	body, size, err := wp.fetcher.Download(ctx, media.MediaURL)
	if err != nil {
		return fail(fmt.Errorf("download failed: %w", err))
	}
	defer body.Close()

	ext := storage.ExtensionFor(media.MediaURL)
	wp.opts.Reporter.StartDownload(shortcode, job.URL, shortcode+ext, size)

	pr := newProgressReader(body, func(n int64, speed float64) {
		wp.opts.Reporter.UpdateDownloadProgress(shortcode, n, speed)
	})
	savedPath, written, err := wp.store.Save(pr, shortcode, ext)
	if err != nil {
		return fail(fmt.Errorf("save failed: %w", err))
	}
	result.Path = savedPath
	result.Size = written

	if wp.opts.WriteMetadata {
		if err := metadata.FromResult(job.URL, shortcode, media).Save(savedPath, written); err != nil {
			log.WithError(err).Warn("failed to write metadata sidecar")
		}
	}

	result.Duration = time.Since(start)
	wp.opts.Reporter.CompleteDownload(shortcode, written, media.Caption)
	logger.LogDownload(log, shortcode, ext, true, nil)
	return result
}

func (wp *WorkerPool) waitWhilePaused() error {
	for wp.opts.Reporter.IsPaused() {
		select {
		case <-wp.ctx.Done():
			return wp.ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return nil
}

// ShortcodeFor names the output file for a source URL. Post URLs use their
// shortcode; share links and anything else get a stable name derived from
// the URL.
func ShortcodeFor(sourceURL string) string {
	if !instagram.IsShareURL(sourceURL) {
		if code, err := instagram.ExtractShortcode(sourceURL); err == nil {
			return code
		}
	}

	base := "reel"
	if u, err := url.Parse(sourceURL); err == nil {
		if b := httputil.SanitizeFilename(path.Base(u.Path)); b != "untitled" {
			base = b
		}
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURL)).String()
	return base + "-" + id[:8]
}
