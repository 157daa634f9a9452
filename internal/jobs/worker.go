package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lessonforge/lessonforge/internal/config"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

// WorkerPool pulls jobs from the shared durable queue. Each worker
// processes one job at a time; the store's atomic claim guarantees no two
// workers share a job, so pools in separate processes are safe too.
type WorkerPool struct {
	store     repository.JobStore
	handler   Handler
	logger    *slog.Logger
	cfg       config.WorkerConfig
	backoffFn func(int) time.Duration
	stop      chan struct{}
	wg        sync.WaitGroup
}

func NewWorkerPool(store repository.JobStore, handler Handler, logger *slog.Logger, cfg config.WorkerConfig) *WorkerPool {
	if cfg.Count <= 0 {
		cfg.Count = 2
	}
	if cfg.PollIdle <= 0 {
		cfg.PollIdle = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		store:     store,
		handler:   handler,
		logger:    logger,
		cfg:       cfg,
		backoffFn: BackoffDuration,
		stop:      make(chan struct{}),
	}
}

// SetBackoffFunc replaces the retry backoff schedule. Tests use this to
// avoid real sleeps; passing nil is a no-op.
func (p *WorkerPool) SetBackoffFunc(f func(int) time.Duration) {
	if f != nil {
		p.backoffFn = f
	}
}

// Start launches the worker goroutines and the retention janitor.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	if p.cfg.PurgeCompletedAfter > 0 {
		p.wg.Add(1)
		go p.janitor(ctx)
	}
}

// Stop signals workers to stop and waits for them.
func (p *WorkerPool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", "id", id)
			return
		default:
			job, err := p.store.ClaimNext(ctx)
			if err != nil {
				p.logger.Error("claim job", "err", err)
				p.sleep(time.Second)
				continue
			}
			if job == nil {
				// nothing to do
				p.sleep(p.cfg.PollIdle)
				continue
			}

			p.logger.Info("job claimed", "job", job.PublicID, "slug", job.Slug, "attempt", job.Attempts)

			err = p.handler(ctx, job)
			if err == nil {
				continue
			}

			if job.Attempts >= job.MaxAttempts {
				p.logger.Error("job failed permanently", "job", job.PublicID, "attempts", job.Attempts, "err", err)
				if failErr := p.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
					p.logger.Error("mark job failed", "job", job.PublicID, "err", failErr)
				}
				continue
			}

			backoff := p.backoffFn(job.Attempts)
			p.logger.Warn("job attempt failed, scheduling retry", "job", job.PublicID, "attempt", job.Attempts, "backoff", backoff, "err", err)
			if retryErr := p.store.RetryJob(ctx, job.ID, err.Error(), time.Now().Add(backoff)); retryErr != nil {
				p.logger.Error("schedule retry", "job", job.PublicID, "err", retryErr)
			}
		}
	}
}

// janitor periodically removes completed jobs past the retention window.
// Failed jobs are never purged automatically.
func (p *WorkerPool) janitor(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-p.cfg.PurgeCompletedAfter)
			n, err := p.store.PurgeCompletedBefore(ctx, cutoff)
			if err != nil {
				p.logger.Error("purge completed jobs", "err", err)
				continue
			}
			if n > 0 {
				p.logger.Info("purged completed jobs", "count", n)
			}
		}
	}
}

// sleep waits without ignoring a stop signal.
func (p *WorkerPool) sleep(d time.Duration) {
	select {
	case <-p.stop:
	case <-time.After(d):
	}
}
