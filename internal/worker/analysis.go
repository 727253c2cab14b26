// Package worker runs background jobs that resolve entity names found in
// analysis text and attach them to books.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/listenupapp/catalog-resolver/internal/analysis"
	"github.com/listenupapp/catalog-resolver/internal/association"
	"github.com/listenupapp/catalog-resolver/internal/domain"
	domainerrors "github.com/listenupapp/catalog-resolver/internal/errors"
	"github.com/listenupapp/catalog-resolver/internal/id"
	"github.com/listenupapp/catalog-resolver/internal/service"
)

var (
	// ErrQueueFull is returned by Enqueue when the job queue has no room.
	ErrQueueFull = errors.New("analysis queue is full")
	// ErrStopped is returned by Enqueue after Stop.
	ErrStopped = errors.New("analysis worker stopped")
)

// DefaultJobTimeout bounds a single job.
const DefaultJobTimeout = 30 * time.Second

// BookAssociator is the part of service.BookService the worker needs.
type BookAssociator interface {
	AssociateEntities(ctx context.Context, bookID string, slots []association.Slot, opts association.Options) (*service.AssociationResult, error)
}

// Job is one piece of analysis text waiting to be applied to a book.
type Job struct {
	EnqueuedAt time.Time
	ID         string
	BookID     string
	Text       string
}

// Config controls the pool size and queue depth.
type Config struct {
	Concurrency int
	QueueSize   int
	JobTimeout  time.Duration
}

// Stats counts finished jobs since start.
type Stats struct {
	Queued    int   `json:"queued"`
	Completed int64 `json:"completed"`
	Blocked   int64 `json:"blocked"`
	Failed    int64 `json:"failed"`
	Skipped   int64 `json:"skipped"`
}

// AnalysisWorker extracts publisher and binder names from analysis text and
// associates them with the book through the normal validate-then-mutate path.
// Nothing is ever created: unresolved names only produce log lines.
type AnalysisWorker struct {
	books  BookAssociator
	cfg    Config
	logger *slog.Logger
	jobs   chan Job

	// Worker management
	ctx     context.Context //nolint:containedctx // Context needed for worker lifecycle management
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
	stopped bool

	completed atomic.Int64
	blocked   atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

// NewAnalysisWorker creates a worker. Non-positive sizes fall back to one
// goroutine and a queue of 64.
func NewAnalysisWorker(books BookAssociator, cfg Config, logger *slog.Logger) *AnalysisWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &AnalysisWorker{
		books:  books,
		cfg:    cfg,
		logger: logger,
		jobs:   make(chan Job, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines. Calling it twice is a no-op.
func (w *AnalysisWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true

	w.logger.Info("starting analysis workers",
		slog.Int("workers", w.cfg.Concurrency),
		slog.Int("queue_size", w.cfg.QueueSize),
	)
	for i := range w.cfg.Concurrency {
		w.wg.Add(1)
		go w.run(i)
	}
}

// Stop cancels in-flight jobs and waits for the goroutines to exit. Jobs
// still queued are dropped.
func (w *AnalysisWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	w.logger.Info("stopping analysis workers")
	w.cancel()
	w.wg.Wait()

	if dropped := len(w.jobs); dropped > 0 {
		w.logger.Warn("analysis jobs dropped on shutdown", slog.Int("count", dropped))
	}
	w.logger.Info("analysis workers stopped")
}

// Enqueue queues text for bookID and returns the job id. It never blocks.
func (w *AnalysisWorker) Enqueue(bookID, text string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return "", ErrStopped
	}

	jobID, err := id.Generate(id.PrefixJob)
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}

	job := Job{ID: jobID, BookID: bookID, Text: text, EnqueuedAt: time.Now()}
	select {
	case w.jobs <- job:
		w.logger.Debug("analysis job queued", slog.String("job_id", jobID), slog.String("book_id", bookID))
		return jobID, nil
	default:
		return "", ErrQueueFull
	}
}

// Stats returns a snapshot of the counters.
func (w *AnalysisWorker) Stats() Stats {
	return Stats{
		Queued:    len(w.jobs),
		Completed: w.completed.Load(),
		Blocked:   w.blocked.Load(),
		Failed:    w.failed.Load(),
		Skipped:   w.skipped.Load(),
	}
}

func (w *AnalysisWorker) run(workerID int) {
	defer w.wg.Done()

	w.logger.Debug("analysis worker started", slog.Int("worker_id", workerID))
	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("analysis worker stopping", slog.Int("worker_id", workerID))
			return
		case job := <-w.jobs:
			w.process(workerID, job)
		}
	}
}

func (w *AnalysisWorker) process(workerID int, job Job) {
	log := w.logger.With(
		slog.Int("worker_id", workerID),
		slog.String("job_id", job.ID),
		slog.String("book_id", job.BookID),
	)

	found := analysis.Extract(job.Text)
	var slots []association.Slot
	for _, t := range []domain.EntityType{domain.EntityPublisher, domain.EntityBinder} {
		if name := found.Get(t); name != "" {
			slots = append(slots, association.Slot{Type: t, Name: name})
		}
	}
	if len(slots) == 0 {
		w.skipped.Add(1)
		log.Info("no publisher or binder found in analysis")
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.cfg.JobTimeout)
	defer cancel()

	out, err := w.books.AssociateEntities(ctx, job.BookID, slots, association.Options{})
	if err != nil {
		if out != nil && out.Result != nil && out.Result.HasErrors() {
			w.blocked.Add(1)
			for _, ve := range out.Result.Errors() {
				log.Warn("analysis entity not associated",
					slog.String("entity_type", ve.EntityType.String()),
					slog.String("input", ve.Input),
					slog.String("reason", string(ve.Kind)),
					slog.Int("suggestions", len(ve.Suggestions)),
				)
			}
			return
		}

		w.failed.Add(1)
		level := slog.LevelError
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "analysis association failed", slog.Any("error", err))
		return
	}

	w.completed.Add(1)
	for _, warning := range out.Result.Warnings {
		log.Warn("analysis association warning", slog.String("warning", warning))
	}
	for _, slot := range out.Result.Slots {
		if slot.Changed || slot.Cleared {
			log.Info("analysis entity applied",
				slog.String("entity_type", slot.Type.String()),
				slog.String("input", slot.Input),
				slog.Bool("cleared", slot.Cleared),
				slog.Duration("latency", time.Since(job.EnqueuedAt)),
			)
		}
	}
}
