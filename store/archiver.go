package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"portfolio/api/metrics"
	"portfolio/api/models"
)

const (
	defaultArchiveBatchSize     = 100
	defaultArchiveFlushInterval = 10 * time.Second
	defaultArchiveBufferSize    = 1000
	archiveInsertTimeout        = 15 * time.Second
)

// PageViewSink persists batches of page views.
type PageViewSink interface {
	InsertPageViews(ctx context.Context, events []models.PageViewEvent) error
}

type ArchiverConfig struct {
	// BatchSize is the number of events written per insert.
	BatchSize int

	// FlushInterval forces a write of a partial batch.
	FlushInterval time.Duration

	// BufferSize is the queue length; Enqueue drops events when it is full.
	BufferSize int

	Metrics *metrics.Metrics
}

func (cfg *ArchiverConfig) validate() {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaultArchiveBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultArchiveFlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = defaultArchiveBufferSize
	}
}

// Archiver copies recorded page views to a sink in the background.
// Call Stop before shutting down so queued events are written.
type Archiver struct {
	sink          PageViewSink
	events        chan models.PageViewEvent
	batchSize     int
	flushInterval time.Duration
	metrics       *metrics.Metrics

	stopped  atomic.Bool
	stopOnce sync.Once
	quit     chan struct{}
	wg       sync.WaitGroup
}

func NewArchiver(sink PageViewSink, cfg ArchiverConfig) *Archiver {
	cfg.validate()
	return &Archiver{
		sink:          sink,
		events:        make(chan models.PageViewEvent, cfg.BufferSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		metrics:       cfg.Metrics,
		quit:          make(chan struct{}),
	}
}

func (a *Archiver) Start() {
	a.wg.Add(1)
	go a.run()
}

// Enqueue queues event without blocking. It returns false if the archiver is
// stopped or the queue is full.
func (a *Archiver) Enqueue(event models.PageViewEvent) bool {
	if a.stopped.Load() {
		return false
	}

	select {
	case a.events <- event:
		return true
	default:
		a.metrics.ArchiveDropped()
		slog.Warn("archive queue full, dropping page view", "event_id", event.ID)
		return false
	}
}

// Stop drains the queue, writes what is left and waits for the worker.
func (a *Archiver) Stop() {
	a.stopOnce.Do(func() {
		a.stopped.Store(true)
		close(a.quit)
		a.wg.Wait()
	})
}

func (a *Archiver) run() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	batch := make([]models.PageViewEvent, 0, a.batchSize)
	for {
		select {
		case event := <-a.events:
			batch = append(batch, event)
			if len(batch) >= a.batchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			a.flush(batch)
			batch = batch[:0]
		case <-a.quit:
			for {
				select {
				case event := <-a.events:
					batch = append(batch, event)
					if len(batch) >= a.batchSize {
						a.flush(batch)
						batch = batch[:0]
					}
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

func (a *Archiver) flush(batch []models.PageViewEvent) {
	if len(batch) == 0 {
		return
	}

	events := make([]models.PageViewEvent, len(batch))
	copy(events, batch)

	ctx, cancel := context.WithTimeout(context.Background(), archiveInsertTimeout)
	defer cancel()

	if err := a.sink.InsertPageViews(ctx, events); err != nil {
		a.metrics.ArchiveFailed()
		slog.Error("error archiving page views", "count", len(events), "error", err)
		return
	}
	a.metrics.ArchiveFlushed(len(events))
}
