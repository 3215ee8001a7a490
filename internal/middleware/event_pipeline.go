package middleware

import (
	"context"
	"sync"
	"time"

	"ChartSense/internal/domain/models"
	domrepo "ChartSense/internal/domain/repository"
	applogger "ChartSense/pkg/logger"
)

// EventPipeline sits between the frame pipeline and the event publisher.
// Sessions enqueue without blocking; a single goroutine flushes batches by
// size or interval. When the buffer is full new events are dropped.
type EventPipeline struct {
	pub       domrepo.FrameEventPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	batchSize int
	interval  time.Duration
	bufCh     chan *models.FrameEvent
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	started   bool
	stopped   bool
}

type EventPipelineOption func(*EventPipeline)

// WithEventBuffer sets the queue capacity.
func WithEventBuffer(n int) EventPipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufCh = make(chan *models.FrameEvent, n)
		}
	}
}

// WithBatch sets the flush size and interval.
func WithBatch(size int, interval time.Duration) EventPipelineOption {
	return func(p *EventPipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if interval > 0 {
			p.interval = interval
		}
	}
}

func WithEventLogger(l *applogger.Logger) EventPipelineOption {
	return func(p *EventPipeline) {
		if l != nil {
			p.l = l
		}
	}
}

func NewEventPipeline(pub domrepo.FrameEventPublisher, metrics domrepo.Metrics, opts ...EventPipelineOption) *EventPipeline {
	p := &EventPipeline{
		pub:       pub,
		metrics:   metrics,
		l:         applogger.Nop(),
		batchSize: 100,
		interval:  time.Second,
		bufCh:     make(chan *models.FrameEvent, 1024),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue never blocks. It reports false when the event was dropped.
func (p *EventPipeline) Enqueue(ev *models.FrameEvent) bool {
	if ev == nil {
		return false
	}
	select {
	case p.bufCh <- ev:
		return true
	default:
		p.metrics.RecordError("event_buffer_full")
		return false
	}
}

// Len reports queued events.
func (p *EventPipeline) Len() int { return len(p.bufCh) }

// Start launches the flushing goroutine.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

func (p *EventPipeline) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	batch := make([]*models.FrameEvent, 0, p.batchSize)
	flush := func(fctx context.Context) {
		if len(batch) == 0 {
			return
		}
		p.flush(fctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-p.stopCh:
			// drain what is already queued
			for {
				select {
				case ev := <-p.bufCh:
					batch = append(batch, ev)
					if len(batch) >= p.batchSize {
						flush(context.WithoutCancel(ctx))
					}
				default:
					flush(context.WithoutCancel(ctx))
					return
				}
			}
		case <-ctx.Done():
			flush(context.WithoutCancel(ctx))
			return
		case ev := <-p.bufCh:
			batch = append(batch, ev)
			if len(batch) >= p.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

func (p *EventPipeline) flush(ctx context.Context, batch []*models.FrameEvent) {
	start := time.Now()
	fctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.pub.PublishBatch(fctx, batch); err != nil {
		p.metrics.RecordError("event_flush")
		p.l.Warn("frame events flush failed",
			applogger.Int("events", len(batch)),
			applogger.Error(err),
		)
		return
	}
	p.metrics.RecordLatency("event_flush", time.Since(start).Seconds())
}

// Stop flushes queued events and waits for the flusher to exit or ctx to end.
func (p *EventPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stopCh)
	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
