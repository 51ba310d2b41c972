package events

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type MemoryBusConfig struct {
	Workers   int
	QueueSize int
	Logger    *logrus.Logger
}

// MemoryBus delivers events to a handler on a pool of in-process workers.
// It is used when no broker is configured.
type MemoryBus struct {
	cfg     MemoryBusConfig
	handler Handler
	queue   chan MovieScheduled

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewMemoryBus(cfg MemoryBusConfig, handler Handler) *MemoryBus {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &MemoryBus{
		cfg:     cfg,
		handler: handler,
		queue:   make(chan MovieScheduled, cfg.QueueSize),
	}
}

// Start launches the workers. Handlers receive a context derived from ctx.
func (b *MemoryBus) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true
	b.ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))

	for i := 0; i < b.cfg.Workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	b.cfg.Logger.Infof("event bus started with %d workers", b.cfg.Workers)
}

func (b *MemoryBus) Publish(ctx context.Context, event MovieScheduled) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	select {
	case b.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits until queued ones are handled.
func (b *MemoryBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	started := b.started
	b.mu.Unlock()

	if started {
		b.wg.Wait()
		b.cancel()
	}
	b.cfg.Logger.Info("event bus stopped")
}

func (b *MemoryBus) worker() {
	defer b.wg.Done()
	for ev := range b.queue {
		if err := b.handler(b.ctx, ev); err != nil {
			b.cfg.Logger.WithError(err).WithField("movie_id", ev.MovieID).Warn("handle movie scheduled event")
		}
	}
}

var _ Publisher = (*MemoryBus)(nil)
