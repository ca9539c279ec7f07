package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls buffering and batching for the Hub.
//   - BufferSize: size of the internal channel (default 1024).
//   - MaxBatchEvents: flush once this many events queue (default 256).
//   - MaxBatchWait: flush at least this often while events queue (default 500ms).
//   - SinkTimeout: per-sink timeout while flushing (default 5s).
//   - BaseContext: parent context passed to sink calls (defaults to context.Background()).
//   - Logger: optional structured logger used for warnings.
type Config struct {
	BufferSize     int
	MaxBatchEvents int
	MaxBatchWait   time.Duration
	SinkTimeout    time.Duration
	BaseContext    context.Context
	Logger         *zap.Logger
}

const (
	defaultBufferSize     = 1024
	defaultMaxBatchEvents = 256
	defaultMaxBatchWait   = 500 * time.Millisecond
	defaultSinkTimeout    = 5 * time.Second
	dropLogInterval       = 5 * time.Second
)

// Hub aggregates events and fans them out to registered sinks. It is safe
// for concurrent use and never blocks callers: when the buffer is full the
// event is dropped and counted.
type Hub struct {
	cfg     Config
	sinks   []Sink
	events  chan Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	logger  *zap.Logger
	limiter rateLimiter
	dropped atomic.Int64
	closed  atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// NewHub initializes a Hub and starts the background batching goroutine over
// the supplied sinks. The returned Hub accepts events immediately.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatchEvents <= 0 {
		cfg.MaxBatchEvents = defaultMaxBatchEvents
	}
	if cfg.MaxBatchWait <= 0 {
		cfg.MaxBatchWait = defaultMaxBatchWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  sinks,
		events: make(chan Event, cfg.BufferSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: cfg.Logger,
	}
	go h.run()
	return h
}

// Emit enqueues an event without blocking. Invalid events and events that
// arrive after Close are dropped. Safe on a nil Hub so wiring events in is
// always optional.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid event", zap.Error(err))
		return
	}
	select {
	case h.events <- evt:
	default:
		n := h.dropped.Add(1)
		if h.limiter.Allow(dropLogInterval) {
			h.logger.Warn("event buffer full, dropping",
				zap.Int64("dropped_total", n),
				zap.String("stage", string(evt.Stage)))
		}
	}
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (h *Hub) Dropped() int64 {
	if h == nil {
		return 0
	}
	return h.dropped.Load()
}

// Close drains buffered events, flushes them to every sink, then closes the
// sinks. Subsequent Emit calls are no-ops; Close is idempotent.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		close(h.stopCh)
		select {
		case <-h.doneCh:
		case <-ctx.Done():
			h.closeErr = fmt.Errorf("event hub close: %w", ctx.Err())
		}
	})
	return h.closeErr
}

func (h *Hub) run() {
	defer close(h.doneCh)
	batch := make([]Event, 0, h.cfg.MaxBatchEvents)
	ticker := time.NewTicker(h.cfg.MaxBatchWait)
	defer ticker.Stop()
	for {
		select {
		case evt := <-h.events:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.MaxBatchEvents {
				batch = h.flush(batch)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				batch = h.flush(batch)
			}
		case <-h.stopCh:
			batch = h.drain(batch)
			if len(batch) > 0 {
				h.flush(batch)
			}
			h.closeSinks()
			return
		}
	}
}

// drain empties the channel buffer after stop, flushing intermediate batches
// as they fill.
func (h *Hub) drain(batch []Event) []Event {
	for {
		select {
		case evt := <-h.events:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.MaxBatchEvents {
				batch = h.flush(batch)
			}
		default:
			return batch
		}
	}
}

// flush delivers the batch to every sink under the per-sink timeout and
// returns an empty batch reusing the backing array.
func (h *Hub) flush(batch []Event) []Event {
	for _, sink := range h.sinks {
		ctx, cancel := context.WithTimeout(h.cfg.BaseContext, h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, batch); err != nil {
			h.logger.Warn("event sink consume failed",
				zap.Int("batch", len(batch)), zap.Error(err))
		}
		cancel()
	}
	return batch[:0]
}

func (h *Hub) closeSinks() {
	for _, sink := range h.sinks {
		ctx, cancel := context.WithTimeout(h.cfg.BaseContext, h.cfg.SinkTimeout)
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("event sink close failed", zap.Error(err))
		}
		cancel()
	}
}

// rateLimiter admits at most one call per interval.
type rateLimiter struct {
	last atomic.Int64
}

func (r *rateLimiter) Allow(interval time.Duration) bool {
	now := time.Now().UnixNano()
	last := r.last.Load()
	if now-last < int64(interval) {
		return false
	}
	return r.last.CompareAndSwap(last, now)
}
