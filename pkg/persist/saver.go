package persist

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sketchwire/sketchwire/pkg/canvas"
)

// DefaultQuiescence is the debounce window: a burst of appends inside
// this window produces exactly one durable write.
const DefaultQuiescence = 2 * time.Second

// DefaultWriteTimeout bounds a single backend write.
const DefaultWriteTimeout = 10 * time.Second

var (
	persistWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchwire",
		Subsystem: "persist",
		Name:      "writes_total",
		Help:      "Total durable snapshot writes attempted",
	})
	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchwire",
		Subsystem: "persist",
		Name:      "write_failures_total",
		Help:      "Total durable snapshot writes that failed",
	})
	persistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sketchwire",
		Subsystem: "persist",
		Name:      "write_duration_seconds",
		Help:      "Durable snapshot write duration in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// Saver debounces snapshot writes. Schedule is cheap and non-blocking:
// it arms (or re-arms) a single process-wide timer, and the write fires
// only after the canvas has been quiet for the full window. The saver
// owns the store and closes it on Close.
type Saver struct {
	store    SnapshotStore
	snapshot func() canvas.Log
	window   time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	closed  bool
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithQuiescence overrides the debounce window.
func WithQuiescence(d time.Duration) SaverOption {
	return func(s *Saver) {
		s.window = d
	}
}

// WithWriteTimeout overrides the per-write timeout.
func WithWriteTimeout(d time.Duration) SaverOption {
	return func(s *Saver) {
		s.timeout = d
	}
}

// NewSaver creates a debounced saver. A nil store disables persistence;
// Schedule and Flush become no-ops.
func NewSaver(store SnapshotStore, snapshot func() canvas.Log, logger *slog.Logger, opts ...SaverOption) *Saver {
	s := &Saver{
		store:    store,
		snapshot: snapshot,
		window:   DefaultQuiescence,
		timeout:  DefaultWriteTimeout,
		logger:   logger.With("component", "persist"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule requests a durable write after the quiescence window. A call
// inside the window re-arms the pending write rather than stacking a
// second one.
func (s *Saver) Schedule() {
	if s.store == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending = true
	if s.timer == nil {
		s.timer = time.AfterFunc(s.window, s.fire)
	} else {
		s.timer.Reset(s.window)
	}
}

// fire runs on the timer goroutine when the window elapses.
func (s *Saver) fire() {
	s.mu.Lock()
	if s.closed || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.mu.Unlock()

	s.write()
}

// Flush performs a synchronous write of the current snapshot if one is
// pending. Used on graceful shutdown so the last burst isn't lost to
// the debounce window.
func (s *Saver) Flush() {
	if s.store == nil {
		return
	}

	s.mu.Lock()
	pending := s.pending
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	if pending {
		s.write()
	}
}

// Close flushes any pending write and closes the store.
func (s *Saver) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := s.pending
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	if pending {
		s.write()
	}
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// write marshals the snapshot and hands it to the backend. Failures
// are logged and swallowed: durability is best-effort and never a
// precondition for visibility.
func (s *Saver) write() {
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		s.logger.Error("snapshot marshal failed", "error", err)
		persistFailures.Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	persistWrites.Inc()
	if err := s.store.Save(ctx, data); err != nil {
		s.logger.Error("snapshot write failed", "error", err, "bytes", len(data))
		persistFailures.Inc()
		return
	}
	persistDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug("snapshot written", "bytes", len(data))
}
