// internal/workers/infrastructure/status-reporter/handler.go
package statusreporter

import (
	"context"
	"sync"
	"time"

	"vigil-workers/internal/common/metrics"
	"vigil-workers/internal/models"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Sink receives status updates for delivery. Updates for one request arrive
// in order, from a single goroutine.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, update models.StatusUpdate) error
}

// Reporter fans status messages out to its sinks without blocking callers.
type Reporter struct {
	config *Config
	sinks  []Sink
	logger Logger

	mu      sync.Mutex
	streams map[string]*stream
	closed  map[string]struct{}
	order   []string
	wg      sync.WaitGroup
}

// closedMemory bounds how many closed request ids are remembered for
// rejecting late posts.
const closedMemory = 4096

type stream struct {
	ch  chan models.StatusUpdate
	seq int
}

func NewReporter(config *Config, log Logger, sinks ...Sink) *Reporter {
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = 5 * time.Second
	}
	return &Reporter{
		config:  config,
		sinks:   sinks,
		logger:  log,
		streams: make(map[string]*stream),
		closed:  make(map[string]struct{}),
	}
}

// Post enqueues a message for requestID. It never blocks: when the stream's
// buffer is full the message is dropped. Posts after Close for the same id
// are dropped too.
func (r *Reporter) Post(requestID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, gone := r.closed[requestID]; gone {
		metrics.StatusDropped.Inc()
		r.logger.Warn("status update after close", map[string]interface{}{
			"requestId": requestID,
			"message":   message,
		})
		return
	}

	s, ok := r.streams[requestID]
	if !ok {
		s = &stream{ch: make(chan models.StatusUpdate, r.config.BufferSize)}
		r.streams[requestID] = s
		r.wg.Add(1)
		go r.deliver(s)
	}

	update := models.StatusUpdate{
		RequestID: requestID,
		Seq:       s.seq + 1,
		Message:   message,
		At:        time.Now().UTC(),
	}

	select {
	case s.ch <- update:
		s.seq++
	default:
		metrics.StatusDropped.Inc()
		r.logger.Warn("status update dropped", map[string]interface{}{
			"requestId": requestID,
			"message":   message,
		})
	}
}

// Close ends the stream for requestID and returns at once. Queued messages
// are still delivered in the background; Shutdown waits for them.
func (r *Reporter) Close(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.streams[requestID]; ok {
		delete(r.streams, requestID)
		close(s.ch)
	}
	r.markClosed(requestID)
}

func (r *Reporter) markClosed(requestID string) {
	if _, ok := r.closed[requestID]; ok {
		return
	}
	r.closed[requestID] = struct{}{}
	r.order = append(r.order, requestID)
	if len(r.order) > closedMemory {
		delete(r.closed, r.order[0])
		r.order = r.order[1:]
	}
}

// Shutdown closes every open stream and waits for delivery or ctx expiry.
func (r *Reporter) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for id, s := range r.streams {
		delete(r.streams, id)
		close(s.ch)
		r.markClosed(id)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reporter) deliver(s *stream) {
	defer r.wg.Done()

	for update := range s.ch {
		for _, sink := range r.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), r.config.DeliveryTimeout)
			err := sink.Deliver(ctx, update)
			cancel()
			if err != nil {
				r.logger.Warn("status sink failed", map[string]interface{}{
					"sink":      sink.Name(),
					"requestId": update.RequestID,
					"seq":       update.Seq,
					"error":     err.Error(),
				})
			}
		}
	}
}
