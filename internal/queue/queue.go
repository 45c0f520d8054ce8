package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/autonome/autonome/internal/logger"
	"github.com/autonome/autonome/internal/metrics"
	"github.com/google/uuid"
)

const (
	DefaultDrainDelay = time.Second
	shutdownTimeout   = 30 * time.Second
)

// Config holds the per-queue settings
type Config struct {
	Name           string
	Policy         Policy
	DrainDelay     time.Duration
	Recorder       Recorder
	SuccessMessage string
	Metrics        *metrics.Collector
}

// RequestQueue serializes requests to one processor. Requests are processed one
// at a time in acceptance order and each is settled before the next one starts.
type RequestQueue struct {
	name           string
	processor      Processor
	recorder       Recorder
	policy         Policy
	drainDelay     time.Duration
	successMessage string
	metrics        *metrics.Collector
	sleep          func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	items      []*request
	processing bool
	closed     bool
	accepted   uint64
	settled    uint64
	processed  int64
	failed     int64
	fallbacks  int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a queue in front of processor
func New(processor Processor, cfg Config) *RequestQueue {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.DrainDelay <= 0 {
		cfg.DrainDelay = DefaultDrainDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RequestQueue{
		name:           cfg.Name,
		processor:      processor,
		recorder:       cfg.Recorder,
		policy:         cfg.Policy,
		drainDelay:     cfg.DrainDelay,
		successMessage: cfg.SuccessMessage,
		metrics:        cfg.Metrics,
		sleep:          sleepContext,
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (q *RequestQueue) Name() string {
	return q.name
}

func (q *RequestQueue) Policy() Policy {
	return q.policy
}

// Enqueue appends a request and starts draining if the queue is idle. It never
// blocks on processing.
func (q *RequestQueue) Enqueue(payload Payload) *Future {
	id := uuid.NewString()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		f := newFuture(id, 0)
		f.settle(nil, ErrClosed, 0)
		q.metrics.RecordRejected(q.name)
		return f
	}

	q.accepted++
	req := &request{
		id:         id,
		seq:        q.accepted,
		payload:    payload,
		enqueuedAt: time.Now(),
		future:     newFuture(id, q.accepted),
	}
	q.items = append(q.items, req)
	depth := len(q.items)
	start := !q.processing
	if start {
		q.processing = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	q.metrics.SetQueueDepth(q.name, depth)
	logger.Debug("Request enqueued", map[string]interface{}{
		"queue":      q.name,
		"request_id": id,
		"depth":      depth,
	})

	if start {
		go q.drain()
	}
	return req.future
}

// drain runs while the queue is non-empty; processing stays set for its whole
// lifetime, including the pause between items
func (q *RequestQueue) drain() {
	defer q.wg.Done()

	for {
		req, ok := q.next()
		if !ok {
			return
		}

		q.process(req)

		if !q.hasMore() {
			return
		}
		if err := q.sleep(q.ctx, q.drainDelay); err != nil {
			q.mu.Lock()
			q.processing = false
			q.mu.Unlock()
			return
		}
	}
}

func (q *RequestQueue) next() (*request, bool) {
	q.mu.Lock()
	if len(q.items) == 0 || q.closed {
		q.processing = false
		q.mu.Unlock()
		return nil, false
	}
	req := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	depth := len(q.items)
	q.mu.Unlock()

	q.metrics.SetQueueDepth(q.name, depth)
	return req, true
}

func (q *RequestQueue) hasMore() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || q.closed {
		q.processing = false
		return false
	}
	return true
}

func (q *RequestQueue) process(req *request) {
	started := time.Now()
	q.metrics.ProcessingStarted(q.name, started.Sub(req.enqueuedAt))

	text, err := q.run(req)

	var (
		resp    *Response
		outcome string
	)
	if err == nil {
		outcome = "success"
		resp = &Response{
			Success:    true,
			AIResponse: AIText{Text: text},
			Message:    q.successMessage,
		}
	} else {
		logger.Error("Request processing failed", map[string]interface{}{
			"queue":      q.name,
			"request_id": req.id,
			"error":      err.Error(),
		})
		resp, err = q.policy.Resolve(err)
		if err != nil {
			outcome = "error"
		} else {
			outcome = "fallback"
		}
	}

	q.mu.Lock()
	switch outcome {
	case "success":
		q.processed++
	case "fallback":
		q.fallbacks++
	default:
		q.failed++
	}
	q.settled++
	order := q.settled
	q.mu.Unlock()

	duration := time.Since(started)
	q.metrics.ProcessingFinished(q.name, outcome, duration)
	logger.Info("Request settled", map[string]interface{}{
		"queue":       q.name,
		"request_id":  req.id,
		"outcome":     outcome,
		"duration_ms": duration.Milliseconds(),
	})

	req.future.settle(resp, err, order)
}

func (q *RequestQueue) run(req *request) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()

	text, err = q.processor.Process(q.ctx, req.payload)
	if err != nil {
		return "", err
	}
	if q.recorder != nil {
		if err := q.recorder.Record(q.ctx, text); err != nil {
			return "", fmt.Errorf("failed to record response: %w", err)
		}
	}
	return text, nil
}

// Stats returns a snapshot of the queue
func (q *RequestQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Name:       q.name,
		Pending:    len(q.items),
		Processing: q.processing,
		Processed:  q.processed,
		Failed:     q.failed,
		Fallbacks:  q.fallbacks,
		Closed:     q.closed,
	}
}

// Close rejects pending requests with ErrClosed, cancels the in-flight one and
// waits for the drain goroutine to exit
func (q *RequestQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	pending := q.items
	q.items = nil
	q.mu.Unlock()

	for _, req := range pending {
		req.future.settle(nil, ErrClosed, 0)
		q.metrics.RecordRejected(q.name)
	}
	q.metrics.SetQueueDepth(q.name, 0)
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Request queue stopped", map[string]interface{}{
			"queue":    q.name,
			"rejected": len(pending),
		})
		return nil
	case <-time.After(shutdownTimeout):
		return errors.New("request queue shutdown timed out")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
