package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed settles requests that were still queued when the queue shut down
	ErrClosed = errors.New("request queue is closed")

	// ErrStillQueued is returned by Future.Wait when the caller stops waiting. The
	// request itself keeps its place and is still processed.
	ErrStillQueued = errors.New("request still queued or in flight")
)

// Payload is what an inbound caller asks the agent
type Payload struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

type AIText struct {
	Text string `json:"text"`
}

// Response is the normalized, caller-visible answer
type Response struct {
	Success    bool   `json:"success"`
	AIResponse AIText `json:"aiResponse"`
	Fallback   bool   `json:"fallback,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Processor turns one payload into reply text. It is called by at most one
// goroutine at a time per queue.
type Processor interface {
	Process(ctx context.Context, payload Payload) (string, error)
}

// ProcessorFunc adapts a function to Processor
type ProcessorFunc func(ctx context.Context, payload Payload) (string, error)

func (f ProcessorFunc) Process(ctx context.Context, payload Payload) (string, error) {
	return f(ctx, payload)
}

// Recorder persists a produced reply before its request is settled
type Recorder interface {
	Record(ctx context.Context, text string) error
}

// Stats is a snapshot of a queue
type Stats struct {
	Name       string `json:"name"`
	Pending    int    `json:"pending"`
	Processing bool   `json:"processing"`
	Processed  int64  `json:"processed"`
	Failed     int64  `json:"failed"`
	Fallbacks  int64  `json:"fallbacks"`
	Closed     bool   `json:"closed"`
}

type request struct {
	id         string
	seq        uint64
	payload    Payload
	enqueuedAt time.Time
	future     *Future
}
