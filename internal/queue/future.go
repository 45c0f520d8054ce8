package queue

import (
	"context"
	"fmt"
	"sync"
)

// Future is the pending result of one queued request
type Future struct {
	id   string
	seq  uint64
	done chan struct{}
	once sync.Once

	resp *Response
	err  error

	// position in the queue's settle order, starting at 1
	settledAs uint64
}

func newFuture(id string, seq uint64) *Future {
	return &Future{id: id, seq: seq, done: make(chan struct{})}
}

// ID is the request identifier used in logs
func (f *Future) ID() string {
	return f.id
}

// Seq is the position at which the request was accepted, starting at 1.
// It is 0 for requests rejected before acceptance.
func (f *Future) Seq() uint64 {
	return f.seq
}

// SettleOrder is the position at which the request was settled, starting at 1.
// It is 0 while the request is pending.
func (f *Future) SettleOrder() uint64 {
	select {
	case <-f.done:
		return f.settledAs
	default:
		return 0
	}
}

// Done is closed once the request has been settled
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the request is settled or ctx ends. When ctx ends first the
// request is not cancelled; Wait returns an error wrapping ErrStillQueued and ctx.Err().
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrStillQueued, ctx.Err())
	}
}

// Result returns the settled values; ok is false while the request is pending
func (f *Future) Result() (resp *Response, ok bool, err error) {
	select {
	case <-f.done:
		return f.resp, true, f.err
	default:
		return nil, false, nil
	}
}

func (f *Future) settle(resp *Response, err error, order uint64) {
	f.once.Do(func() {
		f.resp = resp
		f.err = err
		f.settledAs = order
		close(f.done)
	})
}
