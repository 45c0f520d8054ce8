package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeHandler struct {
	mu         sync.Mutex
	handled    []int
	errorChats []int64
	err        error
	panicOn    int

	entered chan struct{}
	release chan struct{}
}

func (h *fakeHandler) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if h.entered != nil {
		h.entered <- struct{}{}
	}
	if h.release != nil {
		<-h.release
	}
	if h.panicOn != 0 && message.MessageID == h.panicOn {
		panic("boom")
	}

	h.mu.Lock()
	h.handled = append(h.handled, message.MessageID)
	h.mu.Unlock()
	return h.err
}

func (h *fakeHandler) sendErrorResponse(chatID int64, err error) {
	h.mu.Lock()
	h.errorChats = append(h.errorChats, chatID)
	h.mu.Unlock()
}

func (h *fakeHandler) handledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func testMessage(id int, chatID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: id,
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text:      "hello",
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWorkerPoolCreation(t *testing.T) {
	config := DefaultWorkerPoolConfig()
	wp := NewWorkerPool(&fakeHandler{}, config)

	if wp == nil {
		t.Fatal("Worker pool should not be nil")
	}
	if wp.messageWorkerCount != config.MessageWorkers {
		t.Errorf("Expected %d message workers, got %d", config.MessageWorkers, wp.messageWorkerCount)
	}
	if wp.maxConcurrentOps != config.MaxConcurrentOps {
		t.Errorf("Expected %d max concurrent ops, got %d", config.MaxConcurrentOps, wp.maxConcurrentOps)
	}
	if cap(wp.messageQueue) != config.MessageQueueSize {
		t.Errorf("Expected queue capacity %d, got %d", config.MessageQueueSize, cap(wp.messageQueue))
	}
}

func TestWorkerPoolStartStop(t *testing.T) {
	wp := NewWorkerPool(&fakeHandler{}, WorkerPoolConfig{
		MessageWorkers:   2,
		MessageQueueSize: 10,
		MaxConcurrentOps: 3,
	})

	if err := wp.Start(); err != nil {
		t.Fatalf("Failed to start worker pool: %v", err)
	}
	if !wp.GetStats()["started"].(bool) {
		t.Error("Worker pool should be marked as started")
	}
	if err := wp.Start(); err == nil {
		t.Error("Starting already started worker pool should return error")
	}

	if err := wp.Stop(); err != nil {
		t.Fatalf("Failed to stop worker pool: %v", err)
	}
	if wp.GetStats()["started"].(bool) {
		t.Error("Worker pool should be marked as stopped")
	}
	if err := wp.Stop(); err == nil {
		t.Error("Stopping a stopped worker pool should return error")
	}
}

func TestWorkerPoolSubmission(t *testing.T) {
	handler := &fakeHandler{}
	wp := NewWorkerPool(handler, WorkerPoolConfig{
		MessageWorkers:   2,
		MessageQueueSize: 10,
		MaxConcurrentOps: 2,
	})

	if err := wp.SubmitMessage(testMessage(1, 100)); err == nil {
		t.Error("Submitting before start should fail")
	}

	if err := wp.Start(); err != nil {
		t.Fatalf("Failed to start worker pool: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if err := wp.SubmitMessage(testMessage(i, 100)); err != nil {
			t.Errorf("Failed to submit message %d: %v", i, err)
		}
	}

	waitFor(t, time.Second, func() bool { return handler.handledCount() == 5 })

	if err := wp.Stop(); err != nil {
		t.Fatalf("Failed to stop worker pool: %v", err)
	}
	if len(handler.errorChats) != 0 {
		t.Errorf("Expected no error responses, got %v", handler.errorChats)
	}
}

func TestWorkerPoolHandlerErrorSendsErrorResponse(t *testing.T) {
	handler := &fakeHandler{err: errors.New("advisor down")}
	wp := NewWorkerPool(handler, WorkerPoolConfig{
		MessageWorkers:   1,
		MessageQueueSize: 5,
		MaxConcurrentOps: 1,
	})
	if err := wp.Start(); err != nil {
		t.Fatalf("Failed to start worker pool: %v", err)
	}

	if err := wp.SubmitMessage(testMessage(1, 42)); err != nil {
		t.Fatalf("Failed to submit message: %v", err)
	}
	if err := wp.Stop(); err != nil {
		t.Fatalf("Failed to stop worker pool: %v", err)
	}

	if len(handler.errorChats) != 1 || handler.errorChats[0] != 42 {
		t.Errorf("Expected one error response to chat 42, got %v", handler.errorChats)
	}
}

func TestWorkerPoolQueueFull(t *testing.T) {
	handler := &fakeHandler{
		entered: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
	wp := NewWorkerPool(handler, WorkerPoolConfig{
		MessageWorkers:   1,
		MessageQueueSize: 1,
		MaxConcurrentOps: 1,
	})
	if err := wp.Start(); err != nil {
		t.Fatalf("Failed to start worker pool: %v", err)
	}

	if err := wp.SubmitMessage(testMessage(1, 1)); err != nil {
		t.Fatalf("Failed to submit first message: %v", err)
	}
	<-handler.entered

	if err := wp.SubmitMessage(testMessage(2, 1)); err != nil {
		t.Fatalf("Failed to submit second message: %v", err)
	}
	if err := wp.SubmitMessage(testMessage(3, 1)); err == nil {
		t.Error("Expected queue full error")
	}

	close(handler.release)
	if err := wp.Stop(); err != nil {
		t.Fatalf("Failed to stop worker pool: %v", err)
	}
	if handler.handledCount() != 2 {
		t.Errorf("Expected 2 handled messages, got %d", handler.handledCount())
	}
}

func TestWorkerPoolRecoversPanic(t *testing.T) {
	handler := &fakeHandler{panicOn: 1}
	wp := NewWorkerPool(handler, WorkerPoolConfig{
		MessageWorkers:   1,
		MessageQueueSize: 5,
		MaxConcurrentOps: 1,
	})
	if err := wp.Start(); err != nil {
		t.Fatalf("Failed to start worker pool: %v", err)
	}

	_ = wp.SubmitMessage(testMessage(1, 1))
	_ = wp.SubmitMessage(testMessage(2, 1))
	if err := wp.Stop(); err != nil {
		t.Fatalf("Failed to stop worker pool: %v", err)
	}

	if handler.handledCount() != 1 || handler.handled[0] != 2 {
		t.Errorf("Expected only message 2 handled after panic, got %v", handler.handled)
	}
}

func TestWorkerPoolStats(t *testing.T) {
	wp := NewWorkerPool(&fakeHandler{}, WorkerPoolConfig{
		MessageWorkers:   3,
		MessageQueueSize: 15,
		MaxConcurrentOps: 4,
	})

	stats := wp.GetStats()
	expected := map[string]interface{}{
		"started":                false,
		"message_queue_size":     0,
		"message_queue_capacity": 15,
		"active_operations":      0,
		"max_concurrent_ops":     4,
		"message_workers":        3,
	}
	for key, want := range expected {
		if stats[key] != want {
			t.Errorf("Expected %s to be %v, got %v", key, want, stats[key])
		}
	}
}

func TestDefaultWorkerPoolConfig(t *testing.T) {
	config := DefaultWorkerPoolConfig()

	if config.MessageWorkers != 10 {
		t.Errorf("Expected 10 message workers, got %d", config.MessageWorkers)
	}
	if config.MessageQueueSize != 200 {
		t.Errorf("Expected message queue size 200, got %d", config.MessageQueueSize)
	}
	if config.MaxConcurrentOps != 5 {
		t.Errorf("Expected 5 max concurrent ops, got %d", config.MaxConcurrentOps)
	}
}
