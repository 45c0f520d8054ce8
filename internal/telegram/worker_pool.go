package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/autonome/autonome/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// messageHandler is what the pool runs for each update
type messageHandler interface {
	handleMessage(ctx context.Context, message *tgbotapi.Message) error
	sendErrorResponse(chatID int64, err error)
}

// WorkerPool processes incoming messages concurrently
type WorkerPool struct {
	handler            messageHandler
	messageQueue       chan *tgbotapi.Message
	messageWorkerCount int

	// Bounds concurrent calls to the AI services
	maxConcurrentOps int
	opSemaphore      chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex
}

type WorkerPoolConfig struct {
	MessageWorkers   int
	MessageQueueSize int
	MaxConcurrentOps int
}

func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MessageWorkers:   10,
		MessageQueueSize: 200,
		MaxConcurrentOps: 5,
	}
}

func NewWorkerPool(handler messageHandler, config WorkerPoolConfig) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		handler:            handler,
		messageQueue:       make(chan *tgbotapi.Message, config.MessageQueueSize),
		messageWorkerCount: config.MessageWorkers,
		maxConcurrentOps:   config.MaxConcurrentOps,
		opSemaphore:        make(chan struct{}, config.MaxConcurrentOps),
		ctx:                ctx,
		cancel:             cancel,
	}
}

func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return fmt.Errorf("worker pool already started")
	}

	logger.Info("Starting worker pool", map[string]interface{}{
		"message_workers":    wp.messageWorkerCount,
		"max_concurrent_ops": wp.maxConcurrentOps,
		"message_queue_size": cap(wp.messageQueue),
	})

	for i := 0; i < wp.messageWorkerCount; i++ {
		wp.wg.Add(1)
		go wp.messageWorker(i)
	}

	wp.started = true
	return nil
}

// Stop closes the queue, lets workers drain it and waits up to 30s
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.started {
		return fmt.Errorf("worker pool not started")
	}

	logger.InfoMsg("Stopping worker pool...")
	close(wp.messageQueue)

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoMsg("Worker pool stopped gracefully")
	case <-time.After(30 * time.Second):
		wp.cancel()
		logger.Warn("Worker pool shutdown timed out", nil)
		return fmt.Errorf("worker pool shutdown timed out")
	}

	wp.cancel()
	wp.started = false
	return nil
}

func (wp *WorkerPool) SubmitMessage(message *tgbotapi.Message) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.started {
		return fmt.Errorf("worker pool not started")
	}

	select {
	case wp.messageQueue <- message:
		logger.Debug("Message queued for processing", map[string]interface{}{
			"chat_id":    message.Chat.ID,
			"queue_size": len(wp.messageQueue),
		})
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	default:
		logger.Warn("Message queue full, dropping message", map[string]interface{}{
			"chat_id": message.Chat.ID,
		})
		return fmt.Errorf("message queue full")
	}
}

func (wp *WorkerPool) messageWorker(workerID int) {
	defer wp.wg.Done()

	for message := range wp.messageQueue {
		wp.processMessage(message, workerID)
	}

	logger.Debug("Message worker stopping", map[string]interface{}{
		"worker_id": workerID,
	})
}

func (wp *WorkerPool) processMessage(message *tgbotapi.Message, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Message worker panic recovered", map[string]interface{}{
				"worker_id": workerID,
				"panic":     r,
			})
		}
	}()

	select {
	case wp.opSemaphore <- struct{}{}:
		defer func() { <-wp.opSemaphore }()
	case <-wp.ctx.Done():
		return
	}

	startTime := time.Now()
	if err := wp.handler.handleMessage(wp.ctx, message); err != nil {
		logger.Error("Error processing message", map[string]interface{}{
			"worker_id": workerID,
			"error":     err.Error(),
			"chat_id":   message.Chat.ID,
		})
		wp.handler.sendErrorResponse(message.Chat.ID, err)
	}

	logger.Debug("Message processed", map[string]interface{}{
		"worker_id": workerID,
		"chat_id":   message.Chat.ID,
		"duration":  time.Since(startTime).String(),
	})
}

func (wp *WorkerPool) GetStats() map[string]interface{} {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return map[string]interface{}{
		"started":                wp.started,
		"message_queue_size":     len(wp.messageQueue),
		"message_queue_capacity": cap(wp.messageQueue),
		"active_operations":      len(wp.opSemaphore),
		"max_concurrent_ops":     wp.maxConcurrentOps,
		"message_workers":        wp.messageWorkerCount,
	}
}
