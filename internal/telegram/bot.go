package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/autonome/autonome/internal/consts"
	"github.com/autonome/autonome/internal/history"
	"github.com/autonome/autonome/internal/logger"
	"github.com/autonome/autonome/internal/metrics"
	"github.com/autonome/autonome/internal/queue"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// BotAPI is the subset of *tgbotapi.BotAPI the relay uses
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Discusser asks an AI service over HTTP
type Discusser interface {
	Discuss(ctx context.Context, payload queue.Payload) (*queue.Response, error)
}

type HistoryStore interface {
	Recent(n int) ([]history.Message, error)
	RecentIn(chatID int64, n int) ([]history.Message, error)
	Record(chatID int64, title string, msg history.Message) (bool, error)
}

type MonitoringChecker interface {
	IsMonitoring(ctx context.Context, telegramUsername string) (bool, error)
}

type Options struct {
	// Username is the bot's own username, without @
	Username string
	BotID    int64

	Advisor     Discusser
	Commentator Discusser
	History     HistoryStore
	Users       MonitoringChecker
	Metrics     *metrics.Collector

	CommentaryChatID int64
	TurnInterval     time.Duration
	StartWithTurn    bool

	WorkerPool WorkerPoolConfig
}

type Bot struct {
	api      BotAPI
	username string
	botID    int64

	advisor Discusser
	history HistoryStore
	users   MonitoringChecker
	metrics *metrics.Collector

	// Rate limiting
	globalLimiter  *rate.Limiter
	chatLimiters   map[int64]*rate.Limiter
	chatLimitersMu sync.RWMutex
	cleanupStarted bool

	workerPool *WorkerPool
	rotation   *Rotation

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBotAPI connects to Telegram with the given token
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return api, nil
}

func NewBot(api BotAPI, opts Options) *Bot {
	if opts.WorkerPool.MessageWorkers <= 0 {
		opts.WorkerPool = DefaultWorkerPoolConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		api:      api,
		username: opts.Username,
		botID:    opts.BotID,
		advisor:  opts.Advisor,
		history:  opts.History,
		users:    opts.Users,
		metrics:  opts.Metrics,

		// Telegram allows about 30 messages per second overall and 1 per second per chat
		globalLimiter: rate.NewLimiter(rate.Limit(30), 30),
		chatLimiters:  make(map[int64]*rate.Limiter),

		ctx:    ctx,
		cancel: cancel,
	}
	b.workerPool = NewWorkerPool(b, opts.WorkerPool)

	if opts.CommentaryChatID != 0 && opts.Commentator != nil {
		b.rotation = NewRotation(opts.Commentator, b.sendToChat, RotationConfig{
			ChatID:        opts.CommentaryChatID,
			TurnInterval:  opts.TurnInterval,
			StartWithTurn: opts.StartWithTurn,
		})
	}
	return b
}

// Start long-polls Telegram and dispatches updates until Stop is called
func (b *Bot) Start() error {
	logger.Info("Bot authorized and starting", map[string]interface{}{
		"username":   b.username,
		"commentary": b.rotation != nil,
	})

	if err := b.workerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	if b.rotation != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.rotation.Run(b.ctx)
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message"}

	b.dispatch(b.api.GetUpdatesChan(u))
	return nil
}

func (b *Bot) dispatch(updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			if err := b.workerPool.SubmitMessage(update.Message); err != nil {
				logger.Error("Failed to submit message to worker pool", map[string]interface{}{
					"error":   err.Error(),
					"chat_id": update.Message.Chat.ID,
				})
			}
		}
	}
}

// Stop ends polling, the commentary rotation and the worker pool
func (b *Bot) Stop() error {
	logger.InfoMsg("Stopping bot...")

	b.api.StopReceivingUpdates()
	b.cancel()
	b.wg.Wait()

	if err := b.workerPool.Stop(); err != nil {
		logger.Error("Error stopping worker pool", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	logger.InfoMsg("Bot stopped successfully")
	return nil
}

func (b *Bot) GetWorkerPoolStats() map[string]interface{} {
	return b.workerPool.GetStats()
}

func (b *Bot) sendResponse(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.rateLimitedSend(chatID, msg); err != nil {
		logger.Error("Failed to send message", map[string]interface{}{
			"error":   err.Error(),
			"chat_id": chatID,
		})
	}
}

// sendReply answers a message in Markdown, falling back to plain text when
// Telegram rejects the markup
func (b *Bot) sendReply(chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = consts.ParseModeMarkdown
	msg.ReplyToMessageID = replyTo

	if _, err := b.rateLimitedSend(chatID, msg); err != nil {
		logger.Warn("Markdown reply rejected, retrying as plain text", map[string]interface{}{
			"chat_id": chatID,
			"error":   err.Error(),
		})
		msg.ParseMode = ""
		if _, err := b.rateLimitedSend(chatID, msg); err != nil {
			return fmt.Errorf("failed to send reply: %w", err)
		}
	}
	return nil
}

// sendToChat is used by the commentary rotation
func (b *Bot) sendToChat(ctx context.Context, chatID int64, text string) error {
	if _, err := b.rateLimitedSendContext(ctx, chatID, tgbotapi.NewMessage(chatID, text)); err != nil {
		b.metrics.RecordTelegramMessage("commentary", "error")
		return err
	}
	b.metrics.RecordTelegramMessage("commentary", "sent")
	return nil
}

func (b *Bot) sendErrorResponse(chatID int64, err error) {
	b.sendResponse(chatID, consts.MessageGenericError)
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logger.Debug("Failed to send typing action", map[string]interface{}{
			"chat_id": chatID,
			"error":   err.Error(),
		})
	}
}

// getChatRateLimiter gets or creates the limiter for one chat
func (b *Bot) getChatRateLimiter(chatID int64) *rate.Limiter {
	b.chatLimitersMu.RLock()
	limiter, exists := b.chatLimiters[chatID]
	b.chatLimitersMu.RUnlock()

	if !exists {
		b.chatLimitersMu.Lock()
		if limiter, exists = b.chatLimiters[chatID]; !exists {
			limiter = rate.NewLimiter(rate.Limit(1), 3)
			b.chatLimiters[chatID] = limiter

			if !b.cleanupStarted {
				b.cleanupStarted = true
				go b.cleanupChatLimiters()
			}
		}
		b.chatLimitersMu.Unlock()
	}

	return limiter
}

// cleanupChatLimiters bounds the limiter map
func (b *Bot) cleanupChatLimiters() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.chatLimitersMu.Lock()
			if len(b.chatLimiters) > 1000 {
				logger.Debug("Cleaning up chat rate limiters", map[string]interface{}{
					"limiter_count": len(b.chatLimiters),
				})
				b.chatLimiters = make(map[int64]*rate.Limiter)
			}
			b.chatLimitersMu.Unlock()
		}
	}
}

func (b *Bot) rateLimitedSend(chatID int64, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return b.rateLimitedSendContext(context.Background(), chatID, msg)
}

func (b *Bot) rateLimitedSendContext(ctx context.Context, chatID int64, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := b.globalLimiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("global rate limiter error: %w", err)
	}
	if err := b.getChatRateLimiter(chatID).Wait(ctx); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("chat rate limiter error: %w", err)
	}

	return b.api.Send(msg)
}
