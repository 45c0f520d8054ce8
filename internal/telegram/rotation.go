package telegram

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/autonome/autonome/internal/logger"
	"github.com/autonome/autonome/internal/queue"
)

var errEmptyCommentary = errors.New("commentator returned no text")

// SendFunc posts one message into a chat
type SendFunc func(ctx context.Context, chatID int64, text string) error

type RotationConfig struct {
	ChatID        int64
	TurnInterval  time.Duration
	StartWithTurn bool
	SendSpacing   time.Duration
	PollInterval  time.Duration
	ErrorBackoff  time.Duration
}

func (c *RotationConfig) applyDefaults() {
	if c.TurnInterval <= 0 {
		c.TurnInterval = 5 * time.Second
	}
	if c.SendSpacing <= 0 {
		c.SendSpacing = 500 * time.Millisecond
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 5 * time.Second
	}
}

// Rotation posts commentator replies into a group while it holds the turn.
// The turn flips every TurnInterval so two instances started with opposite
// StartWithTurn values alternate.
type Rotation struct {
	commentator Discusser
	send        SendFunc
	cfg         RotationConfig

	myTurn       atomic.Bool
	lastResponse string

	sleep func(ctx context.Context, d time.Duration) error
}

func NewRotation(commentator Discusser, send SendFunc, cfg RotationConfig) *Rotation {
	cfg.applyDefaults()
	r := &Rotation{
		commentator: commentator,
		send:        send,
		cfg:         cfg,
		sleep:       sleepContext,
	}
	r.myTurn.Store(cfg.StartWithTurn)
	return r
}

func (r *Rotation) MyTurn() bool {
	return r.myTurn.Load()
}

// Toggle flips the turn and returns the new value
func (r *Rotation) Toggle() bool {
	for {
		current := r.myTurn.Load()
		if r.myTurn.CompareAndSwap(current, !current) {
			return !current
		}
	}
}

// Run loops until ctx ends
func (r *Rotation) Run(ctx context.Context) {
	logger.Info("Starting commentary rotation", map[string]interface{}{
		"chat_id":       r.cfg.ChatID,
		"turn_interval": r.cfg.TurnInterval.String(),
		"my_turn":       r.MyTurn(),
	})

	go r.manageTurns(ctx)

	for {
		wait := r.cfg.PollInterval
		if r.MyTurn() {
			if err := r.takeTurn(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("Error in commentary rotation", map[string]interface{}{
					"chat_id": r.cfg.ChatID,
					"error":   err.Error(),
				})
				wait = r.cfg.ErrorBackoff
			}
		}
		if err := r.sleep(ctx, wait); err != nil {
			logger.InfoMsg("Commentary rotation stopped")
			return
		}
	}
}

func (r *Rotation) manageTurns(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.TurnInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			turn := r.Toggle()
			logger.Debug("Turn changed", map[string]interface{}{
				"my_turn": turn,
			})
		}
	}
}

// takeTurn fetches one commentary and posts it sentence by sentence. A reply
// identical to the previous one is skipped.
func (r *Rotation) takeTurn(ctx context.Context) error {
	resp, err := r.commentator.Discuss(ctx, queue.Payload{})
	if err != nil {
		return err
	}

	text := strings.TrimSpace(resp.AIResponse.Text)
	if text == "" {
		return errEmptyCommentary
	}
	if text == r.lastResponse {
		logger.Debug("Skipping duplicate commentary", nil)
		return nil
	}
	r.lastResponse = text

	for i, sentence := range SplitSentences(text) {
		if i > 0 {
			if err := r.sleep(ctx, r.cfg.SendSpacing); err != nil {
				return err
			}
		}
		if err := r.send(ctx, r.cfg.ChatID, sentence); err != nil {
			logger.Error("Failed to send commentary", map[string]interface{}{
				"chat_id": r.cfg.ChatID,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

// SplitSentences splits text on periods into trimmed sentences, each ending with a period
func SplitSentences(text string) []string {
	var sentences []string
	for _, part := range strings.Split(text, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sentences = append(sentences, part+".")
	}
	return sentences
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
