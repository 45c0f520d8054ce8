package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autonome/autonome/internal/agent"
	"github.com/autonome/autonome/internal/consts"
	"github.com/autonome/autonome/internal/history"
	"github.com/autonome/autonome/internal/queue"
)

var ErrEmptyQuestion = errors.New("question is required")

// Asker sends one prompt to the agent and returns normalized text
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

type HistoryReader interface {
	Recent(n int) ([]history.Message, error)
}

// Advisor answers questions with a structured analysis
type Advisor struct {
	agent Asker
}

func NewAdvisor(a Asker) *Advisor {
	return &Advisor{agent: a}
}

func (a *Advisor) Process(ctx context.Context, payload queue.Payload) (string, error) {
	question := strings.TrimSpace(payload.Question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	text, err := a.agent.Ask(ctx, AdvisorPrompt(question, payload.Context))
	if err != nil {
		return "", err
	}
	return agent.EnsureStructured(text, EigenLayerTemplate), nil
}

// Commentator produces casual commentary on the latest group messages
type Commentator struct {
	agent   Asker
	history HistoryReader
}

func NewCommentator(a Asker, h HistoryReader) *Commentator {
	return &Commentator{agent: a, history: h}
}

func (c *Commentator) Process(ctx context.Context, _ queue.Payload) (string, error) {
	msgs, err := c.history.Recent(consts.RecentMessageCount)
	if err != nil {
		return "", fmt.Errorf("could not read chat history: %w", err)
	}
	return c.agent.Ask(ctx, CommentaryPrompt(history.JoinText(msgs)))
}

// HistoryRecorder writes each reply into chat history as the assistant
type HistoryRecorder struct {
	store *history.Store
}

func NewHistoryRecorder(store *history.Store) *HistoryRecorder {
	return &HistoryRecorder{store: store}
}

func (r *HistoryRecorder) Record(ctx context.Context, text string) error {
	if _, err := r.store.AppendAssistant(ctx, text); err != nil {
		return fmt.Errorf("failed to append message to chat history: %w", err)
	}
	return nil
}
