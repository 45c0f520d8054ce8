package service

import (
	"context"
	"fmt"

	"github.com/autonome/autonome/internal/agent"
	"github.com/autonome/autonome/internal/config"
	"github.com/autonome/autonome/internal/history"
	"github.com/autonome/autonome/internal/metrics"
	"github.com/autonome/autonome/internal/queue"
)

// SuccessMessageHistory accompanies commentator replies once stored
const SuccessMessageHistory = "AI response added to chat history"

// Service is one AI bot instance: a queue in front of its processor
type Service struct {
	Name    string
	Queue   *queue.RequestQueue
	History *history.Store

	// RequireQuestion rejects payloads without a question before they are queued
	RequireQuestion bool
}

// NewTransport builds the outbound agent transport for the configured provider
func NewTransport(ctx context.Context, cfg config.AgentConfig) (agent.Transport, error) {
	switch cfg.Provider {
	case config.ProviderAutonome:
		return agent.NewHTTPTransport(cfg.BaseURL, cfg.AgentID, cfg.Credentials, cfg.Timeout), nil
	case config.ProviderGemini:
		return agent.NewGeminiTransport(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unsupported agent provider %q", cfg.Provider)
	}
}

// NewAdvisorService wires the advisor, which falls back to a canned analysis by default
func NewAdvisorService(cfg *config.Config, transport agent.Transport, m *metrics.Collector) *Service {
	client := agent.NewClient(transport, agent.Options{
		Name:       cfg.Agent.Name,
		MaxRetries: cfg.Agent.MaxRetries,
		BaseDelay:  cfg.Agent.BaseDelay,
		Simplify:   agent.QuestionSimplifier(AdvisorPersona),
		Metrics:    m,
	})

	q := queue.New(NewAdvisor(client), queue.Config{
		Name:       config.ServiceAdvisor,
		Policy:     policyFor(cfg.QueuePolicy, AdvisorFallbackText),
		DrainDelay: cfg.DrainDelay,
		Metrics:    m,
	})

	return &Service{
		Name:            config.ServiceAdvisor,
		Queue:           q,
		RequireQuestion: true,
	}
}

// NewCommentatorService wires the commentator, which persists each reply before settling
func NewCommentatorService(cfg *config.Config, transport agent.Transport, store *history.Store, m *metrics.Collector) *Service {
	client := agent.NewClient(transport, agent.Options{
		Name:       cfg.Agent.Name,
		MaxRetries: cfg.Agent.MaxRetries,
		BaseDelay:  cfg.Agent.BaseDelay,
		Metrics:    m,
	})

	q := queue.New(NewCommentator(client, store), queue.Config{
		Name:           config.ServiceCommentator,
		Policy:         policyFor(cfg.QueuePolicy, CommentatorFallbackText),
		DrainDelay:     cfg.DrainDelay,
		Recorder:       NewHistoryRecorder(store),
		SuccessMessage: SuccessMessageHistory,
		Metrics:        m,
	})

	return &Service{
		Name:    config.ServiceCommentator,
		Queue:   q,
		History: store,
	}
}

func policyFor(name, fallbackText string) queue.Policy {
	if name == config.PolicyFallback {
		return queue.FallbackPolicy(fallbackText)
	}
	return queue.StrictPolicy()
}

func (s *Service) Close() error {
	return s.Queue.Close()
}
