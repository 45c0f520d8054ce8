package agent

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ContentGenerator is the part of the genai SDK used by GeminiTransport
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// GeminiTransport answers prompts with a Gemini model instead of an agent endpoint
type GeminiTransport struct {
	generator ContentGenerator
	model     string
}

// NewGeminiTransport creates a transport backed by the official Google SDK
func NewGeminiTransport(ctx context.Context, apiKey, model string) (*GeminiTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return NewGeminiTransportWithGenerator(client.Models, model), nil
}

// NewGeminiTransportWithGenerator is used by tests to plug a fake generator
func NewGeminiTransportWithGenerator(generator ContentGenerator, model string) *GeminiTransport {
	return &GeminiTransport{generator: generator, model: model}
}

func (g *GeminiTransport) Send(ctx context.Context, prompt string) (*RawResponse, error) {
	resp, err := g.generator.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in Gemini response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return &RawResponse{Data: nil}, nil
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	// A blank answer is passed on as-is so that Normalize reports the format error
	return &RawResponse{Data: strings.TrimSpace(sb.String())}, nil
}
