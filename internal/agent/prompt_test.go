package agent

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSimplifyPrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{
			name:   "question line extracted",
			prompt: "Based on this context:\n\nfoo\n\nQuestion: best restaking tokens?\n\nProvide analysis",
			want:   "You're a crypto advisor. Answer this question briefly: best restaking tokens?",
		},
		{
			name:   "question at end without newline",
			prompt: "Question:   is eigen safe?",
			want:   "You're a crypto advisor. Answer this question briefly: is eigen safe?",
		},
		{
			name:   "no question marker",
			prompt: "wen moon",
			want:   "You're a crypto advisor. Answer this question briefly: wen moon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SimplifyPrompt("You're a crypto advisor.", tt.prompt))
		})
	}
}

func TestSimplifyPrompt_BoundsQuestion(t *testing.T) {
	prompt := "Question: " + strings.Repeat("é", 1000)

	got := SimplifyPrompt("", prompt)

	question := strings.TrimPrefix(got, "Answer this question briefly: ")
	assert.Equal(t, SimplifiedQuestionLimit, utf8.RuneCountInString(question))
}
