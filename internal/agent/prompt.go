package agent

import (
	"strings"
)

// SimplifiedQuestionLimit bounds the question carried into a simplified prompt
const SimplifiedQuestionLimit = 280

const questionMarker = "Question:"

// QuestionSimplifier returns a Simplify func that keeps only the question line of a
// prompt behind the given persona.
func QuestionSimplifier(persona string) func(string) string {
	return func(prompt string) string {
		return SimplifyPrompt(persona, prompt)
	}
}

// SimplifyPrompt builds a short prompt from the "Question:" segment of prompt. Without
// that segment the start of the whole prompt is used.
func SimplifyPrompt(persona, prompt string) string {
	segment := prompt
	if idx := strings.Index(prompt, questionMarker); idx >= 0 {
		segment = prompt[idx+len(questionMarker):]
		if nl := strings.IndexByte(segment, '\n'); nl >= 0 {
			segment = segment[:nl]
		}
	}

	question := truncateRunes(strings.TrimSpace(segment), SimplifiedQuestionLimit)
	return strings.TrimSpace(persona + " Answer this question briefly: " + question)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
