package history

import (
	"errors"
	"strings"

	"github.com/autonome/autonome/internal/consts"
)

var (
	// ErrNoHistory means the history file is missing or holds no chat with messages
	ErrNoHistory = errors.New("no chat history available")
)

// Chat is one stored group conversation; Messages are kept newest first
type Chat struct {
	ChatID   int64     `json:"chatId"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

type Message struct {
	ID        int64   `json:"id"`
	Date      string  `json:"date"`
	Message   string  `json:"message"`
	Sender    *Sender `json:"sender"`
	HasMedia  bool    `json:"hasMedia,omitempty"`
	MediaType string  `json:"mediaType,omitempty"`
}

type Sender struct {
	ID        string  `json:"id"`
	Username  *string `json:"username"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
}

// DisplayName is the sender's username or Anonymous
func (m Message) DisplayName() string {
	if m.Sender == nil || m.Sender.Username == nil || *m.Sender.Username == "" {
		return consts.AnonymousSenderName
	}
	return *m.Sender.Username
}

// FormatContext renders messages as "username: text" lines
func FormatContext(msgs []Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.DisplayName()+": "+m.Message)
	}
	return strings.Join(lines, "\n")
}

// JoinText concatenates message bodies separated by blank lines
func JoinText(msgs []Message) string {
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Message)
	}
	return strings.Join(texts, "\n\n")
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewSender builds a sender, storing empty fields as null
func NewSender(id, username, firstName, lastName string) *Sender {
	return &Sender{
		ID:        id,
		Username:  stringPtr(username),
		FirstName: stringPtr(firstName),
		LastName:  stringPtr(lastName),
	}
}
