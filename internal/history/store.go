package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/autonome/autonome/internal/consts"
	"github.com/autonome/autonome/internal/logger"
)

const dateLayout = "01/02/2006, 03:04:05 PM"

// Store is a JSON file of chats shared by the bot and the commentator.
// All access goes through one mutex and writes replace the file atomically.
type Store struct {
	path          string
	maxPerChat    int
	primaryChatID int64
	mu            sync.Mutex
	now           func() time.Time
}

func NewStore(path string) *Store {
	return &Store{
		path:       path,
		maxPerChat: consts.MaxMessagesPerChat,
		now:        time.Now,
	}
}

func (s *Store) Path() string {
	return s.path
}

// SetPrimaryChat selects the chat read by Recent and written by AppendAssistant.
// Zero means the first stored chat.
func (s *Store) SetPrimaryChat(chatID int64) {
	s.mu.Lock()
	s.primaryChatID = chatID
	s.mu.Unlock()
}

// Raw returns the stored file as-is
func (s *Store) Raw() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	return data, nil
}

// Load returns all stored chats. A missing file yields ErrNoHistory.
func (s *Store) Load() ([]Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]Chat, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoHistory
		}
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	var chats []Chat
	if err := json.Unmarshal(data, &chats); err != nil {
		return nil, fmt.Errorf("failed to parse chat history: %w", err)
	}
	return chats, nil
}

// Recent returns up to n newest messages of the primary chat
func (s *Store) Recent(n int) ([]Message, error) {
	s.mu.Lock()
	chatID := s.primaryChatID
	s.mu.Unlock()
	return s.RecentIn(chatID, n)
}

// RecentIn returns up to n newest messages of one chat; chatID 0 means the first stored chat
func (s *Store) RecentIn(chatID int64, n int) ([]Message, error) {
	chats, err := s.Load()
	if err != nil {
		return nil, err
	}
	idx := chatIndex(chats, chatID)
	if idx < 0 || len(chats[idx].Messages) == 0 {
		return nil, ErrNoHistory
	}

	msgs := chats[idx].Messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[:n]
	}
	return append([]Message(nil), msgs...), nil
}

// AppendAssistant stores an AI reply as the newest message of the primary chat
func (s *Store) AppendAssistant(ctx context.Context, text string) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chats, err := s.load()
	if err != nil {
		return Message{}, err
	}
	idx := chatIndex(chats, s.primaryChatID)
	if idx < 0 {
		return Message{}, ErrNoHistory
	}
	chat := &chats[idx]

	msg := Message{
		ID:      nextID(chat.Messages),
		Date:    FormatDate(s.now()),
		Message: text,
		Sender: NewSender(
			consts.AssistantSenderID,
			consts.AssistantUsername,
			consts.AssistantFirstName,
			consts.AssistantLastName,
		),
	}
	chat.Messages = append([]Message{msg}, chat.Messages...)

	if err := s.save(chats); err != nil {
		return Message{}, err
	}

	logger.Debug("Assistant message appended", map[string]interface{}{
		"chat_id":    chat.ChatID,
		"message_id": msg.ID,
	})
	return msg, nil
}

// Record merges one incoming message into its chat, creating the chat if needed.
// It reports false when the same sender's message with the same ID is already stored.
func (s *Store) Record(chatID int64, title string, msg Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats, err := s.load()
	if err != nil && !errors.Is(err, ErrNoHistory) {
		return false, err
	}

	idx := findChat(chats, chatID)
	if idx < 0 {
		chats = append(chats, Chat{ChatID: chatID, Title: title})
		idx = len(chats) - 1
	}

	chat := &chats[idx]
	for _, existing := range chat.Messages {
		if sameMessage(existing, msg) {
			return false, nil
		}
	}
	if title != "" {
		chat.Title = title
	}
	if msg.Date == "" {
		msg.Date = FormatDate(s.now())
	}

	chat.Messages = append(chat.Messages, msg)
	sort.SliceStable(chat.Messages, func(i, j int) bool {
		return chat.Messages[i].ID > chat.Messages[j].ID
	})
	if s.maxPerChat > 0 && len(chat.Messages) > s.maxPerChat {
		chat.Messages = chat.Messages[:s.maxPerChat]
	}

	if err := s.save(chats); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) save(chats []Chat) error {
	data, err := json.MarshalIndent(chats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chat history: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write chat history: %w", err)
	}
	return nil
}

// FormatDate renders a timestamp the way stored messages carry it
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func chatIndex(chats []Chat, chatID int64) int {
	if chatID == 0 {
		if len(chats) == 0 {
			return -1
		}
		return 0
	}
	return findChat(chats, chatID)
}

func findChat(chats []Chat, chatID int64) int {
	for i := range chats {
		if chats[i].ChatID == chatID {
			return i
		}
	}
	return -1
}

// sameMessage matches on sender and ID. Assistant replies take the next free ID,
// which Telegram later assigns to a real message as well.
func sameMessage(a, b Message) bool {
	return a.ID == b.ID && senderID(a) == senderID(b)
}

func senderID(m Message) string {
	if m.Sender == nil {
		return ""
	}
	return m.Sender.ID
}

func nextID(msgs []Message) int64 {
	var highest int64
	for _, m := range msgs {
		if m.ID > highest {
			highest = m.ID
		}
	}
	return highest + 1
}

func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", path, err)
	}
	return os.Rename(tmpPath, path)
}
