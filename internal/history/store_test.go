package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHistory(t *testing.T, chats []Chat) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "messageHistory", "chat.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(chats)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return NewStore(path)
}

func msg(id int64, username, text string) Message {
	return Message{ID: id, Message: text, Sender: NewSender("1", username, "", "")}
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.json"))

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoHistory)

	_, err = s.Recent(10)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestStore_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoHistory)
}

func TestStore_Recent(t *testing.T) {
	var msgs []Message
	for i := 20; i > 0; i-- {
		msgs = append(msgs, msg(int64(i), "alice", "m"))
	}
	s := writeHistory(t, []Chat{{ChatID: -100, Title: "group", Messages: msgs}})

	recent, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	assert.Equal(t, int64(20), recent[0].ID)
	assert.Equal(t, int64(11), recent[9].ID)

	all, err := s.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestStore_RecentEmptyChat(t *testing.T) {
	s := writeHistory(t, []Chat{{ChatID: -100, Title: "group"}})

	_, err := s.Recent(10)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestStore_AppendAssistant(t *testing.T) {
	s := writeHistory(t, []Chat{{ChatID: -100, Title: "group", Messages: []Message{
		msg(150, "alice", "newest"),
		msg(140, "bob", "older"),
	}}})
	s.now = func() time.Time { return time.Date(2024, 12, 1, 15, 4, 5, 0, time.UTC) }

	appended, err := s.AppendAssistant(context.Background(), "wagmi.")
	require.NoError(t, err)
	assert.Equal(t, int64(151), appended.ID)
	assert.Equal(t, "12/01/2024, 03:04:05 PM", appended.Date)

	chats, err := s.Load()
	require.NoError(t, err)
	require.Len(t, chats[0].Messages, 3)
	first := chats[0].Messages[0]
	assert.Equal(t, "wagmi.", first.Message)
	assert.Equal(t, "AI_ASSISTANT", first.Sender.ID)
	assert.Equal(t, "ai_assistant", first.DisplayName())
	require.NotNil(t, first.Sender.FirstName)
	assert.Equal(t, "AI", *first.Sender.FirstName)
	assert.Nil(t, first.Sender.Phone)
}

func TestStore_AppendAssistantWithoutHistory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.json"))

	_, err := s.AppendAssistant(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestStore_AppendAssistantCancelled(t *testing.T) {
	s := writeHistory(t, []Chat{{ChatID: -100, Messages: []Message{msg(1, "a", "b")}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AppendAssistant(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_RecordCreatesChatAndDedups(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "history.json"))

	added, err := s.Record(-42, "Chill Guys", msg(10, "alice", "gm"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Record(-42, "Chill Guys", msg(10, "alice", "gm again"))
	require.NoError(t, err)
	assert.False(t, added)

	added, err = s.Record(-42, "Chill Guys", msg(5, "bob", "older message"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Record(-42, "Chill Guys", msg(12, "carol", "lfg"))
	require.NoError(t, err)
	assert.True(t, added)

	chats, err := s.Load()
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, int64(-42), chats[0].ChatID)
	assert.Equal(t, "Chill Guys", chats[0].Title)

	var ids []int64
	for _, m := range chats[0].Messages {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int64{12, 10, 5}, ids)
	assert.Equal(t, "gm", chats[0].Messages[1].Message)
	assert.NotEmpty(t, chats[0].Messages[0].Date)
}

func TestStore_RecordAfterAssistantReply(t *testing.T) {
	s := writeHistory(t, []Chat{{ChatID: -100, Title: "group", Messages: []Message{
		msg(100, "alice", "question"),
	}}})

	reply, err := s.AppendAssistant(context.Background(), "answer")
	require.NoError(t, err)
	require.Equal(t, int64(101), reply.ID)

	// Telegram hands the same ID to the next real message
	added, err := s.Record(-100, "", msg(101, "bob", "follow-up"))
	require.NoError(t, err)
	assert.True(t, added)

	recent, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "answer", recent[0].Message)
	assert.Equal(t, "follow-up", recent[1].Message)

	added, err = s.Record(-100, "", msg(101, "bob", "follow-up"))
	require.NoError(t, err)
	assert.False(t, added)
}

func TestStore_PrimaryChat(t *testing.T) {
	s := writeHistory(t, []Chat{
		{ChatID: -200, Title: "other", Messages: []Message{msg(7, "carol", "elsewhere")}},
		{ChatID: -100, Title: "group", Messages: []Message{msg(50, "alice", "here")}},
	})
	s.SetPrimaryChat(-100)

	recent, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "here", recent[0].Message)

	reply, err := s.AppendAssistant(context.Background(), "answer")
	require.NoError(t, err)
	assert.Equal(t, int64(51), reply.ID)

	chats, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, chats[0].Messages, 1)
	require.Len(t, chats[1].Messages, 2)
	assert.Equal(t, "answer", chats[1].Messages[0].Message)

	other, err := s.RecentIn(-200, 10)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "elsewhere", other[0].Message)
}

func TestStore_PrimaryChatMissing(t *testing.T) {
	s := writeHistory(t, []Chat{{ChatID: -200, Title: "other", Messages: []Message{msg(7, "carol", "elsewhere")}}})
	s.SetPrimaryChat(-100)

	_, err := s.Recent(10)
	assert.ErrorIs(t, err, ErrNoHistory)

	_, err = s.AppendAssistant(context.Background(), "answer")
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestStore_RecordSeparatesChats(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "history.json"))

	_, err := s.Record(-1, "first", msg(1, "a", "one"))
	require.NoError(t, err)
	_, err = s.Record(-2, "second", msg(1, "b", "two"))
	require.NoError(t, err)

	chats, err := s.Load()
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "one", chats[0].Messages[0].Message)
	assert.Equal(t, "two", chats[1].Messages[0].Message)
}

func TestStore_RecordCapsMessages(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "history.json"))
	s.maxPerChat = 3

	for i := int64(1); i <= 5; i++ {
		_, err := s.Record(-1, "group", msg(i, "a", "text"))
		require.NoError(t, err)
	}

	recent, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(5), recent[0].ID)
	assert.Equal(t, int64(3), recent[2].ID)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "history.json"))
	_, err := s.Record(-1, "group", msg(1, "seed", "seed"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := s.Record(-1, "group", msg(int64(1000*(i+1)), "user", "text"))
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.AppendAssistant(context.Background(), "reply")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	recent, err := s.Recent(0)
	require.NoError(t, err)
	assert.Len(t, recent, 21)

	seen := map[int64]bool{}
	for _, m := range recent {
		assert.False(t, seen[m.ID], "duplicate id %d", m.ID)
		seen[m.ID] = true
	}
}

func TestStore_Raw(t *testing.T) {
	s := writeHistory(t, []Chat{{ChatID: -1, Title: "t", Messages: []Message{msg(1, "a", "b")}}})

	data, err := s.Raw()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"chatId":-1`)

	_, err = NewStore(filepath.Join(t.TempDir(), "none.json")).Raw()
	assert.Error(t, err)
}

func TestFormatContext(t *testing.T) {
	msgs := []Message{
		msg(3, "alice", "btc to the moon"),
		{ID: 2, Message: "no sender"},
		msg(1, "", "empty username"),
	}

	assert.Equal(t, "alice: btc to the moon\nAnonymous: no sender\nAnonymous: empty username", FormatContext(msgs))
	assert.Equal(t, "", FormatContext(nil))
	assert.Equal(t, "btc to the moon\n\nno sender\n\nempty username", JoinText(msgs))
}
