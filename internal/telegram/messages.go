package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/autonome/autonome/internal/consts"
	"github.com/autonome/autonome/internal/history"
	"github.com/autonome/autonome/internal/logger"
	"github.com/autonome/autonome/internal/queue"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if len(message.NewChatMembers) > 0 {
		return b.handleNewMembers(ctx, message)
	}

	isGroup := message.Chat.IsGroup() || message.Chat.IsSuperGroup()
	if isGroup {
		b.recordGroupMessage(message)
	}

	if message.IsCommand() {
		if isGroup && !b.isAddressedToMe(message) {
			return nil
		}
		return b.handleCommand(message)
	}

	if message.Text == "" {
		return nil
	}
	if isGroup && !b.isAddressedToMe(message) {
		return nil
	}

	return b.answerQuestion(ctx, message)
}

// isAddressedToMe reports whether a group message mentions or replies to the bot
func (b *Bot) isAddressedToMe(message *tgbotapi.Message) bool {
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil &&
		message.ReplyToMessage.From.ID == b.botID && b.botID != 0 {
		return true
	}
	if message.IsCommand() {
		cmd := message.CommandWithAt()
		at := strings.Index(cmd, "@")
		return at < 0 || strings.EqualFold(cmd[at+1:], b.username)
	}
	if b.username == "" {
		return false
	}
	return strings.Contains(strings.ToLower(message.Text), "@"+strings.ToLower(b.username))
}

func (b *Bot) stripMention(text string) string {
	if b.username == "" {
		return strings.TrimSpace(text)
	}
	mention := "@" + b.username
	idx := strings.Index(strings.ToLower(text), strings.ToLower(mention))
	if idx < 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:idx] + text[idx+len(mention):])
}

// answerQuestion relays a question with recent group context to the advisor
func (b *Bot) answerQuestion(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	question := b.stripMention(message.Text)
	if question == "" {
		b.sendResponse(chatID, consts.MessageHelp)
		return nil
	}

	b.sendTyping(chatID)

	resp, err := b.advisor.Discuss(ctx, queue.Payload{
		Question: question,
		Context:  b.recentContext(message.Chat),
	})
	if err != nil {
		logger.Error("Failed to get advisor answer", map[string]interface{}{
			"chat_id": chatID,
			"error":   err.Error(),
		})
		b.metrics.RecordTelegramMessage("answer", "error")
		b.sendResponse(chatID, consts.MessageProcessingError)
		return nil
	}

	if err := b.sendReply(chatID, message.MessageID, resp.AIResponse.Text); err != nil {
		b.metrics.RecordTelegramMessage("answer", "error")
		return err
	}
	b.metrics.RecordTelegramMessage("answer", "sent")

	logger.Info("Answered question", map[string]interface{}{
		"chat_id":  chatID,
		"fallback": resp.Fallback,
	})
	return nil
}

// recentContext reads the asking group's own history; private chats get the primary chat
func (b *Bot) recentContext(chat *tgbotapi.Chat) string {
	if b.history == nil {
		return consts.MessageNoHistory
	}

	var msgs []history.Message
	var err error
	if chat.IsGroup() || chat.IsSuperGroup() {
		msgs, err = b.history.RecentIn(chat.ID, consts.RecentMessageCount)
	} else {
		msgs, err = b.history.Recent(consts.RecentMessageCount)
	}
	if err != nil {
		if !errors.Is(err, history.ErrNoHistory) {
			logger.Warn("Failed to read chat history", map[string]interface{}{
				"chat_id": chat.ID,
				"error":   err.Error(),
			})
		}
		return consts.MessageNoHistory
	}
	return history.FormatContext(msgs)
}

// recordGroupMessage stores a group message in chat history
func (b *Bot) recordGroupMessage(message *tgbotapi.Message) {
	if b.history == nil {
		return
	}

	msg, ok := toHistoryMessage(message)
	if !ok {
		return
	}

	added, err := b.history.Record(message.Chat.ID, message.Chat.Title, msg)
	if err != nil {
		logger.Error("Failed to record group message", map[string]interface{}{
			"chat_id":    message.Chat.ID,
			"message_id": message.MessageID,
			"error":      err.Error(),
		})
		b.metrics.RecordTelegramMessage("recorded", "error")
		return
	}
	if added {
		b.metrics.RecordTelegramMessage("recorded", "stored")
	}
}

func toHistoryMessage(message *tgbotapi.Message) (history.Message, bool) {
	text := message.Text
	if text == "" {
		text = message.Caption
	}

	mediaType := mediaTypeOf(message)
	if text == "" && mediaType == "" {
		return history.Message{}, false
	}

	msg := history.Message{
		ID:        int64(message.MessageID),
		Date:      history.FormatDate(message.Time()),
		Message:   text,
		HasMedia:  mediaType != "",
		MediaType: mediaType,
	}
	if message.From != nil {
		msg.Sender = history.NewSender(
			strconv.FormatInt(message.From.ID, 10),
			message.From.UserName,
			message.From.FirstName,
			message.From.LastName,
		)
	}
	return msg, true
}

func mediaTypeOf(message *tgbotapi.Message) string {
	switch {
	case len(message.Photo) > 0:
		return "photo"
	case message.Video != nil:
		return "video"
	case message.Document != nil:
		return "document"
	case message.Audio != nil:
		return "audio"
	case message.Voice != nil:
		return "voice"
	case message.Sticker != nil:
		return "sticker"
	case message.Animation != nil:
		return "animation"
	default:
		return ""
	}
}

// handleNewMembers confirms monitoring to the registered user who added the bot
func (b *Bot) handleNewMembers(ctx context.Context, message *tgbotapi.Message) error {
	addedMe := false
	for _, member := range message.NewChatMembers {
		if (b.botID != 0 && member.ID == b.botID) || (b.username != "" && strings.EqualFold(member.UserName, b.username)) {
			addedMe = true
			break
		}
	}
	if !addedMe || message.From == nil || b.users == nil {
		return nil
	}

	logger.Info("Bot added to group", map[string]interface{}{
		"chat_id":  message.Chat.ID,
		"title":    message.Chat.Title,
		"added_by": message.From.UserName,
	})

	if message.From.UserName == "" {
		return nil
	}
	monitoring, err := b.users.IsMonitoring(ctx, message.From.UserName)
	if err != nil {
		return fmt.Errorf("failed to check monitoring for %s: %w", message.From.UserName, err)
	}
	if !monitoring {
		return nil
	}

	// a user's private chat ID equals their user ID
	b.sendResponse(message.From.ID, fmt.Sprintf(consts.MessageMonitoringGroup, message.Chat.Title))
	b.metrics.RecordTelegramMessage("monitoring", "sent")
	return nil
}
