package telegram

import (
	"github.com/autonome/autonome/internal/consts"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCommand(message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		return b.handleStartCommand(message)
	case "help":
		return b.handleHelpCommand(message)
	default:
		return b.handleHelpCommand(message)
	}
}

func (b *Bot) handleStartCommand(message *tgbotapi.Message) error {
	b.sendResponse(message.Chat.ID, consts.MessageStart)
	return nil
}

func (b *Bot) handleHelpCommand(message *tgbotapi.Message) error {
	b.sendResponse(message.Chat.ID, consts.MessageHelp)
	return nil
}
