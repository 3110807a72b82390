package telegram

import "gopkg.in/telebot.v3"

// Client sends operational messages via a Telegram bot. It decouples run
// reporting from the specific bot library.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
