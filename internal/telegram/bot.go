package telegram

import (
	"fmt"
	"strings"
)

const unknownCommandText = "Используй /help для списка команд"

const helpText = "📖 Помощь:\n\n" +
	"/start - Запустить приложение\n" +
	"/help - Показать эту справку\n" +
	"/profile - Открыть профиль\n" +
	"/notifications - Управление уведомлениями"

// MessageReply, PreCheckoutReply and CallbackReply are webhook replies: the
// Bot API executes the named method with the body as its arguments.
type MessageReply struct {
	Method      string                `json:"method"`
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type PreCheckoutReply struct {
	Method             string `json:"method"`
	PreCheckoutQueryID string `json:"pre_checkout_query_id"`
	Ok                 bool   `json:"ok"`
}

type CallbackReply struct {
	Method          string `json:"method"`
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text"`
}

type Bot struct {
	webAppURL string
}

func NewBot(webAppURL string) *Bot {
	return &Bot{webAppURL: strings.TrimRight(webAppURL, "/")}
}

// CommandReply answers a text message from the command table.
func (b *Bot) CommandReply(msg Message) MessageReply {
	reply := MessageReply{Method: "sendMessage", ChatID: msg.Chat.ID}
	switch strings.TrimSpace(msg.Text) {
	case "/start":
		name := "друг"
		if msg.From != nil && msg.From.FirstName != "" {
			name = msg.From.FirstName
		}
		reply.Text = fmt.Sprintf("👋 Привет, %s!\n\nДобро пожаловать в наш сервис знакомств!\n\nНажми на кнопку ниже, чтобы открыть приложение:", name)
		reply.ReplyMarkup = webAppKeyboard("🚀 Открыть приложение", b.webAppURL)
	case "/help":
		reply.Text = helpText
	case "/profile":
		reply.Text = "👤 Открываю твой профиль..."
		reply.ReplyMarkup = webAppKeyboard("👤 Мой профиль", b.webAppURL+"#profile")
	default:
		reply.Text = unknownCommandText
	}
	return reply
}

// PreCheckoutReply approves every checkout.
func (b *Bot) PreCheckoutReply(query PreCheckoutQuery) PreCheckoutReply {
	return PreCheckoutReply{Method: "answerPreCheckoutQuery", PreCheckoutQueryID: query.ID, Ok: true}
}

func (b *Bot) CallbackReply(query CallbackQuery) CallbackReply {
	return CallbackReply{Method: "answerCallbackQuery", CallbackQueryID: query.ID, Text: "Обработано!"}
}

func webAppKeyboard(text, url string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{{Text: text, WebApp: &WebAppInfo{URL: url}}}},
	}
}
