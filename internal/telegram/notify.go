package telegram

import "strings"

const defaultIcon = "🔔"

var notificationIcons = map[string]string{
	"message":           "💬",
	"booking":           "📅",
	"review":            "⭐",
	"system":            "🔔",
	"referral":          "💰",
	"party_application": "🎉",
	"ad_response":       "📝",
	"audio_approved":    "✅",
	"audio_rejected":    "❌",
	"photo_approved":    "✅",
	"photo_rejected":    "❌",
	"info":              "ℹ️",
	"success":           "✅",
	"warning":           "⚠️",
	"error":             "❌",
}

func NotificationIcon(kind string) string {
	if icon, ok := notificationIcons[kind]; ok {
		return icon
	}
	return defaultIcon
}

// Notification renders a user notification as an HTML message. An actionURL
// starting with "#" is a route inside the web app.
func Notification(chatID int64, message, kind, actionURL, webAppURL string) SendMessageRequest {
	req := SendMessageRequest{
		ChatID:    chatID,
		Text:      NotificationIcon(kind) + " " + message,
		ParseMode: "HTML",
	}
	if actionURL != "" {
		target := actionURL
		if strings.HasPrefix(actionURL, "#") {
			target = strings.TrimRight(webAppURL, "/") + actionURL
		}
		req.ReplyMarkup = webAppKeyboard("🚀 Открыть", target)
	}
	return req
}
