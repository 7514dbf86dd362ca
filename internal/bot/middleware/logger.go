// Package middleware содержит промежуточные обработчики бота:
// логирование входящих, восстановление после паники и rate-limiting.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// LogMessage логирует входящее сообщение.
// Текст обрезается до 64 символов; фото помечается отдельным полем,
// потому что фото в личке — это чек ручной оплаты.
func LogMessage(message *tgbotapi.Message) {
	if message == nil || message.From == nil {
		return
	}

	text := message.Text
	if text == "" && message.Caption != "" {
		text = message.Caption
	}
	if len(text) > 64 {
		text = text[:64] + "..."
	}

	fields := log.Fields{
		"user_id":  message.From.ID,
		"chat_id":  message.Chat.ID,
		"username": message.From.UserName,
		"text":     text,
	}
	if len(message.Photo) > 0 {
		fields["photo"] = true
	}
	log.WithFields(fields).Debug("Входящее сообщение")
}
