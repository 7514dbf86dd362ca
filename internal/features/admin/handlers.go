// Package admin — handlers.go обрабатывает команды входа администратора.
// Вход работает только в личных сообщениях: /login <пароль>.
package admin

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/common"
	"fortuna-bot/internal/config"
)

// Handler обрабатывает админ-команды аутентификации.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
	cfg     *config.Config
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, bot *tgbotapi.BotAPI, cfg *config.Config) *Handler {
	return &Handler{service: service, bot: bot, cfg: cfg}
}

// HandleLogin обрабатывает /login <пароль>. Только в личных сообщениях,
// чтобы пароль не засветился в группе.
func (h *Handler) HandleLogin(ctx context.Context, chatID, userID int64, isPrivate bool, password string) {
	if !h.cfg.IsAdminID(userID) {
		// Не раскрываем существование команды посторонним
		return
	}
	if !isPrivate {
		h.sendMessage(chatID, "🔐 Вход выполняется только в личных сообщениях боту")
		return
	}
	if password == "" {
		h.sendMessage(chatID, "Использование: /login <пароль>")
		return
	}

	err := h.service.VerifyPassword(ctx, userID, password)
	switch {
	case err == nil:
		log.WithField("user_id", userID).Info("Администратор вошёл в систему")
		h.sendMessage(chatID, "✅ Вход выполнен. Сессия активна 24 часа.\nДоступно: !чеки, !одобрить, !отклонить, !выдан")
	case errors.Is(err, common.ErrTooManyAttempts):
		h.sendMessage(chatID, "⛔ Слишком много попыток. Подождите 1 час.")
	case errors.Is(err, common.ErrWrongPassword):
		h.sendMessage(chatID, "❌ Неверный пароль")
	default:
		log.WithError(err).Error("Ошибка входа администратора")
		h.sendMessage(chatID, "❌ Ошибка входа, попробуйте позже")
	}
}

// HandleLogout обрабатывает /logout.
func (h *Handler) HandleLogout(ctx context.Context, chatID, userID int64) {
	if !h.cfg.IsAdminID(userID) {
		return
	}
	if err := h.service.Logout(ctx, userID); err != nil {
		log.WithError(err).Error("Ошибка выхода администратора")
		h.sendMessage(chatID, "❌ Ошибка выхода")
		return
	}
	h.sendMessage(chatID, "👋 Сессия завершена")
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
