// Package players — handlers.go обрабатывает команды !баланс и !история.
package players

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/common"
)

// Handler обрабатывает команды игрока.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик игрока.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleBalance обрабатывает команду !баланс.
//
// Формат ответа:
//
//	🎟 Доступно: 3 попытки
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	available, err := h.service.AvailableTries(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		h.sendMessage(chatID, "❌ Ошибка получения баланса")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("🎟 Доступно: %s", common.FormatTries(available)))
}

// HandleHistory обрабатывает команду !история — последние записи журнала.
func (h *Handler) HandleHistory(ctx context.Context, chatID, userID int64) {
	entries, err := h.service.LedgerHistory(ctx, userID, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка получения журнала")
		h.sendMessage(chatID, "❌ Ошибка получения истории")
		return
	}
	if len(entries) == 0 {
		h.sendMessage(chatID, "📒 История пуста. Начни с !купить")
		return
	}

	var sb strings.Builder
	sb.WriteString("📒 Последние операции:\n\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s  %s  (%s)\n",
			e.CreatedAt.Format("02.01 15:04"),
			common.FormatTriesDelta(e.Delta),
			reasonLabel(e.Reason),
		))
	}
	h.sendMessage(chatID, sb.String())
}

// reasonLabel переводит тег причины в человекочитаемую подпись.
func reasonLabel(r Reason) string {
	switch r {
	case ReasonPayment:
		return "оплата"
	case ReasonProof:
		return "чек"
	case ReasonReferral:
		return "бонус за друга"
	case ReasonPlay:
		return "игра"
	default:
		return string(r)
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
