// Package game — handlers.go обрабатывает команды !крутить и !розыгрыш.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/common"
)

// Handler обрабатывает игровые команды.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик игры.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandlePlay обрабатывает команду !крутить — одна попытка.
func (h *Handler) HandlePlay(ctx context.Context, chatID, userID int64) {
	outcome, err := h.service.PlayOnce(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInsufficientTries):
			h.sendMessage(chatID, "❌ Попыток нет. Купи: !купить или пришли чек фотографией")
		case errors.Is(err, common.ErrStorageConflict):
			// Повторять здесь НЕЛЬЗЯ: вызов мог закоммититься.
			// Отправляем игрока сверяться с историей.
			h.sendMessage(chatID, "⏳ Не удалось завершить розыгрыш. НЕ крути ещё раз: сверься с !игры и напиши админу")
		default:
			log.WithError(err).Error("Ошибка розыгрыша")
			h.sendMessage(chatID, "❌ Что-то пошло не так, попробуй позже")
		}
		return
	}

	if outcome.Result == ResultWin {
		h.sendMessage(chatID, fmt.Sprintf(
			"🎉🎉🎉 ВЫИГРЫШ! 🎉🎉🎉\n\nТвой код победителя:\n%s\n\nАдмин свяжется с тобой для оформления приза. Сохрани код!",
			outcome.Win.Code))
		return
	}

	h.sendMessage(chatID, "😔 Не повезло. Следующая попытка может стать выигрышной!")
}

// HandleStatus обрабатывает команду !розыгрыш — информация о текущем цикле.
//
// Формат ответа:
//
//	🎁 Розыгрыш, цикл №3
//	Сыграно в цикле: 1 223 из 14 600
func (h *Handler) HandleStatus(ctx context.Context, chatID int64) {
	state, err := h.service.State(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения состояния игры")
		h.sendMessage(chatID, "❌ Не удалось получить состояние розыгрыша")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"🎁 Розыгрыш, цикл №%d\nСыграно в цикле: %s из %s",
		state.CurrentCycle,
		common.FormatNumber(int64(state.PaidTriesThisCycle)),
		common.FormatNumber(int64(state.Threshold)),
	))
}

// HandleRecentPlays обрабатывает команду !игры — последние игры игрока.
// Это путь сверки после сбоя: игрок видит, списалась ли попытка,
// не рискуя списать вторую.
func (h *Handler) HandleRecentPlays(ctx context.Context, chatID, userID int64) {
	plays, err := h.service.RecentPlays(ctx, userID, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения истории игр")
		h.sendMessage(chatID, "❌ Не удалось получить историю игр")
		return
	}
	if len(plays) == 0 {
		h.sendMessage(chatID, "🎲 Ты ещё не играл. Начни: !крутить")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎲 Последние игры:\n\n")
	for _, p := range plays {
		mark := "😔"
		if p.Result == ResultWin {
			mark = "🎉"
		}
		sb.WriteString(fmt.Sprintf("%s  цикл №%d  %s\n",
			p.CreatedAt.Format("02.01 15:04"), p.Cycle, mark))
	}
	h.sendMessage(chatID, sb.String())
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
