// Package billing — handlers.go обрабатывает команды:
// !купить (платёжная ссылка), фото-чек, !чеки, !одобрить, !отклонить.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/common"
	"fortuna-bot/internal/config"
)

// Handler обрабатывает команды биллинга.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
	cfg     *config.Config
}

// NewHandler создаёт обработчик биллинга.
func NewHandler(service *Service, bot *tgbotapi.BotAPI, cfg *config.Config) *Handler {
	return &Handler{service: service, bot: bot, cfg: cfg}
}

// HandleBuy обрабатывает команду !купить [сумма].
// Без аргумента покупается одна попытка по текущей цене.
//
// Формат ответа:
//
//	💳 Счёт на 500 ₽ (1 попытка)
//	Оплати по ссылке: https://...
func (h *Handler) HandleBuy(ctx context.Context, chatID, userID int64, args []string) {
	amount := h.cfg.BillingTryPrice
	if len(args) > 0 {
		parsed, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			h.sendMessage(chatID, "❌ Сумма должна быть числом: !купить 500")
			return
		}
		amount = parsed
	}

	checkout, err := h.service.CreateCheckout(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, common.ErrInvalidAmount) {
			h.sendMessage(chatID, fmt.Sprintf(
				"❌ Сумма должна быть кратна цене попытки (%s)",
				common.FormatRubles(h.cfg.BillingTryPrice)))
			return
		}
		log.WithError(err).Error("Ошибка создания платежа")
		h.sendMessage(chatID, "❌ Не удалось создать счёт, попробуй позже")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"💳 Счёт на %s (%s)\nОплати по ссылке: %s\n\nСчёт действует %d минут.",
		common.FormatRubles(checkout.Amount),
		common.FormatTries(checkout.Tries),
		checkout.ConfirmationURL,
		int(h.cfg.BillingPaymentTTL.Minutes()),
	))
}

// HandleProofPhoto обрабатывает присланное фото чека ручной оплаты.
// file_id фотографии сохраняется как есть — разглядывать чек будет админ.
func (h *Handler) HandleProofPhoto(ctx context.Context, chatID, userID int64, fileID string) {
	proof, err := h.service.SubmitProof(ctx, userID, fileID)
	if err != nil {
		log.WithError(err).Error("Ошибка сохранения чека")
		h.sendMessage(chatID, "❌ Не удалось сохранить чек, попробуй позже")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"🧾 Чек №%d принят на рассмотрение. Попытки начислятся после проверки.", proof.ID))

	// Сообщаем админам о новом чеке
	for _, adminID := range h.cfg.AdminIDs {
		msg := tgbotapi.NewPhoto(adminID, tgbotapi.FileID(fileID))
		msg.Caption = fmt.Sprintf("🧾 Новый чек №%d от игрока %d\n!одобрить %d / !отклонить %d",
			proof.ID, userID, proof.ID, proof.ID)
		if _, err := h.bot.Send(msg); err != nil {
			log.WithError(err).WithField("admin_id", adminID).Debug("Не удалось уведомить админа о чеке")
		}
	}
}

// HandleListProofs обрабатывает команду !чеки — список нерассмотренных чеков.
func (h *Handler) HandleListProofs(ctx context.Context, chatID, userID int64) {
	proofs, err := h.service.PendingProofs(ctx, userID)
	if err != nil {
		h.replyReviewError(chatID, err)
		return
	}
	if len(proofs) == 0 {
		h.sendMessage(chatID, "✅ Нерассмотренных чеков нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("🧾 Чеки на рассмотрении:\n\n")
	for _, p := range proofs {
		sb.WriteString(fmt.Sprintf("№%d — игрок %d, прислан %s\n",
			p.ID, p.TgID, p.CreatedAt.Format("02.01 15:04")))
	}
	sb.WriteString("\n!одобрить <номер> или !отклонить <номер>")
	h.sendMessage(chatID, sb.String())
}

// HandleApproveProof обрабатывает команду !одобрить <id>.
func (h *Handler) HandleApproveProof(ctx context.Context, chatID, userID int64, args []string) {
	proofID, ok := h.parseProofID(chatID, args)
	if !ok {
		return
	}

	proof, applied, err := h.service.ApproveProof(ctx, proofID, userID)
	if err != nil {
		h.replyReviewError(chatID, err)
		return
	}
	if !applied {
		h.sendMessage(chatID, fmt.Sprintf("Чек №%d уже рассмотрен: %s", proofID, proof.Status))
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Чек №%d одобрен, начислено: %s",
		proofID, common.FormatTries(h.cfg.BillingProofTries)))
	h.notifyPlayer(proof.TgID, fmt.Sprintf("✅ Твой чек №%d одобрен! Начислено: %s",
		proofID, common.FormatTries(h.cfg.BillingProofTries)))
}

// HandleRejectProof обрабатывает команду !отклонить <id>.
func (h *Handler) HandleRejectProof(ctx context.Context, chatID, userID int64, args []string) {
	proofID, ok := h.parseProofID(chatID, args)
	if !ok {
		return
	}

	proof, applied, err := h.service.RejectProof(ctx, proofID, userID)
	if err != nil {
		h.replyReviewError(chatID, err)
		return
	}
	if !applied {
		h.sendMessage(chatID, fmt.Sprintf("Чек №%d уже рассмотрен: %s", proofID, proof.Status))
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("🚫 Чек №%d отклонён", proofID))
	h.notifyPlayer(proof.TgID, fmt.Sprintf("🚫 Твой чек №%d отклонён. Если это ошибка — напиши админу.", proofID))
}

// NotifyCredited шлёт игроку сообщение о зачислении оплаченных попыток.
// Вызывается вебхуком после первого (и единственного) применения платежа.
func (h *Handler) NotifyCredited(tgID int64, tries int) {
	h.notifyPlayer(tgID, fmt.Sprintf("✅ Оплата получена! Начислено: %s\nКрути: !крутить",
		common.FormatTries(tries)))
}

// NotifyExpired шлёт игроку сообщение о просроченном счёте. Для свипера.
func (h *Handler) NotifyExpired(tgID int64) {
	h.notifyPlayer(tgID, "⌛ Счёт не был оплачен вовремя и отменён. Создай новый: !купить")
}

func (h *Handler) parseProofID(chatID int64, args []string) (int64, bool) {
	if len(args) == 0 {
		h.sendMessage(chatID, "❌ Укажи номер чека: !одобрить 12")
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Номер чека должен быть числом")
		return 0, false
	}
	return id, true
}

func (h *Handler) replyReviewError(chatID int64, err error) {
	switch {
	case errors.Is(err, common.ErrNotAdmin):
		h.sendMessage(chatID, "❌ Команда доступна только администраторам после /login")
	case errors.Is(err, common.ErrUnknownReference):
		h.sendMessage(chatID, "❌ Чек с таким номером не найден")
	case errors.Is(err, common.ErrStorageConflict):
		h.sendMessage(chatID, "⏳ Конфликт транзакций, повтори команду")
	default:
		log.WithError(err).Error("Ошибка рассмотрения чека")
		h.sendMessage(chatID, "❌ Что-то пошло не так, попробуй ещё раз")
	}
}

func (h *Handler) notifyPlayer(tgID int64, text string) {
	msg := tgbotapi.NewMessage(tgID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("tg_id", tgID).Debug("Не удалось отправить сообщение игроку")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
