package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/features/players"
)

// AccessFilter решает, обслуживать ли сообщение.
// Бот работает в личных сообщениях. Заблокированные игроки не обслуживаются.
type AccessFilter struct {
	playerService *players.Service
}

func NewAccessFilter(playerService *players.Service) *AccessFilter {
	return &AccessFilter{
		playerService: playerService,
	}
}

func (f *AccessFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "AccessFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "AccessFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (service/channel message?)")
		return false
	}
	if message.From.IsBot {
		return false
	}
	if f.playerService == nil {
		log.WithField("component", "AccessFilter").Error("playerService is nil")
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	logger := log.WithFields(log.Fields{
		"component": "AccessFilter",
		"chat_id":   chatID,
		"chat_type": message.Chat.Type,
		"user_id":   userID,
	})

	// 1) Обслуживаем только личку
	if !message.Chat.IsPrivate() {
		logger.Debug("deny: not a private chat")
		return false
	}

	// 2) Заблокированный игрок не обслуживается.
	// Незнакомый пользователь проходит: EnsurePlayer создаст запись дальше по цепочке.
	player, err := f.playerService.GetByTgID(ctx, userID)
	if err == nil && player.IsBanned {
		logger.Info("deny: banned player")
		return false
	}

	logger.Debug("allow: private chat")
	return true
}
