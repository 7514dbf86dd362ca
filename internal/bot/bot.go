// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go принимает апдейты, применяет фильтры и маршрутизирует команды.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/bot/filters"
	"fortuna-bot/internal/bot/middleware"
	"fortuna-bot/internal/common"
	"fortuna-bot/internal/config"
	"fortuna-bot/internal/features/admin"
	"fortuna-bot/internal/features/billing"
	"fortuna-bot/internal/features/game"
	"fortuna-bot/internal/features/players"
	"fortuna-bot/internal/features/referral"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	accessFilter *filters.AccessFilter
	rateLimiter  *middleware.RateLimiter

	playerHandler  *players.Handler
	billingHandler *billing.Handler
	gameHandler    *game.Handler
	adminHandler   *admin.Handler

	playerService   *players.Service
	billingService  *billing.Service
	gameService     *game.Service
	referralService *referral.Service
	adminService    *admin.Service

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	playerService *players.Service,
	playerHandler *players.Handler,
	billingService *billing.Service,
	billingHandler *billing.Handler,
	gameService *game.Service,
	gameHandler *game.Handler,
	referralService *referral.Service,
	adminService *admin.Service,
	adminHandler *admin.Handler,
	accessFilter *filters.AccessFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:             api,
		cfg:             cfg,
		accessFilter:    accessFilter,
		rateLimiter:     middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		playerHandler:   playerHandler,
		billingHandler:  billingHandler,
		gameHandler:     gameHandler,
		adminHandler:    adminHandler,
		playerService:   playerService,
		billingService:  billingService,
		gameService:     gameService,
		referralService: referralService,
		adminService:    adminService,
		parser:          NewCommandParser(),
		inflight:        make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	if update.Message == nil {
		return
	}
	message := update.Message

	// Логируем входящее
	middleware.LogMessage(message)

	// Доступ: только личка, без заблокированных
	if !b.accessFilter.CheckAccess(ctx, message) {
		return
	}

	// Rate limiting
	if message.From != nil && !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// EnsurePlayer — ошибки нельзя игнорировать, иначе потом будет "оно не работает"
	if err := b.playerService.EnsurePlayer(ctx, userID,
		message.From.UserName, message.From.FirstName, b.cfg.IsAdminID(userID),
	); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("EnsurePlayer failed")
	}

	// Фотография без текста — это чек об оплате
	if len(message.Photo) > 0 {
		fileID := largestPhotoFileID(message.Photo)
		b.billingHandler.HandleProofPhoto(ctx, chatID, userID, fileID)
		return
	}

	if message.Text == "" {
		return
	}

	// Парсим команду
	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	log.WithFields(log.Fields{
		"isCommand": isCommand,
		"cmd":       cmd,
		"args":      args,
	}).Debug("parsed command")

	if isCommand {
		b.routeCommand(ctx, chatID, userID, message.Chat.IsPrivate(), cmd, args)
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, isPrivate bool, cmd string, args []string) {
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")
	switch cmd {
	case "start":
		b.handleStart(ctx, chatID, userID, args)

	case "help", "помощь":
		b.sendHelp(chatID)

	case "купить":
		b.billingHandler.HandleBuy(ctx, chatID, userID, args)

	case "крутить":
		b.gameHandler.HandlePlay(ctx, chatID, userID)

	case "баланс":
		b.playerHandler.HandleBalance(ctx, chatID, userID)

	case "история":
		b.playerHandler.HandleHistory(ctx, chatID, userID)

	case "игры":
		b.gameHandler.HandleRecentPlays(ctx, chatID, userID)

	case "розыгрыш":
		b.gameHandler.HandleStatus(ctx, chatID)

	case "друг":
		b.handleReferralLink(chatID, userID)

	case "login":
		b.adminHandler.HandleLogin(ctx, chatID, userID, isPrivate, strings.Join(args, " "))

	case "logout":
		b.adminHandler.HandleLogout(ctx, chatID, userID)

	case "чеки":
		b.billingHandler.HandleListProofs(ctx, chatID, userID)

	case "одобрить":
		b.billingHandler.HandleApproveProof(ctx, chatID, userID, args)

	case "отклонить":
		b.billingHandler.HandleRejectProof(ctx, chatID, userID, args)

	case "выдан":
		b.handleFulfillWin(ctx, chatID, userID, args)
	}
}

// handleFulfillWin обрабатывает !выдан <код> — приз оформлен и выдан.
func (b *Bot) handleFulfillWin(ctx context.Context, chatID, userID int64, args []string) {
	if !b.adminService.IsAuthorized(ctx, userID) {
		b.sendMessage(chatID, "❌ Команда доступна только администраторам после /login")
		return
	}
	if len(args) == 0 {
		b.sendMessage(chatID, "Использование: !выдан <код победителя>")
		return
	}

	fulfilled, err := b.gameService.FulfillWin(ctx, args[0])
	if err != nil {
		log.WithError(err).Error("Ошибка оформления выигрыша")
		b.sendMessage(chatID, "❌ Не удалось оформить выигрыш")
		return
	}
	if !fulfilled {
		b.sendMessage(chatID, "❌ Код не найден или приз уже оформлен")
		return
	}
	b.sendMessage(chatID, "🏆 Выигрыш отмечен как выданный")
}

// handleStart обрабатывает /start, в том числе с реферальной меткой
// вида /start ref_123456789.
func (b *Bot) handleStart(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) > 0 && strings.HasPrefix(args[0], "ref_") {
		b.attributeReferral(ctx, userID, strings.TrimPrefix(args[0], "ref_"))
	}
	b.sendHelp(chatID)
}

// attributeReferral привязывает нового игрока к пригласившему и начисляет бонус.
// Любой сбой здесь не должен ломать /start, поэтому только логируем.
func (b *Bot) attributeReferral(ctx context.Context, userID int64, rawReferrer string) {
	referrerID, err := strconv.ParseInt(rawReferrer, 10, 64)
	if err != nil || referrerID <= 0 {
		log.WithField("raw", rawReferrer).Debug("некорректная реферальная метка")
		return
	}

	// Метка должна указывать на известного игрока
	known, err := b.playerService.IsMember(ctx, referrerID)
	if err != nil || !known {
		return
	}

	attached, err := b.playerService.AttachReferrer(ctx, userID, referrerID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("AttachReferrer failed")
		return
	}
	if !attached {
		// Пригласивший неизвестен или уже привязан другой — бонуса нет
		return
	}

	granted, err := b.referralService.Attribute(ctx, referrerID, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("начисление реферального бонуса не удалось")
		return
	}
	if granted {
		b.SendMessageToUser(referrerID, fmt.Sprintf(
			"🎁 По твоей ссылке пришёл новый игрок! Начислено: %s",
			common.FormatTries(b.cfg.ReferralBonusTries)))
	}
}

// handleReferralLink отправляет игроку его персональную ссылку.
func (b *Bot) handleReferralLink(chatID, userID int64) {
	b.sendMessage(chatID, fmt.Sprintf(
		"👥 Приглашай друзей и получай бонусные попытки!\n\nТвоя ссылка:\nhttps://t.me/%s?start=ref_%d",
		b.api.Self.UserName, userID))
}

func (b *Bot) sendHelp(chatID int64) {
	b.sendMessage(chatID,
		"🎰 Испытай удачу!\n\n"+
			"!купить [сумма] — купить попытки\n"+
			"!крутить — потратить попытку\n"+
			"!баланс — доступные попытки\n"+
			"!история — последние операции\n"+
			"!игры — последние игры\n"+
			"!розыгрыш — состояние текущего цикла\n"+
			"!друг — твоя реферальная ссылка\n\n"+
			"Оплатил переводом? Пришли фото чека, админ проверит и начислит попытку.")
}

// NotifyWin сообщает админам о выигрыше (вызывается игровым сервисом после коммита).
func (b *Bot) NotifyWin(tgID int64, code string) {
	name := fmt.Sprintf("id %d", tgID)
	if player, err := b.playerService.GetByTgID(context.Background(), tgID); err == nil {
		name = fmt.Sprintf("%s (id %d)", player.DisplayName(), tgID)
	}
	text := fmt.Sprintf("🏆 ВЫИГРЫШ!\nИгрок: %s\nКод победителя: %s\nПосле выдачи приза: !выдан %s", name, code, code)
	for _, adminID := range b.cfg.AdminIDs {
		b.SendMessageToUser(adminID, text)
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendMessageToUser отправляет сообщение пользователю (для уведомлений).
func (b *Bot) SendMessageToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
	}
}

// largestPhotoFileID возвращает file_id самого крупного варианта фотографии.
// Telegram присылает варианты от меньшего к большему.
func largestPhotoFileID(sizes []tgbotapi.PhotoSize) string {
	return sizes[len(sizes)-1].FileID
}

// CommandParser парсит русские команды с префиксами ! . /
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	text = strings.TrimSpace(text)
	parts := strings.Fields(text)

	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	// /start@fortuna_bot → start
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
