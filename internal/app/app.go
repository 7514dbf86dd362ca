// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/bot"
	"fortuna-bot/internal/bot/filters"
	"fortuna-bot/internal/config"
	"fortuna-bot/internal/db/postgres"
	"fortuna-bot/internal/features/admin"
	"fortuna-bot/internal/features/billing"
	"fortuna-bot/internal/features/game"
	"fortuna-bot/internal/features/players"
	"fortuna-bot/internal/features/referral"
	"fortuna-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Webhook   *billing.WebhookHandler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// Порог выигрыша задаётся конфигом и применяется на каждом старте
	if err := applyThreshold(ctx, pool, cfg.GameWinThreshold); err != nil {
		return nil, fmt.Errorf("ошибка применения порога: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	playerRepo := players.NewRepository(pool)
	billingRepo := billing.NewRepository(pool)
	gameRepo := game.NewRepository(pool)
	referralRepo := referral.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	playerService := players.NewService(playerRepo)
	adminService := admin.NewService(adminRepo, cfg)
	provider := billing.NewProviderClient(
		cfg.ProviderShopID, cfg.ProviderSecretKey, cfg.ProviderAPIURL, cfg.ProviderReturnURL)
	billingService := billing.NewService(billingRepo, provider, adminService, cfg)
	// Уведомитель подключается после сборки бота (SetNotifier ниже)
	gameService := game.NewService(gameRepo, nil)
	referralService := referral.NewService(referralRepo, cfg)

	// === 5. Обработчики ===
	playerHandler := players.NewHandler(playerService, botAPI)
	billingHandler := billing.NewHandler(billingService, botAPI, cfg)
	gameHandler := game.NewHandler(gameService, botAPI)
	adminHandler := admin.NewHandler(adminService, botAPI, cfg)

	// === 6. Фильтры ===
	accessFilter := filters.NewAccessFilter(playerService)

	// === 7. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		playerService, playerHandler,
		billingService, billingHandler,
		gameService, gameHandler,
		referralService,
		adminService, adminHandler,
		accessFilter,
	)
	gameService.SetNotifier(b)

	// === 8. Вебхук провайдера ===
	webhook, err := billing.NewWebhookHandler(billingService, cfg.WebhookTrustedCIDRs, billingHandler.NotifyCredited)
	if err != nil {
		return nil, fmt.Errorf("ошибка настройки вебхука: %w", err)
	}

	// === 9. Планировщик задач ===
	scheduler := jobs.NewScheduler(billingService, billingHandler.NotifyExpired)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		Webhook:   webhook,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.EnsureMigrationTable(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Players},
		{2, migration002Billing},
		{3, migration003Ledger},
		{4, migration004GameState},
		{5, migration005Plays},
		{6, migration006Referrals},
		{7, migration007Admin},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// applyThreshold приводит порог выигрыша в game_state к значению из конфига.
// Счётчик текущего цикла не трогается: если новый порог оказался ниже
// накопленного счётчика, ближайшее списание выигрывает (нестрогое
// сравнение в advanceCycle) и начинает новый цикл с нуля.
func applyThreshold(ctx context.Context, pool *pgxpool.Pool, threshold int) error {
	_, err := pool.Exec(ctx,
		`UPDATE game_state SET threshold = $1, updated_at = NOW() WHERE id = 1 AND threshold <> $1`,
		threshold)
	return err
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Players = `
CREATE TABLE IF NOT EXISTS players (
    id BIGSERIAL PRIMARY KEY,
    tg_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(255),
    first_name VARCHAR(255) NOT NULL,
    tries_paid INTEGER NOT NULL DEFAULT 0,
    tries_bonus INTEGER NOT NULL DEFAULT 0,
    is_admin BOOLEAN DEFAULT FALSE,
    is_banned BOOLEAN DEFAULT FALSE,
    referred_by BIGINT,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_players_tg_id ON players(tg_id);
CREATE INDEX IF NOT EXISTS idx_players_referred_by ON players(referred_by);
`

var migration002Billing = `
CREATE TABLE IF NOT EXISTS payments (
    id BIGSERIAL PRIMARY KEY,
    tx_ref VARCHAR(64) UNIQUE NOT NULL,
    tg_id BIGINT NOT NULL REFERENCES players(tg_id),
    amount BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    credited_tries INTEGER NOT NULL DEFAULT 0,
    provider_tx_id VARCHAR(255),
    created_at TIMESTAMP DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payments_tx_ref ON payments(tx_ref);
CREATE INDEX IF NOT EXISTS idx_payments_status_expires ON payments(status, expires_at);
CREATE TABLE IF NOT EXISTS proofs (
    id BIGSERIAL PRIMARY KEY,
    tg_id BIGINT NOT NULL REFERENCES players(tg_id),
    file_id VARCHAR(255) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    reviewed_by BIGINT,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_proofs_status ON proofs(status);
`

var migration003Ledger = `
CREATE TABLE IF NOT EXISTS tries_ledger (
    id BIGSERIAL PRIMARY KEY,
    tg_id BIGINT NOT NULL REFERENCES players(tg_id),
    delta INTEGER NOT NULL,
    reason VARCHAR(16) NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_tries_ledger_tg_id_reason ON tries_ledger(tg_id, reason);
CREATE INDEX IF NOT EXISTS idx_tries_ledger_created_at ON tries_ledger(created_at DESC);
`

var migration004GameState = `
CREATE TABLE IF NOT EXISTS game_state (
    id BIGINT PRIMARY KEY,
    current_cycle INTEGER NOT NULL DEFAULT 1,
    paid_tries_this_cycle INTEGER NOT NULL DEFAULT 0,
    lifetime_paid_tries BIGINT NOT NULL DEFAULT 0,
    threshold INTEGER NOT NULL,
    updated_at TIMESTAMP DEFAULT NOW()
);
INSERT INTO game_state (id, current_cycle, paid_tries_this_cycle, lifetime_paid_tries, threshold)
VALUES (1, 1, 0, 0, 14600)
ON CONFLICT (id) DO NOTHING;
`

var migration005Plays = `
CREATE TABLE IF NOT EXISTS plays (
    id BIGSERIAL PRIMARY KEY,
    tg_id BIGINT NOT NULL REFERENCES players(tg_id),
    result VARCHAR(8) NOT NULL,
    cycle INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_plays_tg_id_created_at ON plays(tg_id, created_at DESC);
CREATE TABLE IF NOT EXISTS wins (
    id BIGSERIAL PRIMARY KEY,
    play_id BIGINT NOT NULL REFERENCES plays(id),
    tg_id BIGINT NOT NULL,
    code VARCHAR(64) UNIQUE NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_wins_code ON wins(code);
`

var migration006Referrals = `
CREATE TABLE IF NOT EXISTS referrals (
    id BIGSERIAL PRIMARY KEY,
    referrer BIGINT NOT NULL,
    new_user BIGINT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (referrer, new_user)
);
`

var migration007Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(255) UNIQUE,
    authenticated_at TIMESTAMP DEFAULT NOW(),
    expires_at TIMESTAMP,
    last_activity TIMESTAMP DEFAULT NOW(),
    is_active BOOLEAN DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT,
    attempt_time TIMESTAMP DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
`
