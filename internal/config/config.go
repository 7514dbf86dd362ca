// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// ID администраторов: получают уведомления о выигрышах и новых чеках
	AdminIDsRaw string  `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs    []int64 `envconfig:"-"` // заполним вручную

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"fortuna_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Game ---
	// Порог розыгрыша: выигрывает та попытка, на которой общий счётчик
	// цикла достигает этого значения.
	GameWinThreshold int `envconfig:"GAME_WIN_THRESHOLD" default:"14600"`

	// --- Billing ---
	// Цена одной попытки в рублях. Платёж на 500 ₽ при цене 500 даёт ровно 1 попытку.
	BillingTryPrice int64 `envconfig:"BILLING_TRY_PRICE" default:"500"`
	// Сколько попыток даёт одобренный чек ручной оплаты
	BillingProofTries int `envconfig:"BILLING_PROOF_TRIES" default:"1"`
	// Сколько живёт неоплаченный платёж до истечения
	BillingPaymentTTL time.Duration `envconfig:"BILLING_PAYMENT_TTL" default:"30m"`

	// --- Payment provider (ЮKassa) ---
	ProviderShopID    string `envconfig:"PROVIDER_SHOP_ID" required:"true"`
	ProviderSecretKey string `envconfig:"PROVIDER_SECRET_KEY" required:"true"`
	ProviderAPIURL    string `envconfig:"PROVIDER_API_URL" default:"https://api.yookassa.ru/v3"`
	ProviderReturnURL string `envconfig:"PROVIDER_RETURN_URL" required:"true"`
	// Адрес HTTP-сервера для вебхуков провайдера
	WebhookListenAddr string `envconfig:"WEBHOOK_LISTEN_ADDR" default:":8081"`
	// Доверенные подсети провайдера (CSV). Запросы с других адресов отбрасываем.
	WebhookTrustedCIDRsRaw string   `envconfig:"WEBHOOK_TRUSTED_CIDRS" default:"185.71.76.0/27,185.71.77.0/27,77.75.153.0/25,77.75.156.224/28,77.75.154.128/25,2a02:5180::/32"`
	WebhookTrustedCIDRs    []string `envconfig:"-"`

	// --- Referral ---
	// Бонус рефереру за первого приведённого друга (за каждую уникальную пару — один раз)
	ReferralBonusTries int `envconfig:"REFERRAL_BONUS_TRIES" default:"1"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.GameWinThreshold <= 0 {
		return fmt.Errorf("GAME_WIN_THRESHOLD должен быть > 0")
	}
	if c.BillingTryPrice <= 0 {
		return fmt.Errorf("BILLING_TRY_PRICE должен быть > 0")
	}
	if c.BillingProofTries <= 0 {
		return fmt.Errorf("BILLING_PROOF_TRIES должен быть > 0")
	}
	if c.ReferralBonusTries <= 0 {
		return fmt.Errorf("REFERRAL_BONUS_TRIES должен быть > 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("ADMIN_IDS пуст")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids
	cfg.WebhookTrustedCIDRs = parseCSV(cfg.WebhookTrustedCIDRsRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsAdminID проверяет, входит ли пользователь в список администраторов из конфига.
func (c *Config) IsAdminID(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
