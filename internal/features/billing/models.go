// Package billing превращает подтверждённые платежи и одобренные чеки
// в начисленные попытки — ровно один раз, сколько бы раз провайдер
// ни доставил подтверждение. models.go описывает структуры данных
// для таблиц payments и proofs.
package billing

import "time"

// PaymentStatus — статус платежа. Переходы монотонные: из pending можно
// уйти ровно один раз, терминальные статусы не меняются никогда.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentSuccessful PaymentStatus = "successful"
	PaymentFailed     PaymentStatus = "failed"
	PaymentExpired    PaymentStatus = "expired"
)

// Terminal возвращает true, если статус уже не изменится.
func (s PaymentStatus) Terminal() bool {
	return s != PaymentPending
}

// Payment — платёж через провайдера.
// tx_ref назначается движком при создании и не меняется; именно статус
// платежа служит ключом дедупликации повторных вебхуков — отдельная
// таблица дедупликации не нужна.
type Payment struct {
	ID            int64         `db:"id"`
	TxRef         string        `db:"tx_ref"`         // уникальная ссылка, наш ключ корреляции с провайдером
	TgID          int64         `db:"tg_id"`          // кто платил
	Amount        int64         `db:"amount"`         // сумма в рублях
	Status        PaymentStatus `db:"status"`         // pending | successful | failed | expired
	CreditedTries int           `db:"credited_tries"` // 0, пока платёж не успешен
	ProviderTxID  string        `db:"provider_tx_id"` // ID платежа на стороне провайдера (после подтверждения)
	CreatedAt     time.Time     `db:"created_at"`
	ExpiresAt     time.Time     `db:"expires_at"`
}

// ProofStatus — статус чека ручной оплаты. Тоже монотонный.
type ProofStatus string

const (
	ProofPending  ProofStatus = "pending"
	ProofApproved ProofStatus = "approved"
	ProofRejected ProofStatus = "rejected"
)

// Terminal возвращает true, если чек уже рассмотрен.
func (s ProofStatus) Terminal() bool {
	return s != ProofPending
}

// Proof — чек ручной оплаты (фото перевода). file_id — непрозрачная
// ссылка Telegram на файл, ядро его не интерпретирует.
// Рассмотрение чека идёт по тому же контракту, что и подтверждение
// платежа: условный переход pending → approved/rejected, начисление
// ровно один раз.
type Proof struct {
	ID         int64       `db:"id"`
	TgID       int64       `db:"tg_id"`
	FileID     string      `db:"file_id"`
	Status     ProofStatus `db:"status"`
	ReviewedBy *int64      `db:"reviewed_by"` // tg_id администратора, принявшего решение
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

// Checkout — результат создания платёжной ссылки.
type Checkout struct {
	TxRef           string // наша ссылка платежа
	ConfirmationURL string // куда отправить пользователя платить
	Amount          int64
	Tries           int // сколько попыток будет начислено после оплаты
}

// ExpiredPayment — платёж, погашенный свипером по таймауту.
type ExpiredPayment struct {
	TxRef string
	TgID  int64
}
