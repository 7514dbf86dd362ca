// Package players управляет игроками: регистрацией, счётчиками попыток
// и журналом начислений. models.go описывает структуры данных для таблиц
// players и tries_ledger.
package players

import "time"

// Player представляет игрока в базе данных.
// Каждый пользователь, написавший боту, автоматически создаётся в этой таблице.
// Запись никогда не удаляется; счётчики попыток меняются только вместе
// с записью в журнал tries_ledger.
type Player struct {
	ID         int64     `db:"id"`          // Автоинкрементный ID записи в БД
	TgID       int64     `db:"tg_id"`       // Telegram user ID (уникальный)
	Username   string    `db:"username"`    // @username (может быть пустым)
	FirstName  string    `db:"first_name"`  // Имя пользователя
	TriesPaid  int       `db:"tries_paid"`  // Купленные попытки (платежи и одобренные чеки)
	TriesBonus int       `db:"tries_bonus"` // Бонусные попытки (рефералка)
	IsAdmin    bool      `db:"is_admin"`    // Флаг администратора
	IsBanned   bool      `db:"is_banned"`   // Флаг бана
	ReferredBy *int64    `db:"referred_by"` // Кто привёл (tg_id реферера, может быть nil)
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// DisplayName возвращает отображаемое имя игрока.
// Если есть @username — возвращает его, иначе — имя.
func (p *Player) DisplayName() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	return p.FirstName
}

// Reason — тег причины записи в журнале попыток.
type Reason string

// Причины изменения баланса попыток. Положительные дельты несут
// теги начисления, отрицательные — только ReasonPlay.
const (
	ReasonPayment  Reason = "payment"  // подтверждённый платёж провайдера
	ReasonProof    Reason = "proof"    // одобренный чек ручной оплаты
	ReasonReferral Reason = "referral" // бонус за приведённого друга
	ReasonPlay     Reason = "play"     // списание за одну игру
)

// LedgerEntry — одна запись журнала попыток. Журнал append-only:
// записи никогда не обновляются и не удаляются, доступный баланс
// всегда выводится из него, а не хранится отдельно.
type LedgerEntry struct {
	ID        int64     `db:"id"`
	TgID      int64     `db:"tg_id"`
	Delta     int       `db:"delta"`  // положительная = начисление, отрицательная = списание
	Reason    Reason    `db:"reason"` // payment | proof | referral | play
	CreatedAt time.Time `db:"created_at"`
}
