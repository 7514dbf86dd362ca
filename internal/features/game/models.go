// Package game реализует розыгрыш: списание попытки, общий счётчик цикла
// и детерминированное определение выигрыша. models.go описывает структуры
// данных для таблиц game_state, plays и wins.
package game

import "time"

// GameState — единственная строка-синглтон (id = 1) с общим счётчиком.
// Это ЕДИНСТВЕННЫЙ источник истины о цикле: никакие счётчики в памяти
// процесса не используются, строка читается-и-пишется только внутри той же
// транзакции, что и списание попытки. Поэтому гонки между параллельными
// игроками сводятся к блокировке одной строки в PostgreSQL.
type GameState struct {
	ID                 int       `db:"id"`
	CurrentCycle       int       `db:"current_cycle"`         // номер текущего цикла, с 1
	PaidTriesThisCycle int       `db:"paid_tries_this_cycle"` // инвариант: 0 <= v < threshold
	LifetimePaidTries  int64     `db:"lifetime_paid_tries"`   // монотонно растёт при начислениях
	Threshold          int       `db:"threshold"`             // порог выигрыша (из конфига)
	UpdatedAt          time.Time `db:"updated_at"`
}

// PlayResult — исход одной игры.
type PlayResult string

const (
	ResultWin  PlayResult = "win"
	ResultLose PlayResult = "lose"
)

// Play — запись одной игры. Одна строка на одну списанную попытку;
// после создания не меняется.
type Play struct {
	ID        int64      `db:"id"`
	TgID      int64      `db:"tg_id"`
	Result    PlayResult `db:"result"`
	Cycle     int        `db:"cycle"` // в каком цикле сыграна
	CreatedAt time.Time  `db:"created_at"`
}

// WinStatus — статус выигрыша: ждём данные победителя или уже оформлен.
type WinStatus string

const (
	WinPendingDetails WinStatus = "pending"   // ждём имя/телефон/адрес
	WinFulfilled      WinStatus = "fulfilled" // приз оформлен
)

// Win — оформление выигрыша. Код уникален за всю жизнь игры и служит
// подтверждением при выдаче приза.
type Win struct {
	ID        int64     `db:"id"`
	PlayID    int64     `db:"play_id"`
	TgID      int64     `db:"tg_id"`
	Code      string    `db:"code"`
	Status    WinStatus `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// Outcome — результат одного вызова PlayOnce.
type Outcome struct {
	Result  PlayResult
	Cycle   int  // цикл, в котором сыграна попытка
	Counter int  // значение счётчика ПОСЛЕ этой попытки (0 сразу после выигрыша)
	Win     *Win // заполнен только при выигрыше
}
