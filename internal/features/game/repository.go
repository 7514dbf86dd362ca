// Package game — repository.go выполняет все операции с таблицами
// game_state, plays и wins. Списание попытки — единственная операция,
// двигающая общий счётчик, и выполняется целиком в одной транзакции.
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fortuna-bot/internal/common"
)

// Repository предоставляет методы для работы с состоянием игры.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий игры.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// State возвращает текущее состояние игры (строка-синглтон).
func (r *Repository) State(ctx context.Context) (*GameState, error) {
	query := `
		SELECT id, current_cycle, paid_tries_this_cycle, lifetime_paid_tries, threshold, updated_at
		FROM game_state
		WHERE id = 1
	`
	var s GameState
	err := r.db.QueryRow(ctx, query).Scan(
		&s.ID, &s.CurrentCycle, &s.PaidTriesThisCycle, &s.LifetimePaidTries, &s.Threshold, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения состояния игры: %w", err)
	}
	return &s, nil
}

// PlayOnce списывает ровно одну попытку и определяет исход.
// winCode — заранее сгенерированный код победителя; используется, только
// если эта попытка выиграла.
//
// Всё в одной транзакции:
//  1. Строка игрока блокируется FOR UPDATE и проверяется выведенный баланс.
//     При нуле — откат без каких-либо изменений (ErrInsufficientTries).
//  2. В журнал пишется списание (-1, причина play).
//  3. Счётчик цикла увеличивается UPDATE ... RETURNING — блокировка
//     строки-синглтона и есть глобальная точка сериализации: из двух
//     конкурентных игроков порог пересекает ровно один.
//  4. Достигнут порог — выигрыш: счётчик сбрасывается в 0, цикл +1.
//  5. Пишется строка plays (и wins при выигрыше).
//
// Любая ошибка до коммита откатывает всё; состояние как будто вызова не было.
func (r *Repository) PlayOnce(ctx context.Context, tgID int64, winCode string) (*Outcome, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем игрока: два параллельных "!крутить" одного игрока
	// сериализуются здесь, второй увидит уже уменьшенный баланс
	var paid, bonus int
	err = tx.QueryRow(ctx, `
		SELECT tries_paid, tries_bonus FROM players WHERE tg_id = $1 FOR UPDATE
	`, tgID).Scan(&paid, &bonus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tg_id=%d: %w", tgID, common.ErrPlayerNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения игрока: %w", err)
	}

	var consumed int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM tries_ledger WHERE tg_id = $1 AND reason = 'play'
	`, tgID).Scan(&consumed)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта списаний: %w", err)
	}

	if paid+bonus-consumed <= 0 {
		return nil, common.ErrInsufficientTries
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO tries_ledger (tg_id, delta, reason) VALUES ($1, -1, 'play')
	`, tgID); err != nil {
		return nil, fmt.Errorf("ошибка записи списания: %w", err)
	}

	// Глобальная точка сериализации: UPDATE берёт блокировку строки,
	// конкуренты ждут коммита и видят уже обновлённый счётчик
	var counter, threshold, cycle int
	err = tx.QueryRow(ctx, `
		UPDATE game_state
		SET paid_tries_this_cycle = paid_tries_this_cycle + 1, updated_at = NOW()
		WHERE id = 1
		RETURNING paid_tries_this_cycle, threshold, current_cycle
	`).Scan(&counter, &threshold, &cycle)
	if err != nil {
		return nil, fmt.Errorf("ошибка продвижения счётчика: %w", err)
	}

	step := advanceCycle(counter, threshold)
	if step.NextCycle {
		if _, err := tx.Exec(ctx, `
			UPDATE game_state
			SET paid_tries_this_cycle = 0, current_cycle = current_cycle + 1, updated_at = NOW()
			WHERE id = 1
		`); err != nil {
			return nil, fmt.Errorf("ошибка сброса цикла: %w", err)
		}
	}

	var playID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO plays (tg_id, result, cycle) VALUES ($1, $2, $3) RETURNING id
	`, tgID, step.Result, cycle).Scan(&playID)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи игры: %w", err)
	}

	outcome := &Outcome{Result: step.Result, Cycle: cycle, Counter: step.NextCounter}

	if step.Result == ResultWin {
		var win Win
		err = tx.QueryRow(ctx, `
			INSERT INTO wins (play_id, tg_id, code, status) VALUES ($1, $2, $3, 'pending')
			RETURNING id, play_id, tg_id, code, status, created_at
		`, playID, tgID, winCode).Scan(&win.ID, &win.PlayID, &win.TgID, &win.Code, &win.Status, &win.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка записи выигрыша: %w", err)
		}
		outcome.Win = &win
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}
	return outcome, nil
}

// RecentPlays возвращает последние игры игрока.
// Это путь сверки для вызывающих, потерявших ответ PlayOnce: повторять
// вызов нельзя (спишется вторая попытка), сверяться с историей — можно.
func (r *Repository) RecentPlays(ctx context.Context, tgID int64, limit int) ([]*Play, error) {
	query := `
		SELECT id, tg_id, result, cycle, created_at
		FROM plays
		WHERE tg_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, tgID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса игр: %w", err)
	}
	defer rows.Close()

	var out []*Play
	for rows.Next() {
		var p Play
		if err := rows.Scan(&p.ID, &p.TgID, &p.Result, &p.Cycle, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// MarkWinFulfilled помечает выигрыш оформленным (данные победителя получены).
func (r *Repository) MarkWinFulfilled(ctx context.Context, code string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE wins SET status = 'fulfilled' WHERE code = $1 AND status = 'pending'
	`, code)
	if err != nil {
		return false, fmt.Errorf("ошибка оформления выигрыша: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
