// Package players — repository.go отвечает за все операции с таблицами
// players и tries_ledger в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package players

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fortuna-bot/internal/common"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Ensure добавляет нового игрока в таблицу players.
// На конфликте по tg_id обновляет имя/username и флаг админа:
// ADMIN_IDS меняется в конфиге, и колонка не должна отставать от него.
// Счётчики попыток и бан не трогаются.
func (r *Repository) Ensure(ctx context.Context, tgID int64, username, firstName string, isAdmin bool) error {
	query := `
		INSERT INTO players (tg_id, username, first_name, is_admin)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tg_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    is_admin = EXCLUDED.is_admin,
		    updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, tgID, username, firstName, isAdmin); err != nil {
		return fmt.Errorf("ошибка создания/обновления игрока: %w", err)
	}
	return nil
}

// GetByTgID: если не найден — common.ErrPlayerNotFound.
func (r *Repository) GetByTgID(ctx context.Context, tgID int64) (*Player, error) {
	query := `
		SELECT id, tg_id, username, first_name, tries_paid, tries_bonus,
		       is_admin, is_banned, referred_by, created_at, updated_at
		FROM players
		WHERE tg_id = $1
	`
	var p Player
	err := r.db.QueryRow(ctx, query, tgID).Scan(
		&p.ID, &p.TgID, &p.Username, &p.FirstName, &p.TriesPaid, &p.TriesBonus,
		&p.IsAdmin, &p.IsBanned, &p.ReferredBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tg_id=%d: %w", tgID, common.ErrPlayerNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения игрока (tg_id=%d): %w", tgID, err)
	}
	return &p, nil
}

func (r *Repository) Exists(ctx context.Context, tgID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM players WHERE tg_id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, tgID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки существования: %w", err)
	}
	return exists, nil
}

// SetReferredBy проставляет реферера, только если он ещё не назначен.
// Возвращает true, если назначение произошло именно сейчас.
func (r *Repository) SetReferredBy(ctx context.Context, tgID, referrerID int64) (bool, error) {
	query := `
		UPDATE players
		SET referred_by = $2, updated_at = NOW()
		WHERE tg_id = $1 AND referred_by IS NULL
	`
	tag, err := r.db.Exec(ctx, query, tgID, referrerID)
	if err != nil {
		return false, fmt.Errorf("ошибка назначения реферера: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AvailableTries возвращает доступный баланс попыток игрока.
// Баланс всегда ВЫВОДИТСЯ: tries_paid + tries_bonus минус число списаний
// в журнале. Отдельного изменяемого счётчика «осталось попыток» нет —
// так журнал и счётчики не могут разъехаться.
func (r *Repository) AvailableTries(ctx context.Context, tgID int64) (int, error) {
	query := `
		SELECT p.tries_paid + p.tries_bonus -
		       (SELECT COUNT(*) FROM tries_ledger l WHERE l.tg_id = p.tg_id AND l.reason = 'play')
		FROM players p
		WHERE p.tg_id = $1
	`
	var available int
	err := r.db.QueryRow(ctx, query, tgID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("tg_id=%d: %w", tgID, common.ErrPlayerNotFound)
		}
		return 0, fmt.Errorf("ошибка расчёта баланса: %w", err)
	}
	return available, nil
}

// LedgerHistory возвращает последние N записей журнала попыток игрока.
func (r *Repository) LedgerHistory(ctx context.Context, tgID int64, limit int) ([]*LedgerEntry, error) {
	query := `
		SELECT id, tg_id, delta, reason, created_at
		FROM tries_ledger
		WHERE tg_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, tgID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса журнала: %w", err)
	}
	defer rows.Close()

	var out []*LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.TgID, &e.Delta, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
