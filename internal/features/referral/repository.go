// Package referral — repository.go выполняет атрибуцию в одной транзакции:
// вставка пары + запись журнала + бонусный счётчик, либо ничего.
package referral

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с таблицей referrals.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий рефералки.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Attribute пытается атрибутировать пару (referrer, new_user).
// ON CONFLICT DO NOTHING опирается на уникальный индекс пары: если пара
// уже есть, RETURNING не вернёт строку, транзакция завершится без
// какого-либо начисления, и вызов станет no-op (granted=false).
// Бонус начисляется в tries_bonus рефереру — та же транзакционная
// дисциплина, что и у платежей: журнал и счётчик меняются вместе.
func (r *Repository) Attribute(ctx context.Context, referrerID, newUserID int64, bonus int) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO referrals (referrer, new_user)
		VALUES ($1, $2)
		ON CONFLICT (referrer, new_user) DO NOTHING
		RETURNING id
	`, referrerID, newUserID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Пара уже атрибутирована — бонус начислен раньше
			return false, nil
		}
		return false, fmt.Errorf("ошибка вставки пары: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO tries_ledger (tg_id, delta, reason) VALUES ($1, $2, 'referral')
	`, referrerID, bonus); err != nil {
		return false, fmt.Errorf("ошибка записи в журнал: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE players SET tries_bonus = tries_bonus + $2, updated_at = NOW() WHERE tg_id = $1
	`, referrerID, bonus); err != nil {
		return false, fmt.Errorf("ошибка начисления бонуса: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("ошибка коммита: %w", err)
	}
	return true, nil
}
