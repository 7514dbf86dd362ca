// Package billing — repository.go выполняет все операции с таблицами
// payments и proofs. Начисление попыток — многотабличная запись
// (payments/proofs + tries_ledger + players + game_state), поэтому
// каждая операция выполняется в одной транзакции БД: либо всё, либо ничего.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fortuna-bot/internal/common"
)

// Repository предоставляет методы для работы с платежами и чеками.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий биллинга.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreatePayment сохраняет новый платёж в статусе pending.
// Вызывается ДО редиректа пользователя на оплату: провайдер получает
// уже существующий tx_ref в метаданных.
func (r *Repository) CreatePayment(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (tx_ref, tg_id, amount, status, expires_at)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, p.TxRef, p.TgID, p.Amount, p.ExpiresAt).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания платежа: %w", err)
	}
	p.Status = PaymentPending
	return nil
}

// PaymentByTxRef: если не найден — common.ErrUnknownReference.
func (r *Repository) PaymentByTxRef(ctx context.Context, txRef string) (*Payment, error) {
	query := `
		SELECT id, tx_ref, tg_id, amount, status, credited_tries,
		       COALESCE(provider_tx_id, ''), created_at, expires_at
		FROM payments
		WHERE tx_ref = $1
	`
	var p Payment
	err := r.db.QueryRow(ctx, query, txRef).Scan(
		&p.ID, &p.TxRef, &p.TgID, &p.Amount, &p.Status, &p.CreditedTries,
		&p.ProviderTxID, &p.CreatedAt, &p.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tx_ref=%s: %w", txRef, common.ErrUnknownReference)
		}
		return nil, fmt.Errorf("ошибка чтения платежа (tx_ref=%s): %w", txRef, err)
	}
	return &p, nil
}

// ApplyPaymentOutcome выполняет условный переход платежа pending → outcome
// и, при успехе, начисляет попытки — всё в одной транзакции.
//
// Идемпотентность: строка платежа блокируется FOR UPDATE; если статус уже
// терминальный, транзакция ничего не меняет и возвращает ранее записанный
// результат (applied=false). Провайдеры доставляют вебхуки at-least-once,
// поэтому повторный вызов обязан быть no-op.
//
// При outcome=successful в той же транзакции:
//   - credited_tries = amount / unitPrice записывается на платёж;
//   - в tries_ledger добавляется запись +credited с причиной payment;
//   - players.tries_paid увеличивается на credited;
//   - game_state.lifetime_paid_tries увеличивается на credited
//     (счётчик цикла НЕ трогаем — он движется только при списании).
//
// Любая ошибка внутри откатывает всё: платёж остаётся pending,
// вызов можно повторить целиком.
func (r *Repository) ApplyPaymentOutcome(ctx context.Context, txRef, providerTxID string, outcome PaymentStatus, unitPrice int64) (*Payment, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем строку платежа: два конкурентных вебхука сериализуются здесь
	var p Payment
	err = tx.QueryRow(ctx, `
		SELECT id, tx_ref, tg_id, amount, status, credited_tries,
		       COALESCE(provider_tx_id, ''), created_at, expires_at
		FROM payments
		WHERE tx_ref = $1
		FOR UPDATE
	`, txRef).Scan(
		&p.ID, &p.TxRef, &p.TgID, &p.Amount, &p.Status, &p.CreditedTries,
		&p.ProviderTxID, &p.CreatedAt, &p.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("tx_ref=%s: %w", txRef, common.ErrUnknownReference)
		}
		return nil, false, fmt.Errorf("ошибка чтения платежа: %w", err)
	}

	// Уже терминальный — возвращаем записанный результат, ничего не меняя
	if p.Status.Terminal() {
		return &p, false, nil
	}

	credited := 0
	if outcome == PaymentSuccessful {
		credited, err = TriesForAmount(p.Amount, unitPrice)
		if err != nil {
			return nil, false, fmt.Errorf("платёж %s: %w", txRef, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = $2, provider_tx_id = $3, credited_tries = $4
		WHERE id = $1
	`, p.ID, outcome, providerTxID, credited); err != nil {
		return nil, false, fmt.Errorf("ошибка обновления платежа: %w", err)
	}

	if outcome == PaymentSuccessful {
		if err := creditTries(ctx, tx, p.TgID, credited, "payment"); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("ошибка коммита: %w", err)
	}

	p.Status = outcome
	p.ProviderTxID = providerTxID
	p.CreditedTries = credited
	return &p, true, nil
}

// ExpirePayment выполняет условный переход pending → expired.
// Та же дисциплина условного обновления, что и у подтверждения:
// опоздавший успешный вебхук и свипер не могут обогнать друг друга —
// выигрывает тот, кто первым увидел pending.
func (r *Repository) ExpirePayment(ctx context.Context, txRef string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET status = 'expired' WHERE tx_ref = $1 AND status = 'pending'
	`, txRef)
	if err != nil {
		return false, fmt.Errorf("ошибка погашения платежа: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireStale погашает все pending-платежи с истёкшим expires_at.
// Возвращает список погашенных для уведомления пользователей.
func (r *Repository) ExpireStale(ctx context.Context) ([]ExpiredPayment, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE payments
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at < NOW()
		RETURNING tx_ref, tg_id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка погашения просроченных платежей: %w", err)
	}
	defer rows.Close()

	var out []ExpiredPayment
	for rows.Next() {
		var e ExpiredPayment
		if err := rows.Scan(&e.TxRef, &e.TgID); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// CreateProof сохраняет новый чек ручной оплаты в статусе pending.
func (r *Repository) CreateProof(ctx context.Context, p *Proof) error {
	query := `
		INSERT INTO proofs (tg_id, file_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, p.TgID, p.FileID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания чека: %w", err)
	}
	p.Status = ProofPending
	return nil
}

// PendingProofs возвращает нерассмотренные чеки (старые первыми).
func (r *Repository) PendingProofs(ctx context.Context, limit int) ([]*Proof, error) {
	query := `
		SELECT id, tg_id, file_id, status, reviewed_by, created_at, updated_at
		FROM proofs
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса чеков: %w", err)
	}
	defer rows.Close()

	var out []*Proof
	for rows.Next() {
		var p Proof
		if err := rows.Scan(&p.ID, &p.TgID, &p.FileID, &p.Status, &p.ReviewedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// ApplyProofOutcome выполняет условный переход чека pending → outcome.
// Контракт идентичен ApplyPaymentOutcome: блокировка строки, терминальный
// статус — no-op, начисление (credited попыток, причина proof) только
// при переходе в approved и только один раз. Отклонение журнал не трогает.
func (r *Repository) ApplyProofOutcome(ctx context.Context, proofID, reviewer int64, outcome ProofStatus, credited int) (*Proof, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var p Proof
	err = tx.QueryRow(ctx, `
		SELECT id, tg_id, file_id, status, reviewed_by, created_at, updated_at
		FROM proofs
		WHERE id = $1
		FOR UPDATE
	`, proofID).Scan(&p.ID, &p.TgID, &p.FileID, &p.Status, &p.ReviewedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("proof_id=%d: %w", proofID, common.ErrUnknownReference)
		}
		return nil, false, fmt.Errorf("ошибка чтения чека: %w", err)
	}

	if p.Status.Terminal() {
		return &p, false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE proofs SET status = $2, reviewed_by = $3, updated_at = NOW() WHERE id = $1
	`, p.ID, outcome, reviewer); err != nil {
		return nil, false, fmt.Errorf("ошибка обновления чека: %w", err)
	}

	if outcome == ProofApproved {
		if err := creditTries(ctx, tx, p.TgID, credited, "proof"); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("ошибка коммита: %w", err)
	}

	p.Status = outcome
	p.ReviewedBy = &reviewer
	return &p, true, nil
}

// creditTries записывает начисление в рамках уже открытой транзакции:
// запись журнала, счётчик игрока и общий счётчик оплаченных попыток.
func creditTries(ctx context.Context, tx pgx.Tx, tgID int64, credited int, reason string) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO tries_ledger (tg_id, delta, reason) VALUES ($1, $2, $3)
	`, tgID, credited, reason); err != nil {
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE players SET tries_paid = tries_paid + $2, updated_at = NOW() WHERE tg_id = $1
	`, tgID, credited)
	if err != nil {
		return fmt.Errorf("ошибка начисления попыток: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tg_id=%d: %w", tgID, common.ErrPlayerNotFound)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE game_state SET lifetime_paid_tries = lifetime_paid_tries + $1, updated_at = NOW() WHERE id = 1
	`, credited); err != nil {
		return fmt.Errorf("ошибка обновления lifetime-счётчика: %w", err)
	}
	return nil
}
