// Package postgres — pgerr.go классифицирует ошибки PostgreSQL по кодам SQLSTATE.
// Нужен, чтобы сервисы отличали транзиентные конфликты (можно повторить)
// от нарушений уникальности (идемпотентный no-op) и от настоящих сбоев.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Коды SQLSTATE, которые нас интересуют.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// IsSerializationConflict возвращает true, если транзакция упала из-за
// конфликта сериализации или дедлока. Такие ошибки транзиентны:
// идемпотентные вызовы безопасно повторить целиком.
func IsSerializationConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// IsUniqueViolation возвращает true, если вставка нарушила уникальный индекс.
// Для реферальных пар это штатный случай: бонус уже начислен.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeUniqueViolation
}
