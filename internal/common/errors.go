// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки биллинга (платежи, чеки, начисление попыток)
var (
	// ErrUnknownReference — платёж или чек с таким идентификатором не найден
	ErrUnknownReference = errors.New("платёж не найден")
	// ErrInvalidTransition — недопустимый целевой статус (например, обратно в pending)
	ErrInvalidTransition = errors.New("недопустимый переход статуса")
	// ErrInvalidAmount — некорректная сумма (ноль, отрицательная или не кратная цене попытки)
	ErrInvalidAmount = errors.New("сумма должна быть положительной и кратной цене попытки")
)

// Ошибки игры
var (
	// ErrInsufficientTries — у игрока нет доступных попыток
	ErrInsufficientTries = errors.New("недостаточно попыток")
	// ErrPlayerNotFound — игрок не найден в базе
	ErrPlayerNotFound = errors.New("игрок не найден")
)

// Ошибки хранилища
var (
	// ErrStorageConflict — транзакция не прошла из-за конфликта (serialization failure / deadlock).
	// Идемпотентные вызовы (подтверждение платежа) можно смело повторять,
	// списание попытки повторять нельзя — сначала сверяться с историей игр.
	ErrStorageConflict = errors.New("конфликт транзакций, попробуйте ещё раз")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
)
