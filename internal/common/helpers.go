// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация и форматирование чисел.
package common

import (
	"fmt"
	"math"
)

// PluralizeTries возвращает правильную форму слова «попытка» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "попытка" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "попытки" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "попыток" (0, 5-20, 25-30, 100, ...)
//
// Примеры:
//
//	PluralizeTries(1)  → "попытка"
//	PluralizeTries(3)  → "попытки"
//	PluralizeTries(5)  → "попыток"
//	PluralizeTries(11) → "попыток"
//	PluralizeTries(21) → "попытка"
func PluralizeTries(n int) string {
	// Берём абсолютное значение для отрицательных чисел
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	// Единственное число: 1, 21, 31, 101 (но НЕ 11, 111)
	if lastDigit == 1 && lastTwoDigits != 11 {
		return "попытка"
	}

	// Малое множественное: 2-4, 22-24, 32-34 (но НЕ 12-14)
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "попытки"
	}

	// Большое множественное: 0, 5-20, 25-30, 100, ...
	return "попыток"
}

// FormatTries форматирует количество попыток в читабельную строку.
// Пример: FormatTries(3) → "3 попытки"
func FormatTries(n int) string {
	return fmt.Sprintf("%d %s", n, PluralizeTries(n))
}

// FormatRubles форматирует сумму в рублях.
// Суммы храним в целых рублях, копейки в этой игре не используются.
func FormatRubles(amount int64) string {
	return fmt.Sprintf("%d ₽", amount)
}
