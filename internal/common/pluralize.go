// Package common — pluralize.go содержит вспомогательные функции
// для правильного склонения русских числительных.
// Основная логика плюрализации реализована в helpers.go,
// этот файл экспортирует дополнительные утилиты.
package common

import "fmt"

// FormatTriesDelta создаёт строку вида "+3 попытки" или "-1 попытка".
// Знак «+» или «-» добавляется автоматически. Используется при
// выводе истории начислений и списаний.
//
// Примеры:
//
//	FormatTriesDelta(3)   → "+3 попытки"
//	FormatTriesDelta(-1)  → "-1 попытка"
func FormatTriesDelta(delta int) string {
	if delta >= 0 {
		return fmt.Sprintf("+%d %s", delta, PluralizeTries(delta))
	}
	return fmt.Sprintf("%d %s", delta, PluralizeTries(delta))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(14600) → "14 600"
func FormatNumber(n int64) string {
	// Простая реализация для чисел до миллиарда
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Рекурсивно добавляем разделители
	rest := n / 1000
	last := n % 1000

	if rest > 0 {
		return fmt.Sprintf("%s %03d", FormatNumber(rest), last)
	}
	return fmt.Sprintf("%d", last)
}
