// Package game — engine.go содержит чистую логику определения исхода.
// Вся она детерминирована: никакого датчика случайных чисел в игре нет,
// выигрывает ровно та попытка, на которой счётчик цикла достигает порога.
package game

// cycleStep — результат одного шага счётчика цикла.
type cycleStep struct {
	Result      PlayResult
	NextCounter int  // значение счётчика после шага (0 после выигрыша)
	NextCycle   bool // true, если начинается новый цикл
}

// advanceCycle вычисляет исход для счётчика, УЖЕ увеличенного на единицу.
// Поскольку один вызов списывает ровно одну попытку и проверка идёт после
// каждого единичного инкремента, при неизменном пороге счётчик доходит
// до порога ровно. Сравнение при этом нестрогое: если оператор понизил
// порог, когда счётчик уже выше нового значения, ближайшее же списание
// выигрывает и возвращает счётчик в диапазон 0 <= v < threshold.
func advanceCycle(incremented, threshold int) cycleStep {
	if incremented >= threshold {
		return cycleStep{Result: ResultWin, NextCounter: 0, NextCycle: true}
	}
	return cycleStep{Result: ResultLose, NextCounter: incremented, NextCycle: false}
}
