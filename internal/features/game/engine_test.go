package game

import "testing"

func TestAdvanceCycle(t *testing.T) {
	tests := []struct {
		name        string
		incremented int
		threshold   int
		wantResult  PlayResult
		wantCounter int
		wantCycle   bool
	}{
		{"первая попытка далеко от порога", 1, 14600, ResultLose, 1, false},
		{"на единицу меньше порога", 14599, 14600, ResultLose, 14599, false},
		{"ровно порог", 14600, 14600, ResultWin, 0, true},
		{"маленький порог", 5, 5, ResultWin, 0, true},
		{"порог единица, каждая попытка выигрывает", 1, 1, ResultWin, 0, true},
		{"счётчик выше пониженного порога", 8, 5, ResultWin, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := advanceCycle(tt.incremented, tt.threshold)
			if step.Result != tt.wantResult {
				t.Errorf("Result = %v, want %v", step.Result, tt.wantResult)
			}
			if step.NextCounter != tt.wantCounter {
				t.Errorf("NextCounter = %d, want %d", step.NextCounter, tt.wantCounter)
			}
			if step.NextCycle != tt.wantCycle {
				t.Errorf("NextCycle = %v, want %v", step.NextCycle, tt.wantCycle)
			}
		})
	}
}

// Счётчик проходит порог = 5 шаг за шагом: четыре проигрыша, пятая
// попытка выигрывает и обнуляет счётчик для следующего цикла.
func TestAdvanceCycle_FullCycle(t *testing.T) {
	const threshold = 5

	counter := 0
	for i := 1; i <= threshold-1; i++ {
		counter++
		step := advanceCycle(counter, threshold)
		if step.Result != ResultLose {
			t.Fatalf("попытка %d: Result = %v, want lose", i, step.Result)
		}
		counter = step.NextCounter
	}

	counter++
	step := advanceCycle(counter, threshold)
	if step.Result != ResultWin {
		t.Fatalf("попытка %d: Result = %v, want win", threshold, step.Result)
	}
	if step.NextCounter != 0 {
		t.Fatalf("после выигрыша NextCounter = %d, want 0", step.NextCounter)
	}
	if !step.NextCycle {
		t.Fatal("после выигрыша должен начинаться новый цикл")
	}
}

// Оператор понизил порог, когда счётчик уже перерос новое значение.
// Первое же списание обязано выиграть и вернуть счётчик в диапазон
// 0 <= v < threshold; дальше цикл идёт как обычно.
func TestAdvanceCycle_ThresholdLoweredBelowCounter(t *testing.T) {
	const threshold = 5
	counter := 7 // накоплен при старом пороге 10

	counter++
	step := advanceCycle(counter, threshold)
	if step.Result != ResultWin {
		t.Fatalf("первое списание после понижения порога: Result = %v, want win", step.Result)
	}
	if step.NextCounter != 0 {
		t.Fatalf("NextCounter = %d, want 0", step.NextCounter)
	}

	// Следующие списания идут новым циклом в пределах порога
	counter = step.NextCounter
	for i := 1; i <= 1000; i++ {
		counter++
		step = advanceCycle(counter, threshold)
		if counter >= threshold && step.Result != ResultWin {
			t.Fatalf("шаг %d: счётчик %d достиг порога %d без выигрыша", i, counter, threshold)
		}
		if step.NextCounter < 0 || step.NextCounter >= threshold {
			t.Fatalf("шаг %d: NextCounter = %d вне диапазона [0, %d)", i, step.NextCounter, threshold)
		}
		counter = step.NextCounter
	}
}
