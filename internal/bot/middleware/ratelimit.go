package middleware

import (
	"sync"
	"time"
)

// RateLimiter ограничивает частоту сообщений одного игрока.
// Скользящее окно: учитываются только сообщения за последние window.
// Основная задача — не дать закликать "!крутить" и "!купить" быстрее,
// чем бот отвечает; лимиты задаются переменными RATE_LIMIT_* в конфиге.
type RateLimiter struct {
	mu     sync.Mutex
	seen   map[int64][]time.Time
	limit  int
	window time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		seen:   make(map[int64][]time.Time),
		limit:  limit,
		window: window,
		stopCh: make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Close останавливает фоновую очистку. Вызывается на shutdown.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow сообщает, пускать ли очередное сообщение игрока tgID.
func (rl *RateLimiter) Allow(tgID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := pruneMarks(rl.seen[tgID], now.Add(-rl.window))
	if len(recent) >= rl.limit {
		rl.seen[tgID] = recent
		return false
	}
	rl.seen[tgID] = append(recent, now)
	return true
}

// pruneMarks отбрасывает отметки старше cutoff, переиспользуя срез.
func pruneMarks(marks []time.Time, cutoff time.Time) []time.Time {
	kept := marks[:0]
	for _, m := range marks {
		if m.After(cutoff) {
			kept = append(kept, m)
		}
	}
	return kept
}

// evictLoop периодически выкидывает из карты игроков, молчавших целое
// окно, иначе она растёт с каждым новым пользователем бесконечно.
func (rl *RateLimiter) evictLoop() {
	period := rl.window
	if period < time.Minute {
		period = time.Minute
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-rl.window)
			for tgID, marks := range rl.seen {
				kept := pruneMarks(marks, cutoff)
				if len(kept) == 0 {
					delete(rl.seen, tgID)
				} else {
					rl.seen[tgID] = kept
				}
			}
			rl.mu.Unlock()
		}
	}
}
