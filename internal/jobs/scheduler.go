// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: периодическое протухание
// неоплаченных счетов.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/features/billing"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron           *cron.Cron
	billingService *billing.Service
	notifyExpired  func(tgID int64)
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(billingService *billing.Service, notifyExpired func(tgID int64)) *Scheduler {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		log.WithError(err).Warn("Не удалось загрузить Europe/Moscow, используем UTC+3")
		loc = time.FixedZone("MSK", 3*60*60)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:           c,
		billingService: billingService,
		notifyExpired:  notifyExpired,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Каждые 5 минут протухаем неоплаченные счета старше TTL
	s.cron.AddFunc("*/5 * * * *", func() {
		log.Debug("[CRON] Проверка неоплаченных счетов")
		expired, err := s.billingService.ExpireStalePayments(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка протухания счетов")
			return
		}
		if len(expired) == 0 {
			return
		}
		log.WithField("count", len(expired)).Info("[CRON] Счета протухли")
		for _, p := range expired {
			s.notifyExpired(p.TgID)
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен (Europe/Moscow)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
