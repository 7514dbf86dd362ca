// Package referral — service.go содержит бизнес-логику атрибуции.
package referral

import (
	"context"

	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/config"
)

// Store — операции хранилища, нужные рефералке.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	Attribute(ctx context.Context, referrerID, newUserID int64, bonus int) (bool, error)
}

// Service управляет реферальными бонусами.
type Service struct {
	store Store
	cfg   *config.Config
}

// NewService создаёт сервис рефералки.
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// Attribute начисляет разовый бонус за пару (referrer, new_user).
// Самопривод и повторная атрибуция — тихие no-op, НЕ ошибки: пользователь,
// дважды перешедший по одной реферальной ссылке, ничего не сломал.
// Возвращает true, если бонус начислен именно этим вызовом.
func (s *Service) Attribute(ctx context.Context, referrerID, newUserID int64) (bool, error) {
	if referrerID == newUserID {
		return false, nil
	}

	granted, err := s.store.Attribute(ctx, referrerID, newUserID, s.cfg.ReferralBonusTries)
	if err != nil {
		return false, err
	}
	if granted {
		log.WithFields(log.Fields{
			"referrer": referrerID,
			"new_user": newUserID,
			"bonus":    s.cfg.ReferralBonusTries,
		}).Info("Начислен реферальный бонус")
	}
	return granted, nil
}
