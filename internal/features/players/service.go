// Package players — service.go содержит бизнес-логику регистрации игроков.
package players

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Service управляет игроками.
// Связывает обработчики Telegram-событий с репозиторием БД.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис игроков.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// EnsurePlayer гарантирует, что игрок есть в базе: создаёт запись при
// первом обращении, при повторных — обновляет имя/username.
// isAdmin передаётся из конфига (список ADMIN_IDS) и проставляется
// только при создании записи.
func (s *Service) EnsurePlayer(ctx context.Context, tgID int64, username, firstName string, isAdmin bool) error {
	if err := s.repo.Ensure(ctx, tgID, username, firstName, isAdmin); err != nil {
		return fmt.Errorf("ошибка регистрации игрока: %w", err)
	}
	return nil
}

// GetByTgID возвращает игрока по его Telegram user ID.
func (s *Service) GetByTgID(ctx context.Context, tgID int64) (*Player, error) {
	return s.repo.GetByTgID(ctx, tgID)
}

// IsMember проверяет, зарегистрирован ли пользователь.
// Используется фильтром доступа.
func (s *Service) IsMember(ctx context.Context, tgID int64) (bool, error) {
	return s.repo.Exists(ctx, tgID)
}

// AvailableTries возвращает доступное число попыток игрока.
func (s *Service) AvailableTries(ctx context.Context, tgID int64) (int, error) {
	return s.repo.AvailableTries(ctx, tgID)
}

// LedgerHistory возвращает последние записи журнала попыток.
func (s *Service) LedgerHistory(ctx context.Context, tgID int64, limit int) ([]*LedgerEntry, error) {
	return s.repo.LedgerHistory(ctx, tgID, limit)
}

// AttachReferrer запоминает, кто привёл игрока. Сам бонус начисляет
// модуль referral; здесь только связь в профиле.
func (s *Service) AttachReferrer(ctx context.Context, tgID, referrerID int64) (bool, error) {
	attached, err := s.repo.SetReferredBy(ctx, tgID, referrerID)
	if err != nil {
		return false, err
	}
	if attached {
		log.WithFields(log.Fields{
			"tg_id":    tgID,
			"referrer": referrerID,
		}).Info("Игрок привязан к рефереру")
	}
	return attached, nil
}
