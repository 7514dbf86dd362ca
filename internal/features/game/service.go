// Package game — service.go координирует розыгрыш от списания попытки
// до уведомления админов о выигрыше.
package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/common"
	"fortuna-bot/internal/db/postgres"
)

// Store — операции хранилища, нужные движку розыгрыша.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	State(ctx context.Context) (*GameState, error)
	PlayOnce(ctx context.Context, tgID int64, winCode string) (*Outcome, error)
	RecentPlays(ctx context.Context, tgID int64, limit int) ([]*Play, error)
	MarkWinFulfilled(ctx context.Context, code string) (bool, error)
}

// WinNotifier уведомляет админов о выигрыше. Реализуется ботом.
// Доставка best-effort: сыгранный выигрыш уже закоммичен и откатываться
// из-за недоставленного сообщения не будет.
type WinNotifier interface {
	NotifyWin(tgID int64, code string)
}

// Service управляет розыгрышем.
type Service struct {
	store    Store
	notifier WinNotifier
}

// NewService создаёт сервис игры.
func NewService(store Store, notifier WinNotifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// SetNotifier подключает уведомитель после сборки бота.
// Бот зависит от сервиса, поэтому при конструировании сервиса его ещё нет.
func (s *Service) SetNotifier(notifier WinNotifier) {
	s.notifier = notifier
}

// PlayOnce списывает одну попытку и возвращает исход.
//
// ВАЖНО про ретраи: в отличие от подтверждения платежа этот вызов
// НЕ идемпотентен — закоммиченное списание при повторе съест вторую
// попытку. Поэтому конфликт хранилища отдаём как ErrStorageConflict,
// а вызывающий сверяется с историей (RecentPlays), не повторяя вызов.
func (s *Service) PlayOnce(ctx context.Context, tgID int64) (*Outcome, error) {
	// Код генерируем заранее: внутри транзакции он нужен уже готовым.
	// UUID устойчив к коллизиям на всём времени жизни игры.
	winCode := uuid.New().String()

	outcome, err := s.store.PlayOnce(ctx, tgID, winCode)
	if err != nil {
		if postgres.IsSerializationConflict(err) {
			return nil, fmt.Errorf("розыгрыш для tg_id=%d: %w", tgID, common.ErrStorageConflict)
		}
		return nil, err
	}

	if outcome.Result == ResultWin {
		log.WithFields(log.Fields{
			"tg_id": tgID,
			"cycle": outcome.Cycle,
			"code":  outcome.Win.Code,
		}).Info("🎉 ВЫИГРЫШ! Порог цикла достигнут")

		// После коммита, best-effort: сбой уведомления только логируем
		if s.notifier != nil {
			s.notifier.NotifyWin(tgID, outcome.Win.Code)
		}
	}

	return outcome, nil
}

// State возвращает текущее состояние игры.
func (s *Service) State(ctx context.Context) (*GameState, error) {
	return s.store.State(ctx)
}

// RecentPlays возвращает последние игры игрока.
func (s *Service) RecentPlays(ctx context.Context, tgID int64, limit int) ([]*Play, error) {
	return s.store.RecentPlays(ctx, tgID, limit)
}

// FulfillWin помечает выигрыш оформленным по коду победителя.
func (s *Service) FulfillWin(ctx context.Context, code string) (bool, error) {
	return s.store.MarkWinFulfilled(ctx, code)
}
