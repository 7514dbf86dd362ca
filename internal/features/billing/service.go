// Package billing — service.go координирует начисление попыток:
// создание платёжной ссылки, подтверждение платежа, рассмотрение чеков
// и погашение просроченных платежей.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/common"
	"fortuna-bot/internal/config"
	"fortuna-bot/internal/db/postgres"
)

// Store — операции хранилища, нужные движку начисления.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	CreatePayment(ctx context.Context, p *Payment) error
	PaymentByTxRef(ctx context.Context, txRef string) (*Payment, error)
	ApplyPaymentOutcome(ctx context.Context, txRef, providerTxID string, outcome PaymentStatus, unitPrice int64) (*Payment, bool, error)
	ExpirePayment(ctx context.Context, txRef string) (bool, error)
	ExpireStale(ctx context.Context) ([]ExpiredPayment, error)
	CreateProof(ctx context.Context, p *Proof) error
	PendingProofs(ctx context.Context, limit int) ([]*Proof, error)
	ApplyProofOutcome(ctx context.Context, proofID, reviewer int64, outcome ProofStatus, credited int) (*Proof, bool, error)
}

// CheckoutProvider создаёт платёжную ссылку у внешнего провайдера.
// Проверка подписи вебхука и формирование ссылки — забота провайдера,
// движку важен только готовый confirmation URL.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, amount int64, description string, metadata map[string]string) (providerID, confirmationURL string, err error)
}

// Authorizer отвечает на вопрос «можно ли этому пользователю
// рассматривать чеки». Реализуется админ-модулем.
type Authorizer interface {
	IsAuthorized(ctx context.Context, userID int64) bool
}

// Service — движок начисления попыток.
type Service struct {
	store    Store
	provider CheckoutProvider
	auth     Authorizer
	cfg      *config.Config
}

// NewService создаёт сервис биллинга.
func NewService(store Store, provider CheckoutProvider, auth Authorizer, cfg *config.Config) *Service {
	return &Service{store: store, provider: provider, auth: auth, cfg: cfg}
}

// TriesForAmount вычисляет число попыток за сумму по фиксированной цене.
// Сумма должна быть положительной и кратной цене, иначе ErrInvalidAmount.
func TriesForAmount(amount, unitPrice int64) (int, error) {
	if unitPrice <= 0 {
		return 0, fmt.Errorf("цена попытки %d: %w", unitPrice, common.ErrInvalidAmount)
	}
	if amount <= 0 || amount%unitPrice != 0 {
		return 0, fmt.Errorf("сумма %d при цене %d: %w", amount, unitPrice, common.ErrInvalidAmount)
	}
	return int(amount / unitPrice), nil
}

// CreateCheckout создаёт pending-платёж и платёжную ссылку провайдера.
// Платёж сохраняется ДО обращения к провайдеру: вебхук может прийти
// раньше, чем пользователь вернётся в чат, и обязан найти tx_ref в базе.
func (s *Service) CreateCheckout(ctx context.Context, tgID, amount int64) (*Checkout, error) {
	tries, err := TriesForAmount(amount, s.cfg.BillingTryPrice)
	if err != nil {
		return nil, err
	}

	p := &Payment{
		TxRef:     uuid.New().String(),
		TgID:      tgID,
		Amount:    amount,
		ExpiresAt: time.Now().Add(s.cfg.BillingPaymentTTL),
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	_, url, err := s.provider.CreateCheckout(ctx, amount,
		fmt.Sprintf("Покупка: %s", common.FormatTries(tries)),
		map[string]string{
			"tx_ref": p.TxRef,
			"tg_id":  fmt.Sprintf("%d", tgID),
		})
	if err != nil {
		// Платёж остаётся pending — свипер погасит его по TTL
		return nil, fmt.Errorf("ошибка создания платёжной ссылки: %w", err)
	}

	log.WithFields(log.Fields{
		"tx_ref": p.TxRef,
		"tg_id":  tgID,
		"amount": amount,
		"tries":  tries,
	}).Info("Создан платёж")

	return &Checkout{TxRef: p.TxRef, ConfirmationURL: url, Amount: amount, Tries: tries}, nil
}

// ConfirmPayment обрабатывает подтверждение платежа от провайдера.
//
// Контракт идемпотентности (§ вебхуки at-least-once): повторные вызовы
// с тем же tx_ref возвращают ранее записанный результат (applied=false)
// и не начисляют ничего второй раз. outcome может быть только
// successful или failed — возврат в pending запрещён.
//
// Возвращает ErrStorageConflict при транзиентном конфликте транзакций:
// такой вызов безопасно повторить целиком.
func (s *Service) ConfirmPayment(ctx context.Context, txRef, providerTxID string, outcome PaymentStatus) (*Payment, bool, error) {
	if outcome != PaymentSuccessful && outcome != PaymentFailed {
		return nil, false, fmt.Errorf("целевой статус %q: %w", outcome, common.ErrInvalidTransition)
	}

	p, applied, err := s.store.ApplyPaymentOutcome(ctx, txRef, providerTxID, outcome, s.cfg.BillingTryPrice)
	if err != nil {
		if postgres.IsSerializationConflict(err) {
			return nil, false, fmt.Errorf("подтверждение %s: %w", txRef, common.ErrStorageConflict)
		}
		return nil, false, err
	}

	if applied {
		log.WithFields(log.Fields{
			"tx_ref":   txRef,
			"tg_id":    p.TgID,
			"status":   p.Status,
			"credited": p.CreditedTries,
		}).Info("Платёж переведён в терминальный статус")
	} else {
		log.WithFields(log.Fields{
			"tx_ref": txRef,
			"status": p.Status,
		}).Debug("Повторное подтверждение платежа — no-op")
	}
	return p, applied, nil
}

// ExpirePayment погашает один платёж по tx_ref (pending → expired).
// Для свипера и ручного вмешательства админа.
func (s *Service) ExpirePayment(ctx context.Context, txRef string) (bool, error) {
	return s.store.ExpirePayment(ctx, txRef)
}

// ExpireStalePayments погашает все просроченные pending-платежи.
func (s *Service) ExpireStalePayments(ctx context.Context) ([]ExpiredPayment, error) {
	expired, err := s.store.ExpireStale(ctx)
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 {
		log.WithField("count", len(expired)).Info("Погашены просроченные платежи")
	}
	return expired, nil
}

// SubmitProof сохраняет чек ручной оплаты для рассмотрения админом.
func (s *Service) SubmitProof(ctx context.Context, tgID int64, fileID string) (*Proof, error) {
	p := &Proof{TgID: tgID, FileID: fileID}
	if err := s.store.CreateProof(ctx, p); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"proof_id": p.ID,
		"tg_id":    tgID,
	}).Info("Получен чек ручной оплаты")
	return p, nil
}

// PendingProofs возвращает нерассмотренные чеки для админа.
func (s *Service) PendingProofs(ctx context.Context, approver int64) ([]*Proof, error) {
	if !s.auth.IsAuthorized(ctx, approver) {
		return nil, common.ErrNotAdmin
	}
	return s.store.PendingProofs(ctx, 20)
}

// ApproveProof одобряет чек и начисляет фиксированное число попыток.
// Тот же контракт, что и у ConfirmPayment: терминальный чек — no-op.
func (s *Service) ApproveProof(ctx context.Context, proofID, approver int64) (*Proof, bool, error) {
	return s.reviewProof(ctx, proofID, approver, ProofApproved)
}

// RejectProof отклоняет чек. Журнал попыток не меняется.
func (s *Service) RejectProof(ctx context.Context, proofID, approver int64) (*Proof, bool, error) {
	return s.reviewProof(ctx, proofID, approver, ProofRejected)
}

func (s *Service) reviewProof(ctx context.Context, proofID, approver int64, outcome ProofStatus) (*Proof, bool, error) {
	if !s.auth.IsAuthorized(ctx, approver) {
		return nil, false, common.ErrNotAdmin
	}

	credited := 0
	if outcome == ProofApproved {
		credited = s.cfg.BillingProofTries
	}

	p, applied, err := s.store.ApplyProofOutcome(ctx, proofID, approver, outcome, credited)
	if err != nil {
		if postgres.IsSerializationConflict(err) {
			return nil, false, fmt.Errorf("рассмотрение чека %d: %w", proofID, common.ErrStorageConflict)
		}
		return nil, false, err
	}

	if applied {
		log.WithFields(log.Fields{
			"proof_id": proofID,
			"approver": approver,
			"status":   p.Status,
			"credited": credited,
		}).Info("Чек рассмотрен")
	}
	return p, applied, nil
}
