// Package billing — webhook.go принимает подтверждения платежей от провайдера.
// Провайдер доставляет события at-least-once, поэтому обработчик просто
// транслирует каждое событие в идемпотентный ConfirmPayment.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	log "github.com/sirupsen/logrus"

	"fortuna-bot/internal/common"
)

// webhookNotification — тело вебхука провайдера.
type webhookNotification struct {
	Type   string        `json:"type"`
	Event  string        `json:"event"`
	Object webhookObject `json:"object"`
}

type webhookObject struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Paid     bool              `json:"paid"`
	Metadata map[string]string `json:"metadata"`
}

// outcomeForEvent сопоставляет событие провайдера терминальному статусу.
// Неизвестные события игнорируются (ok=false).
func outcomeForEvent(event string) (PaymentStatus, bool) {
	switch event {
	case "payment.succeeded":
		return PaymentSuccessful, true
	case "payment.canceled":
		return PaymentFailed, true
	default:
		return "", false
	}
}

// WebhookHandler — HTTP-обработчик вебхуков провайдера.
type WebhookHandler struct {
	service  *Service
	trusted  []*net.IPNet
	onCredit func(tgID int64, tries int) // уведомление пользователя после начисления (best-effort)
}

// NewWebhookHandler создаёт обработчик. trustedCIDRs — подсети провайдера;
// запросы с других адресов отбрасываются до разбора тела.
func NewWebhookHandler(service *Service, trustedCIDRs []string, onCredit func(tgID int64, tries int)) (*WebhookHandler, error) {
	nets, err := parseCIDRs(trustedCIDRs)
	if err != nil {
		return nil, err
	}
	return &WebhookHandler{service: service, trusted: nets, onCredit: onCredit}, nil
}

func parseCIDRs(cidrs []string) ([]*net.IPNet, error) {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// trustedIP проверяет, входит ли адрес в доверенные подсети.
// Пустой список подсетей означает «доверять всем» (для локальной отладки).
func (h *WebhookHandler) trustedIP(remoteAddr string) bool {
	if len(h.trusted) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range h.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.trustedIP(r.RemoteAddr) {
		log.WithField("remote", r.RemoteAddr).Warn("Вебхук с недоверенного адреса отброшен")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var n webhookNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		log.WithError(err).Warn("Не удалось разобрать тело вебхука")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	outcome, ok := outcomeForEvent(n.Event)
	if !ok {
		log.WithField("event", n.Event).Debug("Событие провайдера проигнорировано")
		w.WriteHeader(http.StatusOK)
		return
	}

	txRef, ok := n.Object.Metadata["tx_ref"]
	if !ok {
		log.WithField("provider_tx_id", n.Object.ID).Warn("Вебхук без tx_ref в метаданных")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	p, applied, err := h.service.ConfirmPayment(r.Context(), txRef, n.Object.ID, outcome)
	switch {
	case errors.Is(err, common.ErrUnknownReference):
		log.WithField("tx_ref", txRef).Warn("Вебхук ссылается на неизвестный платёж")
		http.Error(w, "Unknown reference", http.StatusBadRequest)
		return
	case errors.Is(err, common.ErrStorageConflict):
		// Подтверждение идемпотентно: пусть провайдер повторит доставку
		http.Error(w, "Conflict, retry", http.StatusInternalServerError)
		return
	case err != nil:
		log.WithError(err).WithField("tx_ref", txRef).Error("Ошибка обработки вебхука")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Уведомляем пользователя только при первом применении перехода:
	// повторные доставки не должны спамить "оплата получена"
	if applied && p.Status == PaymentSuccessful && h.onCredit != nil {
		h.onCredit(p.TgID, p.CreditedTries)
	}

	w.WriteHeader(http.StatusOK)
}

// ListenWebhooks запускает HTTP-сервер вебхуков и блокируется до отмены ctx.
func ListenWebhooks(ctx context.Context, addr string, handler *WebhookHandler) error {
	mux := http.NewServeMux()
	mux.Handle("/webhook/payment", handler)

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.WithField("addr", addr).Info("Сервер вебхуков запущен")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
