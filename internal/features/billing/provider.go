// Package billing — provider.go содержит HTTP-клиент платёжного провайдера
// (ЮKassa). Клиент умеет одно: создать платёж и вернуть ссылку на оплату.
// Формирование ссылки и проверка подписи — на его стороне, ядру они не видны.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ProviderClient — клиент API ЮKassa.
type ProviderClient struct {
	shopID     string
	secretKey  string
	apiURL     string
	returnURL  string
	httpClient *http.Client
}

// NewProviderClient создаёт клиент провайдера.
func NewProviderClient(shopID, secretKey, apiURL, returnURL string) *ProviderClient {
	return &ProviderClient{
		shopID:    shopID,
		secretKey: secretKey,
		apiURL:    apiURL,
		returnURL: returnURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// providerAmount — сумма в формате провайдера.
type providerAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type providerConfirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type createPaymentRequest struct {
	Amount       providerAmount       `json:"amount"`
	Capture      bool                 `json:"capture"`
	Confirmation providerConfirmation `json:"confirmation"`
	Description  string               `json:"description,omitempty"`
	Metadata     map[string]string    `json:"metadata,omitempty"`
}

type createPaymentResponse struct {
	ID           string               `json:"id"`
	Status       string               `json:"status"`
	Confirmation providerConfirmation `json:"confirmation"`
}

// CreateCheckout создаёт платёж у провайдера и возвращает его ID
// и confirmation URL. Idempotence-Key защищает от дублей на стороне
// провайдера при ретраях этого запроса.
func (c *ProviderClient) CreateCheckout(ctx context.Context, amount int64, description string, metadata map[string]string) (string, string, error) {
	reqBody := createPaymentRequest{
		Amount: providerAmount{
			Value:    fmt.Sprintf("%d.00", amount),
			Currency: "RUB",
		},
		Capture: true,
		Confirmation: providerConfirmation{
			Type:      "redirect",
			ReturnURL: c.returnURL,
		},
		Description: description,
		Metadata:    metadata,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/payments", c.apiURL), bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", "", fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Idempotence-Key", uuid.New().String())
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.shopID, c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("запрос к провайдеру не удался: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("ошибка API провайдера: %s (status: %d)", string(respBody), resp.StatusCode)
	}

	var pr createPaymentResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return "", "", fmt.Errorf("ошибка разбора ответа: %w", err)
	}

	return pr.ID, pr.Confirmation.ConfirmationURL, nil
}
