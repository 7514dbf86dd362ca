package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortuna-bot/internal/common"
	"fortuna-bot/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		BillingTryPrice:   500,
		BillingProofTries: 1,
	}
}

// fakeBillingStore реализует Store в памяти.
type fakeBillingStore struct {
	payments map[string]*Payment
	applyErr error

	applyCalls int
}

func newFakeBillingStore() *fakeBillingStore {
	return &fakeBillingStore{payments: make(map[string]*Payment)}
}

func (f *fakeBillingStore) CreatePayment(ctx context.Context, p *Payment) error {
	p.ID = int64(len(f.payments) + 1)
	p.Status = PaymentPending
	f.payments[p.TxRef] = p
	return nil
}

func (f *fakeBillingStore) PaymentByTxRef(ctx context.Context, txRef string) (*Payment, error) {
	p, ok := f.payments[txRef]
	if !ok {
		return nil, common.ErrUnknownReference
	}
	return p, nil
}

// ApplyPaymentOutcome повторяет контракт репозитория: терминальный
// платёж не меняется, applied=false.
func (f *fakeBillingStore) ApplyPaymentOutcome(ctx context.Context, txRef, providerTxID string, outcome PaymentStatus, unitPrice int64) (*Payment, bool, error) {
	f.applyCalls++
	if f.applyErr != nil {
		return nil, false, f.applyErr
	}
	p, ok := f.payments[txRef]
	if !ok {
		return nil, false, common.ErrUnknownReference
	}
	if p.Status.Terminal() {
		return p, false, nil
	}
	p.Status = outcome
	p.ProviderTxID = providerTxID
	if outcome == PaymentSuccessful {
		p.CreditedTries = int(p.Amount / unitPrice)
	}
	return p, true, nil
}

func (f *fakeBillingStore) ExpirePayment(ctx context.Context, txRef string) (bool, error) {
	p, ok := f.payments[txRef]
	if !ok || p.Status != PaymentPending {
		return false, nil
	}
	p.Status = PaymentExpired
	return true, nil
}

func (f *fakeBillingStore) ExpireStale(ctx context.Context) ([]ExpiredPayment, error) {
	return nil, nil
}

func (f *fakeBillingStore) CreateProof(ctx context.Context, p *Proof) error {
	p.ID = 1
	p.Status = ProofPending
	return nil
}

func (f *fakeBillingStore) PendingProofs(ctx context.Context, limit int) ([]*Proof, error) {
	return nil, nil
}

func (f *fakeBillingStore) ApplyProofOutcome(ctx context.Context, proofID, reviewer int64, outcome ProofStatus, credited int) (*Proof, bool, error) {
	return &Proof{ID: proofID, Status: outcome, ReviewedBy: &reviewer}, true, nil
}

// fakeProvider отдаёт фиксированную платёжную ссылку.
type fakeProvider struct {
	err error
}

func (f *fakeProvider) CreateCheckout(ctx context.Context, amount int64, description string, metadata map[string]string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return "prov-1", "https://pay.example/confirm", nil
}

// allowAll пускает всех, denyAll — никого.
type allowAll struct{}

func (allowAll) IsAuthorized(ctx context.Context, userID int64) bool { return true }

type denyAll struct{}

func (denyAll) IsAuthorized(ctx context.Context, userID int64) bool { return false }

func TestTriesForAmount(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		unitPrice int64
		want      int
		wantErr   bool
	}{
		{"одна попытка", 500, 500, 1, false},
		{"три попытки", 1500, 500, 3, false},
		{"ноль", 0, 500, 0, true},
		{"отрицательная сумма", -500, 500, 0, true},
		{"не кратно цене", 700, 500, 0, true},
		{"некорректная цена", 500, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TriesForAmount(tt.amount, tt.unitPrice)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, common.ErrInvalidAmount))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateCheckout(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())

	checkout, err := svc.CreateCheckout(context.Background(), 42, 1500)
	require.NoError(t, err)
	assert.Equal(t, 3, checkout.Tries)
	assert.NotEmpty(t, checkout.TxRef)
	assert.Equal(t, "https://pay.example/confirm", checkout.ConfirmationURL)

	// Платёж должен быть в базе ДО обращения к провайдеру
	p, err := store.PaymentByTxRef(context.Background(), checkout.TxRef)
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, p.Status)
}

func TestCreateCheckout_InvalidAmount(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())

	_, err := svc.CreateCheckout(context.Background(), 42, 777)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidAmount))
	assert.Empty(t, store.payments, "платёж не создаётся при некорректной сумме")
}

func TestCreateCheckout_ProviderDown(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{err: errors.New("timeout")}, allowAll{}, testConfig())

	_, err := svc.CreateCheckout(context.Background(), 42, 500)
	require.Error(t, err)
	// Платёж остаётся pending и дожидается свипера
	assert.Len(t, store.payments, 1)
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())

	checkout, err := svc.CreateCheckout(context.Background(), 42, 1000)
	require.NoError(t, err)

	// Первое подтверждение начисляет
	p, applied, err := svc.ConfirmPayment(context.Background(), checkout.TxRef, "prov-1", PaymentSuccessful)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, PaymentSuccessful, p.Status)
	assert.Equal(t, 2, p.CreditedTries)

	// Повтор того же вебхука — no-op с прежним результатом
	p2, applied2, err := svc.ConfirmPayment(context.Background(), checkout.TxRef, "prov-1", PaymentSuccessful)
	require.NoError(t, err)
	assert.False(t, applied2)
	assert.Equal(t, 2, p2.CreditedTries)

	// Попытка перевести successful → failed тоже no-op
	p3, applied3, err := svc.ConfirmPayment(context.Background(), checkout.TxRef, "prov-1", PaymentFailed)
	require.NoError(t, err)
	assert.False(t, applied3)
	assert.Equal(t, PaymentSuccessful, p3.Status)
}

func TestConfirmPayment_InvalidTargetStatus(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())

	for _, outcome := range []PaymentStatus{PaymentPending, PaymentExpired, "garbage"} {
		_, _, err := svc.ConfirmPayment(context.Background(), "any", "prov-1", outcome)
		require.Error(t, err, "outcome %q", outcome)
		assert.True(t, errors.Is(err, common.ErrInvalidTransition))
	}
	assert.Zero(t, store.applyCalls, "до хранилища дело не доходит")
}

func TestConfirmPayment_UnknownReference(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())

	_, _, err := svc.ConfirmPayment(context.Background(), "no-such-ref", "prov-1", PaymentSuccessful)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnknownReference))
}

func TestConfirmPayment_StorageConflict(t *testing.T) {
	store := newFakeBillingStore()
	store.applyErr = &pgconn.PgError{Code: "40001"}
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())

	_, _, err := svc.ConfirmPayment(context.Background(), "any", "prov-1", PaymentSuccessful)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStorageConflict))
}

func TestExpirePayment(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())

	checkout, err := svc.CreateCheckout(context.Background(), 42, 500)
	require.NoError(t, err)

	expired, err := svc.ExpirePayment(context.Background(), checkout.TxRef)
	require.NoError(t, err)
	assert.True(t, expired)

	// Повтор и протухание уже терминального платежа — no-op
	expired, err = svc.ExpirePayment(context.Background(), checkout.TxRef)
	require.NoError(t, err)
	assert.False(t, expired)

	// Опоздавший успешный вебхук не может оживить протухший платёж
	p, applied, err := svc.ConfirmPayment(context.Background(), checkout.TxRef, "prov-1", PaymentSuccessful)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, PaymentExpired, p.Status)
	assert.Zero(t, p.CreditedTries)
}

func TestProofReview_RequiresAuthorization(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{}, denyAll{}, testConfig())

	_, _, err := svc.ApproveProof(context.Background(), 1, 99)
	assert.True(t, errors.Is(err, common.ErrNotAdmin))

	_, _, err = svc.RejectProof(context.Background(), 1, 99)
	assert.True(t, errors.Is(err, common.ErrNotAdmin))

	_, err = svc.PendingProofs(context.Background(), 99)
	assert.True(t, errors.Is(err, common.ErrNotAdmin))
}

func TestApproveProof(t *testing.T) {
	store := newFakeBillingStore()
	svc := NewService(store, &fakeProvider{}, allowAll{}, testConfig())

	p, applied, err := svc.ApproveProof(context.Background(), 7, 100)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, ProofApproved, p.Status)
	require.NotNil(t, p.ReviewedBy)
	assert.Equal(t, int64(100), *p.ReviewedBy)
}
