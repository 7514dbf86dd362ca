package referral

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortuna-bot/internal/config"
)

// fakeStore повторяет контракт уникальной пары (referrer, new_user).
type fakeStore struct {
	granted map[[2]int64]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{granted: make(map[[2]int64]int)}
}

func (f *fakeStore) Attribute(ctx context.Context, referrerID, newUserID int64, bonus int) (bool, error) {
	key := [2]int64{referrerID, newUserID}
	if _, ok := f.granted[key]; ok {
		return false, nil
	}
	f.granted[key] = bonus
	return true, nil
}

func testService() (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, &config.Config{ReferralBonusTries: 1}), store
}

func TestAttribute(t *testing.T) {
	svc, store := testService()

	granted, err := svc.Attribute(context.Background(), 100, 200)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, 1, store.granted[[2]int64{100, 200}])
}

func TestAttribute_DuplicateIsNoop(t *testing.T) {
	svc, store := testService()

	granted, err := svc.Attribute(context.Background(), 100, 200)
	require.NoError(t, err)
	require.True(t, granted)

	// Повторный переход по той же ссылке бонуса не даёт и не ошибается
	granted, err = svc.Attribute(context.Background(), 100, 200)
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Len(t, store.granted, 1)
}

func TestAttribute_SelfReferral(t *testing.T) {
	svc, store := testService()

	granted, err := svc.Attribute(context.Background(), 100, 100)
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Empty(t, store.granted, "самопривод не доходит до хранилища")
}

func TestAttribute_DifferentPairsIndependent(t *testing.T) {
	svc, store := testService()

	for _, newUser := range []int64{200, 201, 202} {
		granted, err := svc.Attribute(context.Background(), 100, newUser)
		require.NoError(t, err)
		assert.True(t, granted)
	}
	assert.Len(t, store.granted, 3)
}
