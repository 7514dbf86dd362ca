package game

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortuna-bot/internal/common"
)

// fakeStore реализует Store в памяти, без БД.
type fakeStore struct {
	outcome *Outcome
	err     error

	gotTgID    int64
	gotWinCode string
}

func (f *fakeStore) State(ctx context.Context) (*GameState, error) { return nil, nil }

func (f *fakeStore) PlayOnce(ctx context.Context, tgID int64, winCode string) (*Outcome, error) {
	f.gotTgID = tgID
	f.gotWinCode = winCode
	return f.outcome, f.err
}

func (f *fakeStore) RecentPlays(ctx context.Context, tgID int64, limit int) ([]*Play, error) {
	return nil, nil
}

func (f *fakeStore) MarkWinFulfilled(ctx context.Context, code string) (bool, error) {
	return false, nil
}

type fakeNotifier struct {
	tgID int64
	code string
}

func (f *fakeNotifier) NotifyWin(tgID int64, code string) {
	f.tgID = tgID
	f.code = code
}

func TestPlayOnce_Lose(t *testing.T) {
	store := &fakeStore{outcome: &Outcome{Result: ResultLose, Cycle: 2, Counter: 17}}
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier)

	outcome, err := svc.PlayOnce(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, ResultLose, outcome.Result)
	assert.Equal(t, int64(42), store.gotTgID)
	assert.NotEmpty(t, store.gotWinCode, "код выигрыша генерируется до транзакции")
	assert.Zero(t, notifier.tgID, "при проигрыше уведомления нет")
}

func TestPlayOnce_WinNotifies(t *testing.T) {
	win := &Win{Code: "deadbeef", Status: WinPendingDetails}
	store := &fakeStore{outcome: &Outcome{Result: ResultWin, Cycle: 3, Counter: 0, Win: win}}
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier)

	outcome, err := svc.PlayOnce(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, outcome.Win)
	assert.Equal(t, int64(42), notifier.tgID)
	assert.Equal(t, "deadbeef", notifier.code)
}

func TestPlayOnce_NilNotifier(t *testing.T) {
	win := &Win{Code: "deadbeef"}
	store := &fakeStore{outcome: &Outcome{Result: ResultWin, Win: win}}
	svc := NewService(store, nil)

	_, err := svc.PlayOnce(context.Background(), 42)
	require.NoError(t, err)
}

func TestPlayOnce_SerializationConflict(t *testing.T) {
	store := &fakeStore{err: &pgconn.PgError{Code: "40001"}}
	svc := NewService(store, nil)

	_, err := svc.PlayOnce(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStorageConflict))
}

func TestPlayOnce_InsufficientTries(t *testing.T) {
	store := &fakeStore{err: common.ErrInsufficientTries}
	svc := NewService(store, nil)

	_, err := svc.PlayOnce(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInsufficientTries))
	assert.False(t, errors.Is(err, common.ErrStorageConflict))
}
