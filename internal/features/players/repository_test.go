package players

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// Интеграционные тесты гоняются против настоящего PostgreSQL
// (TEST_DATABASE_URL), без переменной — пропускаются.

const testPlayersSchema = `
CREATE TABLE players (
    id BIGSERIAL PRIMARY KEY,
    tg_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(255),
    first_name VARCHAR(255) NOT NULL,
    tries_paid INTEGER NOT NULL DEFAULT 0,
    tries_bonus INTEGER NOT NULL DEFAULT 0,
    is_admin BOOLEAN DEFAULT FALSE,
    is_banned BOOLEAN DEFAULT FALSE,
    referred_by BIGINT,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE TABLE tries_ledger (
    id BIGSERIAL PRIMARY KEY,
    tg_id BIGINT NOT NULL REFERENCES players(tg_id),
    delta INTEGER NOT NULL,
    reason VARCHAR(16) NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
`

func newTestRepo(t *testing.T) (*Repository, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан, пропускаем интеграционный тест")
	}
	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	schema := fmt.Sprintf("players_test_%d", time.Now().UnixNano())
	poolConfig.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		pool.Close()
	})

	_, err = pool.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, testPlayersSchema)
	require.NoError(t, err)

	return NewRepository(pool), pool
}

// Повторный Ensure обновляет имя и флаг админа, но не счётчики попыток:
// ADMIN_IDS живёт в конфиге, колонка is_admin обязана следовать за ним
// в обе стороны.
func TestRepositoryEnsure_SyncsAdminFlag(t *testing.T) {
	repo, pool := newTestRepo(t)
	ctx := context.Background()
	const tgID = int64(300)

	require.NoError(t, repo.Ensure(ctx, tgID, "user", "Имя", false))

	_, err := pool.Exec(ctx,
		`UPDATE players SET tries_paid = 3 WHERE tg_id = $1`, tgID)
	require.NoError(t, err)

	// Пользователя добавили в ADMIN_IDS
	require.NoError(t, repo.Ensure(ctx, tgID, "new_user", "Новое имя", true))

	p, err := repo.GetByTgID(ctx, tgID)
	require.NoError(t, err)
	require.True(t, p.IsAdmin)
	require.Equal(t, "new_user", p.Username)
	require.Equal(t, "Новое имя", p.FirstName)
	require.Equal(t, 3, p.TriesPaid)

	// И убрали обратно
	require.NoError(t, repo.Ensure(ctx, tgID, "new_user", "Новое имя", false))

	p, err = repo.GetByTgID(ctx, tgID)
	require.NoError(t, err)
	require.False(t, p.IsAdmin)
	require.Equal(t, 3, p.TriesPaid)
}

// Баланс выводится из счётчиков и журнала, отдельной колонки нет.
func TestRepositoryAvailableTries_Derived(t *testing.T) {
	repo, pool := newTestRepo(t)
	ctx := context.Background()
	const tgID = int64(301)

	require.NoError(t, repo.Ensure(ctx, tgID, "", "Игрок", false))
	_, err := pool.Exec(ctx,
		`UPDATE players SET tries_paid = 2, tries_bonus = 1 WHERE tg_id = $1`, tgID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO tries_ledger (tg_id, delta, reason) VALUES ($1, -1, 'play')`, tgID)
	require.NoError(t, err)

	available, err := repo.AvailableTries(ctx, tgID)
	require.NoError(t, err)
	require.Equal(t, 2, available)
}
