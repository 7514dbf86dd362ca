// Package referral начисляет разовый бонус за приведённого друга.
// models.go описывает структуру данных таблицы referrals.
package referral

import "time"

// Referral — факт привлечения. Уникальное ограничение на пару
// (referrer, new_user) и есть гарантия «не больше одного бонуса на пару»:
// повторная атрибуция упирается в индекс и становится no-op.
type Referral struct {
	ID        int64     `db:"id"`
	Referrer  int64     `db:"referrer"` // tg_id пригласившего
	NewUser   int64     `db:"new_user"` // tg_id приглашённого
	CreatedAt time.Time `db:"created_at"`
}
