package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsSerializationConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"обёрнутая ошибка", fmt.Errorf("коммит: %w", &pgconn.PgError{Code: "40001"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"не pg-ошибка", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSerializationConflict(tt.err); got != tt.want {
				t.Errorf("IsSerializationConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("код 23505 должен распознаваться")
	}
	if !IsUniqueViolation(fmt.Errorf("вставка: %w", &pgconn.PgError{Code: "23505"})) {
		t.Error("обёрнутый код 23505 должен распознаваться")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "40001"}) {
		t.Error("конфликт сериализации не является нарушением уникальности")
	}
	if IsUniqueViolation(nil) {
		t.Error("nil не является ошибкой уникальности")
	}
}
