package common

import "testing"

func TestPluralizeTries(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "попыток"},
		{1, "попытка"},
		{2, "попытки"},
		{4, "попытки"},
		{5, "попыток"},
		{11, "попыток"},
		{12, "попыток"},
		{14, "попыток"},
		{21, "попытка"},
		{22, "попытки"},
		{25, "попыток"},
		{100, "попыток"},
		{101, "попытка"},
		{111, "попыток"},
		{-1, "попытка"},
		{-3, "попытки"},
	}

	for _, tt := range tests {
		if got := PluralizeTries(tt.n); got != tt.want {
			t.Errorf("PluralizeTries(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatTries(t *testing.T) {
	if got := FormatTries(3); got != "3 попытки" {
		t.Errorf("FormatTries(3) = %q", got)
	}
	if got := FormatTries(0); got != "0 попыток" {
		t.Errorf("FormatTries(0) = %q", got)
	}
}

func TestFormatTriesDelta(t *testing.T) {
	tests := []struct {
		delta int
		want  string
	}{
		{3, "+3 попытки"},
		{1, "+1 попытка"},
		{0, "+0 попыток"},
		{-1, "-1 попытка"},
		{-5, "-5 попыток"},
	}

	for _, tt := range tests {
		if got := FormatTriesDelta(tt.delta); got != tt.want {
			t.Errorf("FormatTriesDelta(%d) = %q, want %q", tt.delta, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1 000"},
		{14600, "14 600"},
		{1234567, "1 234 567"},
		{-14600, "-14 600"},
	}

	for _, tt := range tests {
		if got := FormatNumber(tt.n); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
