package admin

import (
	"encoding/base64"
	"fmt"
	"testing"

	"golang.org/x/crypto/argon2"
)

// encodeHash готовит хеш в том же формате, что scripts/generate_hash.go.
func encodeHash(password string, salt []byte) string {
	var (
		memory      uint32 = 65536
		iterations  uint32 = 3
		parallelism uint8  = 2
		keyLength   uint32 = 32
	)
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

func TestVerifyArgon2id(t *testing.T) {
	salt := []byte("0123456789abcdef")
	encoded := encodeHash("секретный-пароль", salt)

	if !verifyArgon2id("секретный-пароль", encoded) {
		t.Error("правильный пароль должен проходить проверку")
	}
	if verifyArgon2id("неверный", encoded) {
		t.Error("неверный пароль не должен проходить проверку")
	}
	if verifyArgon2id("", encoded) {
		t.Error("пустой пароль не должен проходить проверку")
	}
}

func TestVerifyArgon2id_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"пустая строка", ""},
		{"не хеш вовсе", "plaintext-password"},
		{"мало секций", "$argon2id$v=19$m=65536,t=3,p=2"},
		{"битая соль", "$argon2id$v=19$m=65536,t=3,p=2$???$aGFzaA"},
		{"битые параметры", "$argon2id$v=19$garbage$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if verifyArgon2id("пароль", tt.hash) {
				t.Error("некорректный хеш не должен проходить проверку")
			}
		})
	}
}

func TestGenerateSecureToken(t *testing.T) {
	a := generateSecureToken()
	b := generateSecureToken()

	if a == "" || b == "" {
		t.Fatal("токен не должен быть пустым")
	}
	if a == b {
		t.Error("токены должны быть уникальными")
	}
}
