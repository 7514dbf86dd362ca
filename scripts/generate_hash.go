// +build ignore

// Генератор Argon2id-хеша пароля администратора.
//
// Запуск: go run scripts/generate_hash.go <пароль>
//
// Вывод кладётся в .env как ADMIN_PASSWORD_HASH. Формат строки
// ($argon2id$v=19$m=...,t=...,p=...$соль$хеш) разбирает команда /login,
// поэтому менять его вручную нельзя.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id. Записываются в саму строку хеша,
// проверка пароля читает их оттуда же.
const (
	hashMemory  = 64 * 1024 // КБ
	hashTimes   = 3
	hashThreads = 2
	hashKeyLen  = 32
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "Использование: go run scripts/generate_hash.go <пароль>")
		os.Exit(1)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка генерации соли: %v\n", err)
		os.Exit(1)
	}

	hash := argon2.IDKey([]byte(os.Args[1]), salt, hashTimes, hashMemory, hashThreads, hashKeyLen)

	fmt.Printf("ADMIN_PASSWORD_HASH=$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s\n",
		hashMemory, hashTimes, hashThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}
